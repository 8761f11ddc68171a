package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Alice":          "alice",
		"  Mary Jo  ":    "mary-jo",
		"O'Brien, Pat!":  "o-brien-pat",
		"Night--Shift 2": "night-shift-2",
		"":               "shift",
		"!!!":            "shift",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), "Slug(%q)", in)
	}
}

func TestShiftIDFor(t *testing.T) {
	start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "alice_1709629200000", ShiftIDFor("Alice", start))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"100", "100"},
		{" $1,250.50 ", "1250.5"},
		{"", "0"},
		{"abc", "0"},
		{"-40", "0"},
		{"0.01", "0.01"},
		{"0.005", "0.01"},
		{"0.004", "0"},
		{"12.3456", "12.35"},
	}
	for _, tt := range tests {
		got := ParseAmount(tt.raw)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "ParseAmount(%q) = %s", tt.raw, got)
	}
}

func TestIsWholeCents(t *testing.T) {
	for raw, want := range map[string]bool{"1": true, "1.50": true, "1.500": true, "-0.01": true, "0.005": false, "-2.001": false} {
		assert.Equal(t, want, IsWholeCents(decimal.RequireFromString(raw)), raw)
	}
}

func TestComputeTotals(t *testing.T) {
	machines := map[string]*MachineEntry{
		"1": {In: "100", Out: "40"},
		"2": {In: "$20", Out: ""},
		"3": {In: "junk", Out: "15.5"},
	}

	totals := ComputeTotals(machines)

	assert.True(t, totals.TotalIn.Equal(decimal.NewFromInt(120)))
	assert.True(t, totals.TotalOut.Equal(decimal.RequireFromString("55.5")))
	assert.True(t, totals.ProfitOrLoss.Equal(decimal.RequireFromString("64.5")))
	assert.True(t, totals.HasData)
	assert.Len(t, totals.Machines, 3)

	// same entries under different labels give the same totals
	relabeled := ComputeTotals(map[string]*MachineEntry{
		"c": machines["3"], "a": machines["1"], "b": machines["2"],
	})
	assert.True(t, relabeled.ProfitOrLoss.Equal(totals.ProfitOrLoss))

	empty := ComputeTotals(map[string]*MachineEntry{"1": {}})
	assert.False(t, empty.HasData)
	assert.True(t, empty.ProfitOrLoss.IsZero())
}

func TestMachinesMissingSnapshotsAndFlatten(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	machines := map[string]*MachineEntry{
		"b": {In: "10"},
		"a": {Out: "5"},
		"c": {In: "10", Images: []Snapshot{{URL: "u1", TakenAt: at}}},
		"d": {},
	}

	assert.Equal(t, []string{"a", "b"}, MachinesMissingSnapshots(machines))

	images := FlattenImages(machines)
	require.Len(t, images, 1)
	assert.Equal(t, ShiftImage{Machine: "c", URL: "u1", TakenAt: at}, images[0])
}

func TestDraftShiftClone(t *testing.T) {
	d := NewDraftShift("u1", "Alice", time.Now())
	d.Machine("1").Images = append(d.Machine("1").Images, Snapshot{URL: "x"})

	c := d.Clone()
	c.Machine("1").Images[0].URL = "changed"
	c.Machine("2")

	assert.Equal(t, "x", d.Machines["1"].Images[0].URL)
	assert.Len(t, d.Machines, 1)
	assert.Nil(t, (*DraftShift)(nil).Clone())
}

func TestMachineSnapshotScan(t *testing.T) {
	var snap MachineSnapshot
	require.NoError(t, snap.Scan([]byte(`{"1":{"in":"100","out":"40"}}`)))
	assert.True(t, snap["1"].In.Equal(decimal.NewFromInt(100)))

	var images ShiftImages
	require.NoError(t, images.Scan(nil))
	assert.Error(t, images.Scan(42))
}
