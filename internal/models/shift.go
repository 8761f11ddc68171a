package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ShiftPhase is the lifecycle phase of a draft shift
type ShiftPhase string

const (
	ShiftPhaseNotStarted ShiftPhase = "NOT_STARTED" // No draft stored
	ShiftPhaseActive     ShiftPhase = "ACTIVE"      // Machines being counted
	ShiftPhaseFinalizing ShiftPhase = "FINALIZING"  // Review screen before close
)

// Snapshot is a photo of a machine's meter taken during a shift
type Snapshot struct {
	URL     string    `json:"url"`
	TakenAt time.Time `json:"taken_at"`
}

// MachineEntry holds the raw operator input for one machine.
// In and Out stay as typed text until the shift is closed.
type MachineEntry struct {
	In     string     `json:"in"`
	Out    string     `json:"out"`
	Images []Snapshot `json:"images"`
}

// DraftShift is the mutable, not-yet-closed shift of one signed-in user
type DraftShift struct {
	UserID       string                   `json:"user_id"`
	EmployeeName string                   `json:"employee_name"`
	ShiftID      string                   `json:"shift_id"`
	StartTime    time.Time                `json:"start_time"`
	Machines     map[string]*MachineEntry `json:"machines"`
	Notes        string                   `json:"notes"`
	Phase        ShiftPhase               `json:"phase"`
}

// NewDraftShift starts a draft for userID at startTime
func NewDraftShift(userID, employeeName string, startTime time.Time) *DraftShift {
	return &DraftShift{
		UserID:       userID,
		EmployeeName: employeeName,
		ShiftID:      ShiftIDFor(employeeName, startTime),
		StartTime:    startTime,
		Machines:     make(map[string]*MachineEntry),
		Phase:        ShiftPhaseActive,
	}
}

// Clone returns a deep copy so stores never share maps with callers
func (d *DraftShift) Clone() *DraftShift {
	if d == nil {
		return nil
	}
	out := *d
	out.Machines = make(map[string]*MachineEntry, len(d.Machines))
	for label, m := range d.Machines {
		mc := *m
		mc.Images = append([]Snapshot(nil), m.Images...)
		out.Machines[label] = &mc
	}
	return &out
}

// Machine returns the entry for label, creating it when missing
func (d *DraftShift) Machine(label string) *MachineEntry {
	if d.Machines == nil {
		d.Machines = make(map[string]*MachineEntry)
	}
	m, ok := d.Machines[label]
	if !ok {
		m = &MachineEntry{}
		d.Machines[label] = m
	}
	return m
}

// ShiftIDFor builds `<slug(employeeName)>_<epochMillis>`
func ShiftIDFor(employeeName string, startTime time.Time) string {
	return fmt.Sprintf("%s_%d", Slug(employeeName), startTime.UnixMilli())
}

// Slug lowercases s and collapses every run of non-alphanumerics into a single dash
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "shift"
	}
	return slug
}

// ParseAmount coerces operator text into a non-negative amount.
// Blank, non-numeric and negative input all become zero.
// MoneyPlaces is the scale of every stored amount (NUMERIC(14,2) columns)
const MoneyPlaces = 2

// IsWholeCents reports whether d has no digits below a cent
func IsWholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces))
}

func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(raw), "$"), ",", ""))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(MoneyPlaces)
}

// MachineTotals is the closed-shift snapshot of a machine's cash
type MachineTotals struct {
	In  decimal.Decimal `json:"in"`
	Out decimal.Decimal `json:"out"`
}

// MachineSnapshot is stored as JSONB on the shift record
type MachineSnapshot map[string]MachineTotals

func (m MachineSnapshot) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *MachineSnapshot) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// ShiftImage is one flattened machine photo on a closed shift
type ShiftImage struct {
	Machine string    `json:"machine"`
	URL     string    `json:"url"`
	TakenAt time.Time `json:"taken_at"`
}

// ShiftImages is stored as JSONB on the shift record
type ShiftImages []ShiftImage

func (s ShiftImages) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *ShiftImages) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// ShiftTotals are the pure-function results of a set of machine entries
type ShiftTotals struct {
	Machines     MachineSnapshot
	TotalIn      decimal.Decimal
	TotalOut     decimal.Decimal
	ProfitOrLoss decimal.Decimal
	HasData      bool
}

// ComputeTotals sums machine in/out. Label order does not affect the result.
func ComputeTotals(machines map[string]*MachineEntry) ShiftTotals {
	t := ShiftTotals{
		Machines: make(MachineSnapshot, len(machines)),
		TotalIn:  decimal.Zero,
		TotalOut: decimal.Zero,
	}
	for label, m := range machines {
		in, out := ParseAmount(m.In), ParseAmount(m.Out)
		t.Machines[label] = MachineTotals{In: in, Out: out}
		t.TotalIn = t.TotalIn.Add(in)
		t.TotalOut = t.TotalOut.Add(out)
		if in.IsPositive() || out.IsPositive() {
			t.HasData = true
		}
	}
	t.ProfitOrLoss = t.TotalIn.Sub(t.TotalOut)
	return t
}

// MachinesMissingSnapshots lists labels with cash activity but no photo, sorted
func MachinesMissingSnapshots(machines map[string]*MachineEntry) []string {
	var missing []string
	for label, m := range machines {
		active := ParseAmount(m.In).IsPositive() || ParseAmount(m.Out).IsPositive()
		if active && len(m.Images) == 0 {
			missing = append(missing, label)
		}
	}
	sort.Strings(missing)
	return missing
}

// FlattenImages turns per-machine snapshots into the record's image list
func FlattenImages(machines map[string]*MachineEntry) ShiftImages {
	labels := make([]string, 0, len(machines))
	for label := range machines {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	images := ShiftImages{}
	for _, label := range labels {
		for _, img := range machines[label].Images {
			images = append(images, ShiftImage{Machine: label, URL: img.URL, TakenAt: img.TakenAt})
		}
	}
	return images
}

// ShiftRecord is a closed shift. Never updated after insert.
type ShiftRecord struct {
	ID                 string          `json:"id" db:"id"`
	OwnerID            string          `json:"owner_id" db:"owner_id"`
	EmployeeName       string          `json:"employee_name" db:"employee_name"`
	StartTime          time.Time       `json:"start_time" db:"start_time"`
	EndTime            time.Time       `json:"end_time" db:"end_time"`
	Machines           MachineSnapshot `json:"machines" db:"machines"`
	Images             ShiftImages     `json:"images" db:"images"`
	TotalIn            decimal.Decimal `json:"total_in" db:"total_in"`
	TotalOut           decimal.Decimal `json:"total_out" db:"total_out"`
	ProfitOrLoss       decimal.Decimal `json:"profit_or_loss" db:"profit_or_loss"`
	TotalMatchedAmount decimal.Decimal `json:"total_matched_amount" db:"total_matched_amount"`
	NetImpact          decimal.Decimal `json:"net_impact" db:"net_impact"`
	CarryForward       decimal.Decimal `json:"carry_forward" db:"carry_forward"`
	Notes              string          `json:"notes" db:"notes"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
