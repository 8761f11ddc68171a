package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gameroom-backend/internal/logger"
	"gameroom-backend/internal/models"
)

const testOwner = "owner-1"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentEvent struct {
	OwnerID string
	Type    string
	Data    interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(ownerID, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{OwnerID: ownerID, Type: eventType, Data: data})
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Type == eventType {
			c++
		}
	}
	return c
}

// flakyDraftStore fails Delete a configurable number of times
type flakyDraftStore struct {
	*MemoryDraftStore
	deleteFailures int
}

func (s *flakyDraftStore) Delete(ctx context.Context, userID string) error {
	if s.deleteFailures > 0 {
		s.deleteFailures--
		return errors.New("draft storage unavailable")
	}
	return s.MemoryDraftStore.Delete(ctx, userID)
}

type testEnv struct {
	repo     *fakeRepo
	drafts   *MemoryDraftStore
	photos   *MemoryPhotoStore
	notifier *recordingNotifier
	clock    *testClock
	ledger   *BankLedger
	visits   *VisitLedger
	shifts   *ShiftService
	expenses *ExpenseService
	reports  *ReportService
}

func newTestEnv(start time.Time, requireSnapshots bool) *testEnv {
	env := &testEnv{
		repo:     newFakeRepo(),
		drafts:   NewMemoryDraftStore(),
		photos:   NewMemoryPhotoStore(),
		notifier: &recordingNotifier{},
		clock:    newTestClock(start),
	}
	log := logger.Discard()
	guard := NewMemorySubmitGuard()

	env.ledger = NewBankLedger(env.repo, env.notifier, log)
	env.ledger.now = env.clock.Now

	env.visits = NewVisitLedger(env.repo, env.photos, guard, env.notifier, log, time.UTC)
	env.visits.now = env.clock.Now

	env.shifts = NewShiftService(env.repo, env.drafts, env.photos, env.ledger, guard, env.notifier, log,
		ShiftServiceConfig{Location: time.UTC, RequireSnapshots: requireSnapshots})
	env.shifts.now = env.clock.Now

	env.expenses = NewExpenseService(env.repo, env.ledger, guard, env.notifier, log, time.UTC)
	env.expenses.now = env.clock.Now

	env.reports = NewReportService(env.repo, log, time.UTC)
	env.reports.now = env.clock.Now
	return env
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// runningSumHolds checks newBalance[i] = newBalance[i-1] + amount[i] from zero
// and that the cached balance equals the last entry
func runningSumHolds(entries []models.BalanceEntry, cached decimal.Decimal) bool {
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.Amount)
		if !running.Equal(e.NewBalance) {
			return false
		}
	}
	return running.Equal(cached)
}
