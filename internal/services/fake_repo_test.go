package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gameroom-backend/internal/database"
	"gameroom-backend/internal/models"
)

// fakeRepo is a map-backed database.Repository. InTx snapshots the state and
// restores it when fn fails, so atomicity is observable in tests.
type fakeRepo struct {
	mu    *sync.Mutex
	st    *fakeState
	fails map[string]error
	inTx  bool
}

type fakeState struct {
	owners    map[string]models.Owner
	customers map[string]models.Customer
	visits    []models.Visit
	shifts    map[string]models.ShiftRecord
	expenses  map[string]models.Expense
	balances  map[string]decimal.Decimal
	entries   []models.BalanceEntry
}

// stored rounds like the NUMERIC(14,2) money columns
func stored(d decimal.Decimal) decimal.Decimal {
	return d.Round(models.MoneyPlaces)
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		mu: &sync.Mutex{},
		st: &fakeState{
			owners:    map[string]models.Owner{},
			customers: map[string]models.Customer{},
			shifts:    map[string]models.ShiftRecord{},
			expenses:  map[string]models.Expense{},
			balances:  map[string]decimal.Decimal{},
		},
		fails: map[string]error{},
	}
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		owners:    make(map[string]models.Owner, len(s.owners)),
		customers: make(map[string]models.Customer, len(s.customers)),
		visits:    append([]models.Visit(nil), s.visits...),
		shifts:    make(map[string]models.ShiftRecord, len(s.shifts)),
		expenses:  make(map[string]models.Expense, len(s.expenses)),
		balances:  make(map[string]decimal.Decimal, len(s.balances)),
		entries:   append([]models.BalanceEntry(nil), s.entries...),
	}
	for k, v := range s.owners {
		c.owners[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.shifts {
		c.shifts[k] = v
	}
	for k, v := range s.expenses {
		c.expenses[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

func key(parts ...string) string { return strings.Join(parts, "|") }

func (r *fakeRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *fakeRepo) fail(method string) error {
	return r.fails[method]
}

func (r *fakeRepo) InTx(ctx context.Context, fn func(database.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.st.clone()
	tx := &fakeRepo{mu: r.mu, st: r.st, fails: r.fails, inTx: true}
	if err := fn(tx); err != nil {
		*r.st = *snapshot
		return err
	}
	return nil
}

func (r *fakeRepo) GetOwner(ctx context.Context, id string) (*models.Owner, error) {
	defer r.lock()()
	o, ok := r.st.owners[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &o, nil
}

func (r *fakeRepo) GetOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	defer r.lock()()
	for _, o := range r.st.owners {
		if strings.EqualFold(o.Email, email) {
			return &o, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *fakeRepo) CreateOwner(ctx context.Context, owner *models.Owner) error {
	defer r.lock()()
	r.st.owners[owner.ID] = *owner
	return nil
}

func (r *fakeRepo) EnsureOwner(ctx context.Context, id, email string) error {
	defer r.lock()()
	if _, ok := r.st.owners[id]; !ok {
		r.st.owners[id] = models.Owner{ID: id, Email: email, Name: email, Role: models.RoleOwner}
	}
	return nil
}

func (r *fakeRepo) UpdateOwnerPassword(ctx context.Context, id, passwordHash string) error {
	defer r.lock()()
	o, ok := r.st.owners[id]
	if !ok {
		return database.ErrNotFound
	}
	o.Password = passwordHash
	r.st.owners[id] = o
	return nil
}

func (r *fakeRepo) UpdateReportingPassword(ctx context.Context, id string, hash *string) error {
	defer r.lock()()
	o, ok := r.st.owners[id]
	if !ok {
		return database.ErrNotFound
	}
	o.ReportingPasswordHash = hash
	r.st.owners[id] = o
	return nil
}

func (r *fakeRepo) ListOwnerIDs(ctx context.Context) ([]string, error) {
	defer r.lock()()
	ids := make([]string, 0, len(r.st.owners))
	for id := range r.st.owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeRepo) GetCustomer(ctx context.Context, ownerID, phone string) (*models.Customer, error) {
	defer r.lock()()
	c, ok := r.st.customers[key(ownerID, phone)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &c, nil
}

func (r *fakeRepo) CreateCustomer(ctx context.Context, c *models.Customer) (bool, error) {
	defer r.lock()()
	if err := r.fail("CreateCustomer"); err != nil {
		return false, err
	}
	k := key(c.OwnerID, c.Phone)
	if _, ok := r.st.customers[k]; ok {
		return false, nil
	}
	r.st.customers[k] = *c
	return true, nil
}

func (r *fakeRepo) ListCustomers(ctx context.Context, ownerID, search string) ([]models.Customer, error) {
	defer r.lock()()
	out := []models.Customer{}
	for _, c := range r.st.customers {
		if c.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(c.Phone, search) && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRepo) ListCustomerPhones(ctx context.Context, ownerID string) ([]string, error) {
	defer r.lock()()
	var phones []string
	for _, c := range r.st.customers {
		if c.OwnerID == ownerID {
			phones = append(phones, c.Phone)
		}
	}
	sort.Strings(phones)
	return phones, nil
}

func (r *fakeRepo) GetLatestVisit(ctx context.Context, ownerID, phone string) (*models.Visit, error) {
	defer r.lock()()
	var latest *models.Visit
	for i := range r.st.visits {
		v := r.st.visits[i]
		if v.OwnerID != ownerID || v.Phone != phone {
			continue
		}
		if latest == nil || v.Timestamp.After(latest.Timestamp) {
			latest = &v
		}
	}
	if latest == nil {
		return nil, database.ErrNotFound
	}
	return latest, nil
}

func (r *fakeRepo) InsertVisit(ctx context.Context, v *models.Visit) error {
	defer r.lock()()
	if err := r.fail("InsertVisit"); err != nil {
		return err
	}
	row := *v
	row.MatchAmount = stored(row.MatchAmount)
	r.st.visits = append(r.st.visits, row)
	return nil
}

func (r *fakeRepo) ListVisitsBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.Visit, error) {
	defer r.lock()()
	out := []models.Visit{}
	for _, v := range r.st.visits {
		if v.OwnerID == ownerID && !v.Timestamp.Before(from) && !v.Timestamp.After(to) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *fakeRepo) SumMatchedBetween(ctx context.Context, ownerID string, from, to time.Time) (decimal.Decimal, error) {
	defer r.lock()()
	total := decimal.Zero
	for _, v := range r.st.visits {
		if v.OwnerID == ownerID && !v.Timestamp.Before(from) && !v.Timestamp.After(to) {
			total = total.Add(v.MatchAmount)
		}
	}
	return total, nil
}

func (r *fakeRepo) GetShift(ctx context.Context, ownerID, id string) (*models.ShiftRecord, error) {
	defer r.lock()()
	s, ok := r.st.shifts[key(ownerID, id)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (r *fakeRepo) InsertShift(ctx context.Context, rec *models.ShiftRecord) error {
	defer r.lock()()
	if err := r.fail("InsertShift"); err != nil {
		return err
	}
	row := *rec
	for _, m := range []*decimal.Decimal{&row.TotalIn, &row.TotalOut, &row.ProfitOrLoss, &row.TotalMatchedAmount, &row.NetImpact, &row.CarryForward} {
		*m = stored(*m)
	}
	r.st.shifts[key(rec.OwnerID, rec.ID)] = row
	return nil
}

func (r *fakeRepo) ListShiftsEndedBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.ShiftRecord, error) {
	defer r.lock()()
	out := []models.ShiftRecord{}
	for _, s := range r.st.shifts {
		if s.OwnerID == ownerID && !s.EndTime.Before(from) && s.EndTime.Before(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.After(out[j].EndTime) })
	return out, nil
}

func (r *fakeRepo) GetExpense(ctx context.Context, ownerID, id string) (*models.Expense, error) {
	defer r.lock()()
	e, ok := r.st.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, database.ErrNotFound
	}
	return &e, nil
}

func (r *fakeRepo) InsertExpense(ctx context.Context, e *models.Expense) error {
	defer r.lock()()
	if err := r.fail("InsertExpense"); err != nil {
		return err
	}
	row := *e
	row.Amount = stored(row.Amount)
	r.st.expenses[e.ID] = row
	return nil
}

func (r *fakeRepo) UpdateExpense(ctx context.Context, e *models.Expense) error {
	defer r.lock()()
	if err := r.fail("UpdateExpense"); err != nil {
		return err
	}
	if cur, ok := r.st.expenses[e.ID]; !ok || cur.OwnerID != e.OwnerID {
		return database.ErrNotFound
	}
	row := *e
	row.Amount = stored(row.Amount)
	r.st.expenses[e.ID] = row
	return nil
}

func (r *fakeRepo) DeleteExpense(ctx context.Context, ownerID, id string) error {
	defer r.lock()()
	if err := r.fail("DeleteExpense"); err != nil {
		return err
	}
	if cur, ok := r.st.expenses[id]; !ok || cur.OwnerID != ownerID {
		return database.ErrNotFound
	}
	delete(r.st.expenses, id)
	return nil
}

func (r *fakeRepo) ListExpensesBetween(ctx context.Context, ownerID string, firstDay, lastDay time.Time) ([]models.Expense, error) {
	defer r.lock()()
	out := []models.Expense{}
	for _, e := range r.st.expenses {
		if e.OwnerID == ownerID && !e.Date.Before(firstDay) && !e.Date.After(lastDay) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *fakeRepo) GetCachedBalance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	defer r.lock()()
	return r.st.balances[ownerID], nil
}

func (r *fakeRepo) LockCachedBalance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	defer r.lock()()
	return r.st.balances[ownerID], nil
}

func (r *fakeRepo) SetCachedBalance(ctx context.Context, ownerID string, balance decimal.Decimal) error {
	defer r.lock()()
	if err := r.fail("SetCachedBalance"); err != nil {
		return err
	}
	r.st.balances[ownerID] = stored(balance)
	return nil
}

func (r *fakeRepo) AppendBalanceEntry(ctx context.Context, e *models.BalanceEntry) error {
	defer r.lock()()
	if err := r.fail("AppendBalanceEntry"); err != nil {
		return err
	}
	row := *e
	row.Amount = stored(row.Amount)
	row.NewBalance = stored(row.NewBalance)
	r.st.entries = append(r.st.entries, row)
	return nil
}

func (r *fakeRepo) ListBalanceEntries(ctx context.Context, ownerID string, limit, offset int) ([]models.BalanceEntry, error) {
	defer r.lock()()
	var owned []models.BalanceEntry
	for i := len(r.st.entries) - 1; i >= 0; i-- {
		if r.st.entries[i].OwnerID == ownerID {
			owned = append(owned, r.st.entries[i])
		}
	}
	if limit == 0 {
		return owned, nil
	}
	if offset >= len(owned) {
		return []models.BalanceEntry{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

func (r *fakeRepo) ListAllBalanceEntriesAscending(ctx context.Context, ownerID string) ([]models.BalanceEntry, error) {
	defer r.lock()()
	out := []models.BalanceEntry{}
	for _, e := range r.st.entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

// entriesFor returns an owner's history oldest first
func (r *fakeRepo) entriesFor(ownerID string) []models.BalanceEntry {
	entries, _ := r.ListAllBalanceEntriesAscending(context.Background(), ownerID)
	return entries
}

func (r *fakeRepo) balanceOf(ownerID string) decimal.Decimal {
	b, _ := r.GetCachedBalance(context.Background(), ownerID)
	return b
}
