// Package repairtest provides an in-memory repair.Store for tests and local tooling.
package repairtest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"repairshop/internal/events"
	"repairshop/internal/repair"
)

// ErrInjected is returned by a Tx method named in MemStore.FailOn.
var ErrInjected = errors.New("injected store failure")

// MemStore keeps all rows in maps. WithTx holds a single lock and restores a
// snapshot when fn fails, which gives the same all-or-nothing behaviour as a
// database transaction.
type MemStore struct {
	mu    sync.Mutex
	state state

	// FailOn makes the named Tx method (e.g. "UpdateCaseStatus") fail.
	FailOn string
}

type state struct {
	nextID     int64
	clients    map[int64]repair.Client
	cases      map[int64]repair.Case
	equipment  map[int64][]repair.Equipment
	budgets    []repair.Budget
	work       map[int64]repair.WorkAssignment
	deliveries map[int64]repair.Delivery
	events     []events.Event
	sequences  map[string]int
}

func New() *MemStore {
	return &MemStore{state: state{
		clients:    map[int64]repair.Client{},
		cases:      map[int64]repair.Case{},
		equipment:  map[int64][]repair.Equipment{},
		work:       map[int64]repair.WorkAssignment{},
		deliveries: map[int64]repair.Delivery{},
		sequences:  map[string]int{},
	}}
}

func (s state) clone() state {
	out := state{
		nextID:     s.nextID,
		clients:    make(map[int64]repair.Client, len(s.clients)),
		cases:      make(map[int64]repair.Case, len(s.cases)),
		equipment:  make(map[int64][]repair.Equipment, len(s.equipment)),
		budgets:    append([]repair.Budget(nil), s.budgets...),
		work:       make(map[int64]repair.WorkAssignment, len(s.work)),
		deliveries: make(map[int64]repair.Delivery, len(s.deliveries)),
		events:     append([]events.Event(nil), s.events...),
		sequences:  make(map[string]int, len(s.sequences)),
	}
	for k, v := range s.clients {
		out.clients[k] = v
	}
	for k, v := range s.cases {
		out.cases[k] = v
	}
	for k, v := range s.equipment {
		out.equipment[k] = append([]repair.Equipment(nil), v...)
	}
	for k, v := range s.work {
		out.work[k] = v
	}
	for k, v := range s.deliveries {
		out.deliveries[k] = v
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	return out
}

func (s *MemStore) WithTx(ctx context.Context, fn func(tx repair.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memTx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemStore) GetCase(ctx context.Context, id int64) (*repair.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.cases[id]
	if !ok {
		return nil, repair.ErrNotFound
	}
	return &c, nil
}

func (s *MemStore) ListCases(ctx context.Context, f repair.ListFilter) ([]repair.CaseSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []repair.CaseSummary
	for _, c := range s.sortedCases() {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		sum := repair.CaseSummary{Case: c}
		if cl, ok := s.state.clients[c.ClientID]; ok {
			sum.ClientName = cl.FullName()
		}
		if eq := s.state.equipment[c.ID]; len(eq) > 0 {
			sum.Equipment = eq[0].Type
			sum.Brand = eq[0].Brand
		}
		out = append(out, sum)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemStore) LoadBundle(ctx context.Context, id int64) (*repair.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.cases[id]
	if !ok {
		return nil, repair.ErrNotFound
	}
	b := &repair.Bundle{Case: c}
	if cl, ok := s.state.clients[c.ClientID]; ok {
		b.Client = &cl
	}
	b.Equipment = append([]repair.Equipment(nil), s.state.equipment[id]...)
	b.Budget = s.activeBudget(id)
	if w, ok := s.state.work[id]; ok {
		b.Work = &w
	}
	if d, ok := s.state.deliveries[id]; ok {
		b.Delivery = &d
	}
	return b, nil
}

func (s *MemStore) FindByEntryNumbers(ctx context.Context, candidates []string) (*repair.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.sortedCases() {
		for _, cand := range candidates {
			if c.EntryNumber == cand {
				return &c, nil
			}
		}
	}
	return nil, repair.ErrNotFound
}

func (s *MemStore) SearchEntryNumber(ctx context.Context, q repair.EntrySearch) (*repair.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match := func(entry string) bool {
		return strings.Contains(strings.ToUpper(entry), strings.ToUpper(q.Substring))
	}
	if q.Pattern != "" {
		re, err := regexp.Compile("(?i)" + q.Pattern)
		if err != nil {
			return nil, err
		}
		match = re.MatchString
	}
	for _, c := range s.sortedCases() {
		if match(c.EntryNumber) {
			return &c, nil
		}
	}
	return nil, repair.ErrNotFound
}

func (s *MemStore) Stats(ctx context.Context, from, to time.Time) (*repair.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := func(t *time.Time) bool {
		return t != nil && !t.Before(from) && t.Before(to)
	}
	st := &repair.Stats{ByStatus: map[repair.Status]int{}, Week: repair.WeekStats{From: from, To: to}}
	for _, c := range s.state.cases {
		st.ByStatus[c.Status]++
		created := c.CreatedAt
		if in(&created) {
			st.Week.Intakes++
		}
		if in(c.DeliveredAt) {
			st.Week.Delivered++
		}
		if in(c.InvoicedAt) {
			for _, b := range s.state.budgets {
				if b.CaseID == c.ID && b.SupersededAt == nil && !b.Rejected && b.Total.Valid {
					st.Week.Invoiced = st.Week.Invoiced.Add(b.Total.Decimal)
				}
			}
		}
	}
	for _, d := range s.state.deliveries {
		if d.Status == repair.DeliveryEntregado {
			st.Delivered++
		}
	}
	return st, nil
}

func (s *MemStore) GetClient(ctx context.Context, id int64) (*repair.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.clients[id]
	if !ok {
		return nil, repair.ErrClientNotFound
	}
	return &c, nil
}

func (s *MemStore) ListClients(ctx context.Context, search string) ([]repair.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search = strings.ToLower(strings.TrimSpace(search))
	var out []repair.Client
	for _, c := range s.state.clients {
		if search == "" ||
			strings.Contains(strings.ToLower(c.Name), search) ||
			strings.Contains(strings.ToLower(c.Surname), search) ||
			strings.Contains(strings.ToLower(c.TaxID), search) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out, nil
}

func (s *MemStore) ListEvents(ctx context.Context, caseID int64) ([]events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.state.events {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Budgets returns every quote of a case, superseded ones included, oldest first.
func (s *MemStore) Budgets(caseID int64) []repair.Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repair.Budget
	for _, b := range s.state.budgets {
		if b.CaseID == caseID {
			out = append(out, b)
		}
	}
	return out
}

// sortedCases orders by created_at DESC, id DESC. Callers hold the lock.
func (s *MemStore) sortedCases() []repair.Case {
	out := make([]repair.Case, 0, len(s.state.cases))
	for _, c := range s.state.cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *MemStore) activeBudget(caseID int64) *repair.Budget {
	for i := len(s.state.budgets) - 1; i >= 0; i-- {
		b := s.state.budgets[i]
		if b.CaseID == caseID && b.SupersededAt == nil {
			return &b
		}
	}
	return nil
}

type memTx struct {
	s *MemStore
}

func (t *memTx) st() *state { return &t.s.state }

func (t *memTx) fail(op string) error {
	if t.s.FailOn == op {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func (t *memTx) id() int64 {
	t.st().nextID++
	return t.st().nextID
}

func (t *memTx) NextSequence(ctx context.Context, kind string, year int) (int, error) {
	if err := t.fail("NextSequence"); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("%s/%d", kind, year)
	t.st().sequences[key]++
	return t.st().sequences[key], nil
}

func (t *memTx) InsertClient(ctx context.Context, c *repair.Client) error {
	if err := t.fail("InsertClient"); err != nil {
		return err
	}
	c.ID = t.id()
	t.st().clients[c.ID] = *c
	return nil
}

func (t *memTx) UpdateClient(ctx context.Context, c *repair.Client) error {
	if err := t.fail("UpdateClient"); err != nil {
		return err
	}
	if _, ok := t.st().clients[c.ID]; !ok {
		return repair.ErrClientNotFound
	}
	t.st().clients[c.ID] = *c
	return nil
}

func (t *memTx) GetClient(ctx context.Context, id int64) (*repair.Client, error) {
	c, ok := t.st().clients[id]
	if !ok {
		return nil, repair.ErrClientNotFound
	}
	return &c, nil
}

func (t *memTx) InsertCase(ctx context.Context, c *repair.Case) error {
	if err := t.fail("InsertCase"); err != nil {
		return err
	}
	for _, existing := range t.st().cases {
		if existing.EntryNumber == c.EntryNumber {
			return fmt.Errorf("duplicate entry number %s", c.EntryNumber)
		}
	}
	c.ID = t.id()
	t.st().cases[c.ID] = *c
	return nil
}

func (t *memTx) GetCaseForUpdate(ctx context.Context, id int64) (*repair.Case, error) {
	c, ok := t.st().cases[id]
	if !ok {
		return nil, repair.ErrNotFound
	}
	return &c, nil
}

func (t *memTx) UpdateCaseStatus(ctx context.Context, id int64, status repair.Status, at time.Time) error {
	if err := t.fail("UpdateCaseStatus"); err != nil {
		return err
	}
	if _, err := repair.ParseStatus(string(status)); err != nil {
		return err
	}
	c, ok := t.st().cases[id]
	if !ok {
		return repair.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = at
	t.st().cases[id] = c
	return nil
}

func (t *memTx) SetDelivered(ctx context.Context, id int64, at time.Time) error {
	c, ok := t.st().cases[id]
	if !ok {
		return repair.ErrNotFound
	}
	c.DeliveredAt = &at
	c.UpdatedAt = at
	t.st().cases[id] = c
	return nil
}

func (t *memTx) SetInvoiceNumber(ctx context.Context, id int64, number string, at time.Time) error {
	c, ok := t.st().cases[id]
	if !ok {
		return repair.ErrNotFound
	}
	c.InvoiceNumber = number
	c.InvoicedAt = &at
	c.UpdatedAt = at
	t.st().cases[id] = c
	return nil
}

func (t *memTx) DeleteCase(ctx context.Context, id int64) error {
	if err := t.fail("DeleteCase"); err != nil {
		return err
	}
	st := t.st()
	if _, ok := st.cases[id]; !ok {
		return repair.ErrNotFound
	}
	delete(st.cases, id)
	delete(st.equipment, id)
	delete(st.work, id)
	delete(st.deliveries, id)
	budgets := st.budgets[:0]
	for _, b := range st.budgets {
		if b.CaseID != id {
			budgets = append(budgets, b)
		}
	}
	st.budgets = budgets
	evts := st.events[:0]
	for _, e := range st.events {
		if e.CaseID != id {
			evts = append(evts, e)
		}
	}
	st.events = evts
	return nil
}

func (t *memTx) InsertEquipment(ctx context.Context, items []repair.Equipment) error {
	if err := t.fail("InsertEquipment"); err != nil {
		return err
	}
	for i := range items {
		items[i].ID = t.id()
		t.st().equipment[items[i].CaseID] = append(t.st().equipment[items[i].CaseID], items[i])
	}
	return nil
}

func (t *memTx) ListEquipment(ctx context.Context, caseID int64) ([]repair.Equipment, error) {
	return append([]repair.Equipment(nil), t.st().equipment[caseID]...), nil
}

func (t *memTx) ActiveBudget(ctx context.Context, caseID int64) (*repair.Budget, error) {
	return t.s.activeBudget(caseID), nil
}

func (t *memTx) InsertBudget(ctx context.Context, b *repair.Budget) error {
	if err := t.fail("InsertBudget"); err != nil {
		return err
	}
	if t.s.activeBudget(b.CaseID) != nil {
		return fmt.Errorf("case %d already has an active budget", b.CaseID)
	}
	b.ID = t.id()
	t.st().budgets = append(t.st().budgets, *b)
	return nil
}

func (t *memTx) SupersedeBudget(ctx context.Context, id int64, at time.Time) error {
	for i := range t.st().budgets {
		if t.st().budgets[i].ID == id && t.st().budgets[i].SupersededAt == nil {
			t.st().budgets[i].SupersededAt = &at
			return nil
		}
	}
	return repair.ErrNotFound
}

func (t *memTx) UpdateBudgetFlags(ctx context.Context, b *repair.Budget) error {
	if err := t.fail("UpdateBudgetFlags"); err != nil {
		return err
	}
	for i := range t.st().budgets {
		if t.st().budgets[i].ID == b.ID {
			t.st().budgets[i].DiagnosticPaid = b.DiagnosticPaid
			t.st().budgets[i].DepositPaid = b.DepositPaid
			t.st().budgets[i].Rejected = b.Rejected
			return nil
		}
	}
	return repair.ErrNotFound
}

func (t *memTx) GetWork(ctx context.Context, caseID int64) (*repair.WorkAssignment, error) {
	w, ok := t.st().work[caseID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (t *memTx) UpsertWork(ctx context.Context, w *repair.WorkAssignment) error {
	if err := t.fail("UpsertWork"); err != nil {
		return err
	}
	t.st().work[w.CaseID] = *w
	return nil
}

func (t *memTx) GetDelivery(ctx context.Context, caseID int64) (*repair.Delivery, error) {
	d, ok := t.st().deliveries[caseID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (t *memTx) UpsertDelivery(ctx context.Context, d *repair.Delivery) error {
	if err := t.fail("UpsertDelivery"); err != nil {
		return err
	}
	t.st().deliveries[d.CaseID] = *d
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, e events.Event) error {
	if err := t.fail("AppendEvent"); err != nil {
		return err
	}
	e.ID = t.id()
	t.st().events = append(t.st().events, e)
	return nil
}
