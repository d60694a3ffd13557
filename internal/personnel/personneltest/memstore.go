// Package personneltest provides an in-memory personnel.Store for tests.
package personneltest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"repairshop/internal/personnel"
)

// ErrInjected is returned when MemStore.FailPasswordWrite is set.
var ErrInjected = errors.New("injected store failure")

type MemStore struct {
	mu     sync.Mutex
	staff  map[string]*personnel.Staff // by email
	resets map[string]*personnel.ResetToken
	now    time.Time

	// FailPasswordWrite makes ResetPassword fail after the token checks,
	// leaving token and hash untouched like a rolled back transaction.
	FailPasswordWrite bool
}

func New() *MemStore {
	return &MemStore{
		staff:  map[string]*personnel.Staff{},
		resets: map[string]*personnel.ResetToken{},
		now:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Seed stores s with a bcrypt hash of password (empty password leaves no hash).
func (m *MemStore) Seed(email, name string, role personnel.Role, active bool, password string) *personnel.Staff {
	st := &personnel.Staff{Email: email, FullName: name, Role: role, Active: active}
	if password != "" {
		hash, err := personnel.HashPassword(password)
		if err != nil {
			panic(err)
		}
		st.PasswordHash = hash
	}
	out, _ := m.Upsert(context.Background(), st)
	return out
}

// Resets returns the reset tokens issued for staffID.
func (m *MemStore) Resets(staffID string) []personnel.ResetToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []personnel.ResetToken
	for _, t := range m.resets {
		if t.StaffID == staffID {
			out = append(out, *t)
		}
	}
	return out
}

func (m *MemStore) List(ctx context.Context) ([]personnel.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]personnel.Staff, 0, len(m.staff))
	for _, s := range m.staff {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *MemStore) GetByID(ctx context.Context, id string) (*personnel.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.staff {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, personnel.ErrNotFound
}

func (m *MemStore) GetByEmail(ctx context.Context, email string) (*personnel.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.staff[personnel.NormalizeEmail(email)]
	if !ok {
		return nil, personnel.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemStore) Upsert(ctx context.Context, in *personnel.Staff) (*personnel.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := personnel.NormalizeEmail(in.Email)
	m.now = m.now.Add(time.Second)

	cur, ok := m.staff[email]
	if !ok {
		cur = &personnel.Staff{ID: uuid.NewString(), Email: email, CreatedAt: m.now}
		m.staff[email] = cur
	}
	cur.FullName = in.FullName
	cur.Role = in.Role
	cur.Active = in.Active
	if in.PasswordHash != "" {
		cur.PasswordHash = in.PasswordHash
	}
	cur.UpdatedAt = m.now
	cp := *cur
	return &cp, nil
}

func (m *MemStore) Delete(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = personnel.NormalizeEmail(email)
	target, ok := m.staff[email]
	if !ok {
		return nil
	}
	if target.Role == personnel.RoleEncargado && target.Active {
		n := 0
		for _, s := range m.staff {
			if s.Role == personnel.RoleEncargado && s.Active {
				n++
			}
		}
		if n <= 1 {
			return personnel.ErrLastManager
		}
	}
	delete(m.staff, email)
	return nil
}

func (m *MemStore) CreateResetToken(ctx context.Context, t personnel.ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := t
	m.resets[t.Token] = &cp
	return nil
}

func (m *MemStore) ResetPassword(ctx context.Context, token, hash string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.resets[token]
	if !ok || t.UsedAt != nil || !t.ExpiresAt.After(now) {
		return "", personnel.ErrResetInvalid
	}
	var owner *personnel.Staff
	for _, s := range m.staff {
		if s.ID == t.StaffID {
			owner = s
		}
	}
	if owner == nil {
		return "", personnel.ErrNotFound
	}
	if m.FailPasswordWrite {
		return "", ErrInjected
	}
	owner.PasswordHash = hash
	used := now
	t.UsedAt = &used
	return t.StaffID, nil
}
