package handlers

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/burncare/apiserver/internal/store"
	"github.com/burncare/apiserver/types"
)

// memoryDB keeps accounts and results in maps and implements every
// repository interface the services need.
type memoryDB struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]types.Account
	burnout  []types.BurnoutResult
	fatigue  []types.FatigueResult
}

func newMemoryDB() *memoryDB {
	return &memoryDB{accounts: map[int64]types.Account{}}
}

type memAccounts struct{ db *memoryDB }

func (m memAccounts) List(context.Context) ([]types.Account, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := make([]types.Account, 0, len(m.db.accounts))
	for _, a := range m.db.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memAccounts) GetByID(_ context.Context, id int64) (types.Account, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (m memAccounts) find(match func(types.Account) bool) (types.Account, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, a := range m.db.accounts {
		if match(a) {
			return a, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (m memAccounts) GetByEmail(_ context.Context, email string) (types.Account, error) {
	return m.find(func(a types.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (m memAccounts) GetByExternalID(_ context.Context, externalID string) (types.Account, error) {
	return m.find(func(a types.Account) bool { return a.ExternalID == externalID })
}

func (m memAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m memAccounts) Create(_ context.Context, account types.Account) (types.Account, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, a := range m.db.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return types.Account{}, store.ErrDuplicate
		}
	}
	m.db.nextID++
	account.ID = m.db.nextID
	m.db.accounts[account.ID] = account
	return account, nil
}

func (m memAccounts) Update(_ context.Context, account types.Account) (types.Account, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.accounts[account.ID]; !ok {
		return types.Account{}, store.ErrNotFound
	}
	for id, a := range m.db.accounts {
		if id != account.ID && strings.EqualFold(a.Email, account.Email) {
			return types.Account{}, store.ErrDuplicate
		}
	}
	m.db.accounts[account.ID] = account
	return account, nil
}

func (m memAccounts) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.db.accounts, id)
	return nil
}

func (m memAccounts) Count(context.Context) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return int64(len(m.db.accounts)), nil
}

type memBurnout struct{ db *memoryDB }

func (m memBurnout) Create(_ context.Context, r types.BurnoutResult) (types.BurnoutResult, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r.ID = int64(len(m.db.burnout) + 1)
	m.db.burnout = append(m.db.burnout, r)
	return r, nil
}

func (m memBurnout) ListByAccount(_ context.Context, accountID int64) ([]types.BurnoutResult, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []types.BurnoutResult{}
	for i := len(m.db.burnout) - 1; i >= 0; i-- {
		if m.db.burnout[i].AccountID == accountID {
			out = append(out, m.db.burnout[i])
		}
	}
	return out, nil
}

func (m memBurnout) DeleteByAccount(_ context.Context, accountID int64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var kept []types.BurnoutResult
	var n int64
	for _, r := range m.db.burnout {
		if r.AccountID == accountID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.db.burnout = kept
	return n, nil
}

func (m memBurnout) Count(context.Context) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return int64(len(m.db.burnout)), nil
}

func (m memBurnout) CountByRiskLabel(_ context.Context, label string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, r := range m.db.burnout {
		if r.RiskLabel == label {
			n++
		}
	}
	return n, nil
}

func (m memBurnout) AverageScore(context.Context) (float64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if len(m.db.burnout) == 0 {
		return 0, nil
	}
	var sum int
	for _, r := range m.db.burnout {
		sum += r.Score
	}
	return float64(sum) / float64(len(m.db.burnout)), nil
}

type memFatigue struct{ db *memoryDB }

func (m memFatigue) Create(_ context.Context, r types.FatigueResult) (types.FatigueResult, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r.ID = int64(len(m.db.fatigue) + 1)
	m.db.fatigue = append(m.db.fatigue, r)
	return r, nil
}

func (m memFatigue) ListByOwner(_ context.Context, ownerID string) ([]types.FatigueResult, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []types.FatigueResult{}
	for i := len(m.db.fatigue) - 1; i >= 0; i-- {
		if m.db.fatigue[i].OwnerID == ownerID {
			out = append(out, m.db.fatigue[i])
		}
	}
	return out, nil
}

func (m memFatigue) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var kept []types.FatigueResult
	var n int64
	for _, r := range m.db.fatigue {
		if r.OwnerID == ownerID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.db.fatigue = kept
	return n, nil
}

func (m memFatigue) Count(context.Context) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return int64(len(m.db.fatigue)), nil
}

func (m memFatigue) CountByRiskLabel(_ context.Context, label string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, r := range m.db.fatigue {
		if r.RiskLabel == label {
			n++
		}
	}
	return n, nil
}

func (m memFatigue) AverageScore(context.Context) (float64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if len(m.db.fatigue) == 0 {
		return 0, nil
	}
	var sum int
	for _, r := range m.db.fatigue {
		sum += r.Score
	}
	return float64(sum) / float64(len(m.db.fatigue)), nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) Bucket() string { return "burncare" }

type countingMetrics struct {
	mu            sync.Mutex
	registrations map[string]int
	logins        map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{registrations: map[string]int{}, logins: map[string]int{}}
}

func (c *countingMetrics) ObserveRegistration(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations[outcome]++
}

func (c *countingMetrics) ObserveLogin(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logins[outcome]++
}
