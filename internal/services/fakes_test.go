package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/burncare/apiserver/internal/identity"
	"github.com/burncare/apiserver/internal/store"
	"github.com/burncare/apiserver/types"
)

type fakeAccounts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]types.Account

	createErr error
	countErr  error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{rows: map[int64]types.Account{}}
}

func (f *fakeAccounts) List(context.Context) ([]types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Account, 0, len(f.rows))
	for _, a := range f.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) find(match func(types.Account) bool) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if match(a) {
			return a, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (types.Account, error) {
	return f.find(func(a types.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (f *fakeAccounts) GetByExternalID(_ context.Context, externalID string) (types.Account, error) {
	return f.find(func(a types.Account) bool { return a.ExternalID == externalID })
}

func (f *fakeAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeAccounts) Create(_ context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.Account{}, f.createErr
	}
	for _, a := range f.rows {
		if strings.EqualFold(a.Email, account.Email) {
			return types.Account{}, store.ErrDuplicate
		}
	}
	f.nextID++
	account.ID = f.nextID
	f.rows[account.ID] = account
	return account, nil
}

func (f *fakeAccounts) Update(_ context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.rows[account.ID]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	for id, a := range f.rows {
		if id != account.ID && strings.EqualFold(a.Email, account.Email) {
			return types.Account{}, store.ErrDuplicate
		}
	}
	account.ExternalID = current.ExternalID
	f.rows[account.ID] = account
	return account, nil
}

func (f *fakeAccounts) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeAccounts) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.rows)), nil
}

type fakeBurnout struct {
	mu        sync.Mutex
	rows      []types.BurnoutResult
	deleteErr error
}

func (f *fakeBurnout) Create(_ context.Context, r types.BurnoutResult) (types.BurnoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, r)
	return r, nil
}

func (f *fakeBurnout) ListByAccount(_ context.Context, accountID int64) ([]types.BurnoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.BurnoutResult
	for _, r := range f.rows {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeBurnout) DeleteByAccount(_ context.Context, accountID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		if r.AccountID == accountID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

type fakeFatigue struct {
	mu        sync.Mutex
	rows      []types.FatigueResult
	deleteErr error
}

func (f *fakeFatigue) Create(_ context.Context, r types.FatigueResult) (types.FatigueResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, r)
	return r, nil
}

func (f *fakeFatigue) ListByOwner(_ context.Context, ownerID string) ([]types.FatigueResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.FatigueResult
	for _, r := range f.rows {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeFatigue) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		if r.OwnerID == ownerID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

type fakeProvider struct {
	mu      sync.Mutex
	created []identity.NewUser
	roles   map[string][]string
	updates map[string][]identity.UserUpdate
	deleted []string
	resets  map[string]string

	createErr error
	roleErr   error
	updateErr error
	resetErr  error
	deleteErr error
	grantErr  error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		roles:   map[string][]string{},
		updates: map[string][]identity.UserUpdate{},
		resets:  map[string]string{},
	}
}

func (f *fakeProvider) CreateUser(_ context.Context, user identity.NewUser) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, user)
	return "kc-" + user.Email, nil
}

func (f *fakeProvider) AssignRealmRole(_ context.Context, externalID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return f.roleErr
	}
	f.roles[externalID] = append(f.roles[externalID], role)
	return nil
}

func (f *fakeProvider) UpdateUser(_ context.Context, externalID string, update identity.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[externalID] = append(f.updates[externalID], update)
	return nil
}

func (f *fakeProvider) ResetPassword(_ context.Context, externalID, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resets[externalID] = password
	return nil
}

func (f *fakeProvider) DeleteUser(_ context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, externalID)
	return nil
}

func (f *fakeProvider) PasswordGrant(_ context.Context, username, _ string) (identity.Token, error) {
	if f.grantErr != nil {
		return identity.Token{}, f.grantErr
	}
	return identity.Token{AccessToken: "token-for-" + username}, nil
}

type publishedMessage struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, publishedMessage{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (f *fakePublisher) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.attrs["type"])
	}
	return out
}

type fakeSnapshotStore struct {
	key  string
	data []byte
	err  error
}

func (f *fakeSnapshotStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.key = key
	f.data = data
	return nil
}

func (f *fakeSnapshotStore) Bucket() string { return "burncare" }
