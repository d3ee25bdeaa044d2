// Package accountstest provides an in-memory accounts.Store for tests.
package accountstest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hexlet/typoreporter/internal/accounts"
)

// Store is a concurrency-safe in-memory accounts.Store that counts mutating calls.
type Store struct {
	mu         sync.Mutex
	accounts   map[string]accounts.Account
	workspaces map[string][]accounts.WorkspaceRoleInfo
	calls      map[string]int
	now        func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		accounts:   make(map[string]accounts.Account),
		workspaces: make(map[string][]accounts.WorkspaceRoleInfo),
		calls:      make(map[string]int),
		now:        time.Now,
	}
}

// Seed inserts an account with a bcrypt hash of password (minimum cost) and returns it.
func (s *Store) Seed(username, email, password, firstName, lastName string) accounts.Account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	account := accounts.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.accounts[account.ID] = account
	return account
}

// AddWorkspaceRole attaches a workspace membership to the account with accountID.
func (s *Store) AddWorkspaceRole(accountID string, info accounts.WorkspaceRoleInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info.WorkspaceID == "" {
		info.WorkspaceID = uuid.NewString()
	}
	s.workspaces[accountID] = append(s.workspaces[accountID], info)
}

// Delete removes the account with username, simulating a stale session principal.
func (s *Store) Delete(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.accounts {
		if a.Username == username {
			delete(s.accounts, id)
			delete(s.workspaces, id)
		}
	}
}

// Calls returns how many times the named Store method ran.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Get returns the stored account with username.
func (s *Store) Get(username string) (accounts.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.findLocked(func(a accounts.Account) bool { return a.Username == username })
	return a, ok
}

func (s *Store) findLocked(match func(accounts.Account) bool) (accounts.Account, bool) {
	for _, a := range s.accounts {
		if match(a) {
			return a, true
		}
	}
	return accounts.Account{}, false
}

func (s *Store) GetByUsername(_ context.Context, username string) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["GetByUsername"]++
	if a, ok := s.findLocked(func(a accounts.Account) bool { return a.Username == username }); ok {
		return a, nil
	}
	return accounts.Account{}, accounts.ErrAccountNotFound
}

func (s *Store) GetByIdentity(_ context.Context, identity string) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["GetByIdentity"]++
	if a, ok := s.findLocked(func(a accounts.Account) bool { return a.Username == identity }); ok {
		return a, nil
	}
	email := strings.ToLower(identity)
	if a, ok := s.findLocked(func(a accounts.Account) bool { return a.Email == email }); ok {
		return a, nil
	}
	return accounts.Account{}, accounts.ErrAccountNotFound
}

func (s *Store) FindConflict(_ context.Context, username, email, excludeID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindConflict"]++
	return s.conflictLocked(username, email, excludeID), nil
}

func (s *Store) conflictLocked(username, email, excludeID string) string {
	field := ""
	for id, a := range s.accounts {
		if id == excludeID {
			continue
		}
		if a.Username == username {
			return "username"
		}
		if a.Email == email {
			field = "email"
		}
	}
	return field
}

func (s *Store) Create(_ context.Context, params accounts.CreateParams) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Create"]++
	if field := s.conflictLocked(params.Username, params.Email, ""); field != "" {
		return accounts.Account{}, &accounts.ConflictError{Field: field}
	}
	now := s.now()
	account := accounts.Account{
		ID:           uuid.NewString(),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.accounts[account.ID] = account
	return account, nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, params accounts.ProfileParams) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["UpdateProfile"]++
	account, ok := s.accounts[id]
	if !ok {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}
	if field := s.conflictLocked(params.Username, params.Email, id); field != "" {
		return accounts.Account{}, &accounts.ConflictError{Field: field}
	}
	account.Username = params.Username
	account.Email = params.Email
	account.FirstName = params.FirstName
	account.LastName = params.LastName
	account.UpdatedAt = s.now()
	s.accounts[id] = account
	return account, nil
}

func (s *Store) UpdatePassword(_ context.Context, id, passwordHash string) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["UpdatePassword"]++
	account, ok := s.accounts[id]
	if !ok {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = s.now()
	s.accounts[id] = account
	return account, nil
}

func (s *Store) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.accounts)), nil
}

func (s *Store) ListWorkspaceRoles(_ context.Context, username string) ([]accounts.WorkspaceRoleInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListWorkspaceRoles"]++
	a, ok := s.findLocked(func(a accounts.Account) bool { return a.Username == username })
	if !ok {
		return nil, nil
	}
	items := append([]accounts.WorkspaceRoleInfo(nil), s.workspaces[a.ID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].WorkspaceName < items[j].WorkspaceName })
	return items, nil
}
