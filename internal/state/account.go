package state

import (
	"sync"

	"github.com/bulktrade/terminal-data/internal/model"
)

// AccountState holds the tracked wallet's fills and positions.
type AccountState struct {
	mu sync.RWMutex

	wallet    string
	fills     []model.Fill
	positions []model.Position
	loading   bool
	err       string
}

// NewAccountState creates an empty account store.
func NewAccountState() *AccountState {
	return &AccountState{}
}

// SetWallet sets the tracked wallet identifier.
func (s *AccountState) SetWallet(wallet string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallet = wallet
}

// Wallet returns the tracked wallet identifier, "" if none.
func (s *AccountState) Wallet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wallet
}

// SetAccountData replaces fills and positions. A nil slice keeps the
// previous value, so partial loads do not wipe the other table.
func (s *AccountState) SetAccountData(fills []model.Fill, positions []model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fills != nil {
		s.fills = fills
	}
	if positions != nil {
		s.positions = positions
	}
}

// Fills returns a copy of the stored fills.
func (s *AccountState) Fills() []model.Fill {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Fill(nil), s.fills...)
}

// Positions returns a copy of the stored positions.
func (s *AccountState) Positions() []model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Position(nil), s.positions...)
}

// SetLoading flags an account load in progress.
func (s *AccountState) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = v
}

// Loading reports whether an account load is in progress.
func (s *AccountState) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

// SetError sets the user-visible account error message, "" to clear.
func (s *AccountState) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = msg
}

// Error returns the user-visible account error message, "" if none.
func (s *AccountState) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.err
}
