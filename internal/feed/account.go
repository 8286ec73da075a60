package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bulktrade/terminal-data/internal/rest"
	"github.com/bulktrade/terminal-data/internal/state"
)

// AccountLoader fetches the read-only account views for a wallet.
type AccountLoader struct {
	cfg     Config
	client  *rest.Client
	account *state.AccountState
	logger  *slog.Logger
}

// NewAccountLoader creates an account loader.
func NewAccountLoader(cfg Config, client *rest.Client, account *state.AccountState, logger *slog.Logger) *AccountLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountLoader{
		cfg:     cfg,
		client:  client,
		account: account,
		logger:  logger,
	}
}

// Load fetches fills and positions for the wallet in parallel and stores
// whatever succeeded. The loading flag spans the whole load; a failure
// sets the store's user-visible error without wiping loaded data.
func (l *AccountLoader) Load(ctx context.Context, wallet string) error {
	l.account.SetWallet(wallet)
	l.account.SetLoading(true)
	defer l.account.SetLoading(false)
	l.account.SetError("")

	var wg sync.WaitGroup
	var fillsErr, positionsErr error
	var fills, positions rest.AccountData

	wg.Add(2)
	go func() {
		defer wg.Done()
		reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
		defer cancel()
		fills, fillsErr = l.client.Account(reqCtx, wallet, rest.AccountFills, l.cfg.FillsLimit)
	}()
	go func() {
		defer wg.Done()
		reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
		defer cancel()
		positions, positionsErr = l.client.Account(reqCtx, wallet, rest.AccountPositions, l.cfg.PositionsLimit)
	}()
	wg.Wait()

	l.account.SetAccountData(fills.Fills, positions.Positions)

	if err := errors.Join(fillsErr, positionsErr); err != nil {
		l.logger.Warn("account load failed", "wallet", wallet, "error", err)
		l.account.SetError("failed to load account data")
		return err
	}

	l.logger.Debug("account loaded",
		"wallet", wallet,
		"fills", len(fills.Fills),
		"positions", len(positions.Positions),
	)
	return nil
}
