// Package ledger provides per-asset balance bookkeeping for a single
// simulated account.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned by Withdraw when the free volume of an
// asset would go negative. The check happens before any mutation.
var ErrInsufficientFunds = errors.New("insufficient free volume")

// Balance is the held volume of one asset. Deposits and withdrawals touch
// Free only; Locked and Borrowed are extension points for margin models.
type Balance struct {
	Free     decimal.Decimal
	Locked   decimal.Decimal
	Borrowed decimal.Decimal
}

func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked).Add(b.Borrowed)
}

// Ledger tracks asset balances. It is not goroutine safe; the owning
// account serializes access.
type Ledger struct {
	balances map[string]Balance
}

func New() *Ledger {
	return &Ledger{balances: make(map[string]Balance)}
}

func (l *Ledger) Balance(asset string) Balance {
	return l.balances[asset]
}

func (l *Ledger) Free(asset string) decimal.Decimal {
	return l.balances[asset].Free
}

// HasFunds reports whether the free volume of asset covers volume.
func (l *Ledger) HasFunds(asset string, volume decimal.Decimal) bool {
	return l.balances[asset].Free.GreaterThanOrEqual(volume)
}

func (l *Ledger) Deposit(asset string, volume decimal.Decimal) error {
	if volume.IsNegative() {
		return fmt.Errorf("deposit %s %s: volume must not be negative", volume, asset)
	}
	b := l.balances[asset]
	b.Free = b.Free.Add(volume)
	l.balances[asset] = b
	return nil
}

// Withdraw removes volume from the asset's free balance. The balance is
// pre-checked: an insufficient balance leaves the ledger untouched.
func (l *Ledger) Withdraw(asset string, volume decimal.Decimal) error {
	if volume.IsNegative() {
		return fmt.Errorf("withdraw %s %s: volume must not be negative", volume, asset)
	}
	b := l.balances[asset]
	if b.Free.LessThan(volume) {
		return fmt.Errorf("withdraw %s %s: %w", volume, asset, ErrInsufficientFunds)
	}
	b.Free = b.Free.Sub(volume)
	l.balances[asset] = b
	return nil
}

// Debit removes volume from the asset's free balance without the
// sufficiency pre-check, allowing the balance to go negative. It settles
// engine-forced flows (liquidation legs, commissions) that must not fail.
func (l *Ledger) Debit(asset string, volume decimal.Decimal) {
	b := l.balances[asset]
	b.Free = b.Free.Sub(volume)
	l.balances[asset] = b
}

// Assets returns the assets with a recorded balance, sorted by name.
func (l *Ledger) Assets() []string {
	assets := make([]string, 0, len(l.balances))
	for asset := range l.balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}
