package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Symbol describes a tradable instrument: one unit of volume opens exposure
// to LotUnits units of the base asset, settled in the quote asset.
type Symbol struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	LotUnits   decimal.Decimal
	Digits     int
}

// Normalized returns the symbol with defaults applied (LotUnits 1 when
// unset) or an error when required fields are missing.
func (s Symbol) Normalized() (Symbol, error) {
	if s.Symbol == "" {
		return s, fmt.Errorf("symbol name is required")
	}
	if s.BaseAsset == "" || s.QuoteAsset == "" {
		return s, fmt.Errorf("symbol %s: base and quote assets are required", s.Symbol)
	}
	if s.LotUnits.IsZero() {
		s.LotUnits = decimal.NewFromInt(1)
	}
	if s.LotUnits.IsNegative() {
		return s, fmt.Errorf("symbol %s: lot units must be positive", s.Symbol)
	}
	return s, nil
}
