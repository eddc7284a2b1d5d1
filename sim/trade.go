package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradePurpose tells whether a trade opened or closed position exposure.
type TradePurpose string

const (
	TradePurposeOpen  TradePurpose = "open"
	TradePurposeClose TradePurpose = "close"
)

// Trade is a settled execution. Immutable once created.
type Trade struct {
	ID         string
	OrderID    string
	PositionID string
	Symbol     string
	Volume     decimal.Decimal
	Direction  OrderDirection
	Purpose    TradePurpose

	ExecutionPrice decimal.Decimal
	ExecutionTime  time.Time

	Commission      decimal.Decimal
	CommissionAsset string

	// GrossProfit is the realized portion of the position's profit in the
	// account's primary asset. Only meaningful for closing trades.
	GrossProfit decimal.Decimal
	Swap        decimal.Decimal
}
