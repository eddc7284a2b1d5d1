package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSnapshot carries the execution details a commission policy may
// price against.
type TradeSnapshot struct {
	Volume         decimal.Decimal
	ExecutionPrice decimal.Decimal
	ExecutionTime  time.Time
}

// CommissionCustomizer computes the transaction cost of an execution,
// returning the asset to charge and the amount. The default policy
// charges nothing.
type CommissionCustomizer func(order *Order, snapshot TradeSnapshot) (asset string, amount decimal.Decimal)
