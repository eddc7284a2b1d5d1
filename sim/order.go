package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderDirection string

const (
	OrderDirectionBuy  OrderDirection = "buy"
	OrderDirectionSell OrderDirection = "sell"
)

func (d OrderDirection) opposite() OrderDirection {
	if d == OrderDirectionBuy {
		return OrderDirectionSell
	}
	return OrderDirectionBuy
}

// OrderPurpose tells whether the order opens exposure or closes an
// existing position.
type OrderPurpose string

const (
	OrderPurposeOpen  OrderPurpose = "open"
	OrderPurposeClose OrderPurpose = "close"
)

type OrderStatus string

const (
	OrderStatusRequested OrderStatus = "requested"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusExecuted  OrderStatus = "executed"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusExecuted, OrderStatusRejected, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// OrderRejection is a rejection reason. Rejections are data, not errors:
// a rejected order carries its reason and no ledger mutation has happened.
type OrderRejection string

const (
	RejectionSymbolNotFound    OrderRejection = "symbol-not-found"
	RejectionPositionNotFound  OrderRejection = "position-not-found"
	RejectionInvalidStopLoss   OrderRejection = "invalid-stop-loss"
	RejectionInvalidTakeProfit OrderRejection = "invalid-take-profit"
	RejectionNotEnoughMoney    OrderRejection = "not-enough-money"
)

type OrderExecutionType string

const (
	OrderExecutionMarket OrderExecutionType = "market"
	OrderExecutionLimit  OrderExecutionType = "limit"
	OrderExecutionStop   OrderExecutionType = "stop"
)

type TimeInForce string

const (
	GoodTillCancel TimeInForce = "GTC"
)

// OrderDirectives describes an order to place. Either Symbol or PositionID
// must be set; presence of Limit or Stop selects the execution type.
type OrderDirectives struct {
	Symbol     string
	PositionID string
	Direction  OrderDirection
	Volume     decimal.Decimal

	Limit *decimal.Decimal
	Stop  *decimal.Decimal

	Protection  *Protection
	TimeInForce TimeInForce
}

// Order is a request to trade, tracked through its whole lifecycle.
// Market orders go Requested -> Accepted -> Executed|Rejected; limit and
// stop orders pass through Pending and may also end Cancelled or Expired.
type Order struct {
	ID              string
	Symbol          string
	Direction       OrderDirection
	Purpose         OrderPurpose
	RequestedVolume decimal.Decimal
	LimitPrice      *decimal.Decimal
	StopPrice       *decimal.Decimal
	PositionID      string
	Protection      *Protection
	TimeInForce     TimeInForce

	Status    OrderStatus
	Rejection OrderRejection

	CreationTime   time.Time
	LastUpdateTime time.Time

	Trades []*Trade

	account *Account
	// stopOut marks engine-initiated forced closes (protection triggers,
	// negative balance). Their settlement must always succeed.
	stopOut bool
}

func (o *Order) Account() *Account { return o.account }

func (o *Order) ExecutionType() OrderExecutionType {
	switch {
	case o.LimitPrice != nil:
		return OrderExecutionLimit
	case o.StopPrice != nil:
		return OrderExecutionStop
	default:
		return OrderExecutionMarket
	}
}

// ExecutedVolume is the summed volume of the order's trades, never above
// RequestedVolume.
func (o *Order) ExecutedVolume() decimal.Decimal {
	v := decimal.Zero
	for _, t := range o.Trades {
		v = v.Add(t.Volume)
	}
	return v
}
