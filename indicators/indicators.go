// Package indicators provides streaming indicators over price values.
// Each indicator consumes one value at a time and reports Ready once its
// warmup window is filled.
package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Indicator is a streaming calculation over a price series.
type Indicator interface {
	Name() string
	Warmup() int
	Reset()
	Update(value decimal.Decimal)
	Ready() bool
	Value() decimal.Decimal
}

// SimpleMA is a streaming simple moving average.
type SimpleMA struct {
	period int
	values []decimal.Decimal
}

func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		values: make([]decimal.Decimal, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.values = m.values[:0]
}

func (m *SimpleMA) Update(value decimal.Decimal) {
	m.values = append(m.values, value)
	// Keep only the last 'period' values
	if len(m.values) > m.period {
		m.values = m.values[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.values) >= m.period
}

func (m *SimpleMA) Value() decimal.Decimal {
	if !m.Ready() {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range m.values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(m.values))))
}

// ExponentialMA is a streaming exponential moving average, seeded with the
// simple average of its warmup window.
type ExponentialMA struct {
	period     int
	multiplier decimal.Decimal
	ema        decimal.Decimal
	count      int
	warmupSum  decimal.Decimal
}

func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1))),
	}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.ema = decimal.Zero
	e.count = 0
	e.warmupSum = decimal.Zero
}

func (e *ExponentialMA) Update(value decimal.Decimal) {
	if e.count < e.period {
		e.warmupSum = e.warmupSum.Add(value)
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum.Div(decimal.NewFromInt(int64(e.period)))
		}
		return
	}
	e.ema = value.Sub(e.ema).Mul(e.multiplier).Add(e.ema)
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() decimal.Decimal {
	if !e.Ready() {
		return decimal.Zero
	}
	return e.ema
}
