package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(ind Indicator, values ...string) {
	for _, v := range values {
		ind.Update(decimal.RequireFromString(v))
	}
}

func TestSimpleMA(t *testing.T) {
	ma := NewMA(3)
	assert.Equal(t, "MA(3)", ma.Name())
	assert.Equal(t, 3, ma.Warmup())
	assert.False(t, ma.Ready())
	assert.True(t, ma.Value().IsZero())

	feed(ma, "1", "2", "3")
	require.True(t, ma.Ready())
	assert.Equal(t, "2", ma.Value().String())

	// The window slides: 2, 3, 7.
	feed(ma, "7")
	assert.Equal(t, "4", ma.Value().String())

	ma.Reset()
	assert.False(t, ma.Ready())
}

func TestExponentialMASeedsWithSimpleAverage(t *testing.T) {
	ema := NewEMA(3)
	assert.False(t, ema.Ready())

	feed(ema, "1", "2", "3")
	require.True(t, ema.Ready())
	assert.Equal(t, "2", ema.Value().String())

	// multiplier = 2/(3+1) = 0.5; next = (4-2)*0.5 + 2 = 3.
	feed(ema, "4")
	assert.Equal(t, "3", ema.Value().String())

	ema.Reset()
	assert.False(t, ema.Ready())
	feed(ema, "10", "10", "10")
	assert.Equal(t, "10", ema.Value().String())
}
