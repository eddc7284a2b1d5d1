package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrade(id string, profit string) TradeRecord {
	return TradeRecord{
		TradeID:     id,
		OrderID:     "O-" + id,
		PositionID:  "P-1",
		Symbol:      "EURUSD",
		Direction:   "buy",
		Purpose:     "open",
		Volume:      decimal.RequireFromString("100"),
		Price:       decimal.RequireFromString("1.1002"),
		Commission:  decimal.RequireFromString("0.5"),
		GrossProfit: decimal.RequireFromString(profit),
		Time:        time.Date(2022, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestCSVJournalWritesRows(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	require.NoError(t, j.RecordTrade(sampleTrade("T-1", "0")))
	require.NoError(t, j.RecordTrade(sampleTrade("T-2", "1.25")))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time:    time.Date(2022, 3, 1, 9, 31, 0, 0, time.UTC),
		Balance: decimal.RequireFromString("889.98"),
		Equity:  decimal.RequireFromString("890.48"),
	}))
	require.NoError(t, j.Close())

	tf, err := os.Open(tradesPath)
	require.NoError(t, err)
	defer tf.Close()

	rows, err := csv.NewReader(tf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two trades")
	assert.Equal(t, "trade_id", rows[0][0])
	assert.Equal(t, "T-1", rows[1][0])
	assert.Equal(t, "1.1002", rows[1][7])
	assert.Equal(t, "1.25", rows[2][9])

	ef, err := os.Open(equityPath)
	require.NoError(t, err)
	defer ef.Close()

	rows, err = csv.NewReader(ef).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2022-03-01T09:31:00Z", "889.98", "890.48"}, rows[1])
}

func TestNewCSVHeaderFlushFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("requires /dev/full")
	}

	// The trades file opens fine but every write to it fails, so the
	// header flush must error out instead of handing back a journal.
	_, err := NewCSV("/dev/full", filepath.Join(t.TempDir(), "equity.csv"))
	require.Error(t, err)
}

func TestDiscardJournal(t *testing.T) {
	require.NoError(t, Discard.RecordTrade(TradeRecord{}))
	require.NoError(t, Discard.RecordEquity(EquitySnapshot{}))
	require.NoError(t, Discard.Close())
}
