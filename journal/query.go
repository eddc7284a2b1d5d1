package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`
		SELECT trade_id, order_id, position_id, symbol, direction, purpose, volume, price, commission, gross_profit, time
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesByPosition returns a position's trades in execution order.
func (j *SQLite) ListTradesByPosition(positionID string) ([]TradeRecord, error) {
	return j.listTrades(`
		SELECT trade_id, order_id, position_id, symbol, direction, purpose, volume, price, commission, gross_profit, time
		FROM trades
		WHERE position_id = ?
		ORDER BY time ASC`, positionID)
}

// ListTradesBetween returns trades executed within [start, end).
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.listTrades(`
		SELECT trade_id, order_id, position_id, symbol, direction, purpose, volume, price, commission, gross_profit, time
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
}

func (j *SQLite) listTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity snapshots within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, balance, equity
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var (
			snap            EquitySnapshot
			balance, equity string
		)
		if err := rows.Scan(&snap.Time, &balance, &equity); err != nil {
			return nil, err
		}
		if snap.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("bad balance %q: %w", balance, err)
		}
		if snap.Equity, err = decimal.NewFromString(equity); err != nil {
			return nil, fmt.Errorf("bad equity %q: %w", equity, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTrade(scan func(...any) error) (TradeRecord, error) {
	var (
		rec                                    TradeRecord
		volume, price, commission, grossProfit string
	)
	err := scan(
		&rec.TradeID,
		&rec.OrderID,
		&rec.PositionID,
		&rec.Symbol,
		&rec.Direction,
		&rec.Purpose,
		&volume,
		&price,
		&commission,
		&grossProfit,
		&rec.Time,
	)
	if err != nil {
		return TradeRecord{}, err
	}

	if rec.Volume, err = decimal.NewFromString(volume); err != nil {
		return TradeRecord{}, fmt.Errorf("bad volume %q: %w", volume, err)
	}
	if rec.Price, err = decimal.NewFromString(price); err != nil {
		return TradeRecord{}, fmt.Errorf("bad price %q: %w", price, err)
	}
	if rec.Commission, err = decimal.NewFromString(commission); err != nil {
		return TradeRecord{}, fmt.Errorf("bad commission %q: %w", commission, err)
	}
	if rec.GrossProfit, err = decimal.NewFromString(grossProfit); err != nil {
		return TradeRecord{}, fmt.Errorf("bad gross profit %q: %w", grossProfit, err)
	}

	return rec, nil
}
