package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"hoodview/internal/domain"
)

// TradeJournal archives executed option trades to per-date Parquet files:
//
//	<DataDir>/trades/<YYYY-MM-DD>.parquet
//
// Writes merge by (order id, leg id) so repeated archival of the same day
// is idempotent.
type TradeJournal struct {
	DataDir string
}

// NewTradeJournal creates a TradeJournal rooted at the given data directory.
func NewTradeJournal(dataDir string) *TradeJournal {
	return &TradeJournal{DataDir: dataDir}
}

// TradeRow is the Parquet schema for one archived trade leg.
type TradeRow struct {
	OrderID        string  `parquet:"order_id"`
	LegID          string  `parquet:"leg_id"`
	Symbol         string  `parquet:"symbol"`
	Side           string  `parquet:"side"`
	PositionEffect string  `parquet:"position_effect"`
	OptionType     string  `parquet:"option_type"`
	StrikePrice    float64 `parquet:"strike_price"`
	ExpirationDate string  `parquet:"expiration_date"`
	Quantity       float64 `parquet:"quantity"`
	Price          float64 `parquet:"price"`
	ExecutedAt     int64   `parquet:"executed_at,timestamp(millisecond)"` // Unix ms
}

func (j *TradeJournal) path(date string) string {
	return filepath.Join(j.DataDir, "trades", date+".parquet")
}

// WriteTrades archives trades under the given market date, merging with any
// rows already on disk.
func (j *TradeJournal) WriteTrades(date string, trades []domain.OptionTrade) error {
	if len(trades) == 0 {
		return nil
	}

	path := j.path(date)
	existing, _ := readParquetFile[TradeRow](path)

	merged := make(map[string]TradeRow, len(existing)+len(trades))
	for _, row := range existing {
		merged[row.OrderID+"/"+row.LegID] = row
	}
	for _, t := range trades {
		merged[t.OrderID+"/"+t.LegID] = TradeRow{
			OrderID:        t.OrderID,
			LegID:          t.LegID,
			Symbol:         t.Symbol,
			Side:           t.Side,
			PositionEffect: t.PositionEffect,
			OptionType:     string(t.OptionType),
			StrikePrice:    t.StrikePrice,
			ExpirationDate: t.ExpirationDate,
			Quantity:       t.Quantity,
			Price:          t.Price,
			ExecutedAt:     t.ExecutedAt.UnixMilli(),
		}
	}

	rows := make([]TradeRow, 0, len(merged))
	for _, row := range merged {
		rows = append(rows, row)
	}
	// Newest first, matching the order the API serves trades in.
	sort.Slice(rows, func(i, k int) bool { return rows[i].ExecutedAt > rows[k].ExecutedAt })

	return writeParquetFile(path, rows)
}

// ReadTrades returns the archived trades for a market date, newest first.
// A missing file yields an empty slice, not an error.
func (j *TradeJournal) ReadTrades(date string) ([]domain.OptionTrade, error) {
	rows, err := readParquetFile[TradeRow](j.path(date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	trades := make([]domain.OptionTrade, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, domain.OptionTrade{
			OrderID:        row.OrderID,
			LegID:          row.LegID,
			Symbol:         row.Symbol,
			Side:           row.Side,
			PositionEffect: row.PositionEffect,
			OptionType:     domain.OptionType(row.OptionType),
			StrikePrice:    row.StrikePrice,
			ExpirationDate: row.ExpirationDate,
			Quantity:       row.Quantity,
			Price:          row.Price,
			ExecutedAt:     time.UnixMilli(row.ExecutedAt).UTC(),
		})
	}
	return trades, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

func writeParquetFile[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating journal directory: %w", err)
	}

	// Write to a temp file then rename, so readers never see a partial file.
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
