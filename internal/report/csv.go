package report

import (
	"bytes"
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/wonny/alphapulse/internal/contracts"
)

// tradeRow is one CSV line of the trade table
type tradeRow struct {
	ID             int     `csv:"id"`
	Date           string  `csv:"date"`
	Type           string  `csv:"type"`
	Price          float64 `csv:"price"`
	Size           float64 `csv:"size"`
	PnL            float64 `csv:"pnl"`
	RunningPnL     float64 `csv:"running_pnl"`
	RunningCapital float64 `csv:"running_capital"`
}

// TradesCSV renders the processed trades with a header row
func TradesCSV(m *contracts.ProcessedMetrics) ([]byte, error) {
	rows := make([]*tradeRow, 0, len(m.Trades))
	for _, t := range m.Trades {
		rows = append(rows, &tradeRow{
			ID:             t.ID,
			Date:           t.Date,
			Type:           string(t.Type),
			Price:          t.EntryPrice,
			Size:           t.Size,
			PnL:            t.PnL,
			RunningPnL:     t.RunningPnL,
			RunningCapital: t.RunningCapital,
		})
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return nil, fmt.Errorf("encode trades csv: %w", err)
	}
	return buf.Bytes(), nil
}
