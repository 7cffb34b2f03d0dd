package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/wonny/alphapulse/internal/contracts"
)

// CSVStrategyKey is the strategy label given to CSV uploads
const CSVStrategyKey = "csv_upload"

// DefaultCSVSymbol is used when the symbol column is absent or blank
const DefaultCSVSymbol = "CSV"

// csvTrade is one row of a CSV upload
type csvTrade struct {
	Quantity string `csv:"quantity"`
	Side     string `csv:"side"`
	Price    string `csv:"price"`
	Time     int64  `csv:"time"`
	Symbol   string `csv:"symbol"`
}

// DecodeCSV builds a one-strategy dataset from rows of
// quantity,side,price,time[,symbol]. Symbols keep the order they first appear in.
func DecodeCSV(r io.Reader, initialCapital float64) (*contracts.PerformanceDataset, error) {
	if !(initialCapital > 0) {
		return nil, contracts.ErrInvalidCapital
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	var rows []*csvTrade
	if len(bytes.TrimSpace(data)) > 0 {
		if err := gocsv.Unmarshal(bytes.NewReader(normalizeHeader(data)), &rows); err != nil {
			return nil, &contracts.MalformedInputError{Key: CSVStrategyKey, Reason: "rows cannot be decoded", Err: err}
		}
	}

	symbols := &contracts.SymbolTrades{}
	bySymbol := make(map[string][]contracts.RawTrade)
	for _, row := range rows {
		sym := strings.TrimSpace(row.Symbol)
		if sym == "" {
			sym = DefaultCSVSymbol
		}
		if _, seen := bySymbol[sym]; !seen {
			symbols.Entries = append(symbols.Entries, contracts.DocumentEntry{Key: sym})
		}
		bySymbol[sym] = append(bySymbol[sym], contracts.RawTrade{
			Quantity: contracts.NumericString(strings.TrimSpace(row.Quantity)),
			Side:     contracts.Side(strings.ToLower(strings.TrimSpace(row.Side))),
			Price:    contracts.NumericString(strings.TrimSpace(row.Price)),
			Time:     row.Time,
		})
	}

	for i, e := range symbols.Entries {
		raw, err := json.Marshal(bySymbol[e.Key])
		if err != nil {
			return nil, fmt.Errorf("encode trades for %s: %w", e.Key, err)
		}
		symbols.Entries[i].Value = raw
	}

	doc, err := json.Marshal(contracts.StrategyDocument{Trades: symbols})
	if err != nil {
		return nil, fmt.Errorf("encode strategy document: %w", err)
	}

	docs := &contracts.StrategyDocuments{}
	docs.Add(CSVStrategyKey, doc)

	return &contracts.PerformanceDataset{
		InitialCapital: initialCapital,
		Trades:         docs,
	}, nil
}

// normalizeHeader lower-cases and trims the header names
func normalizeHeader(data []byte) []byte {
	end := bytes.IndexByte(data, '\n')
	if end < 0 {
		end = len(data)
	}

	fields := strings.Split(strings.TrimRight(string(data[:end]), "\r"), ",")
	for i, f := range fields {
		fields[i] = strings.ToLower(strings.TrimSpace(f))
	}

	out := []byte(strings.Join(fields, ","))
	return append(out, data[end:]...)
}
