package extract

import (
	"bytes"
	"encoding/json"

	"github.com/wonny/alphapulse/internal/contracts"
)

// Extraction is the trade list together with where it was found
type Extraction struct {
	StrategyKey string
	Symbol      string
	Trades      []contracts.RawTrade
}

// Extract returns the executions of the first symbol of the first strategy.
// Missing or empty mappings produce an empty slice and a nil error; only an
// embedded document that is not valid JSON is reported as malformed input.
func Extract(ds *contracts.PerformanceDataset) ([]contracts.RawTrade, error) {
	ex, err := ExtractSource(ds)
	if err != nil {
		return nil, err
	}
	return ex.Trades, nil
}

// ExtractSource is Extract plus the strategy key and symbol that were used
func ExtractSource(ds *contracts.PerformanceDataset) (*Extraction, error) {
	ex := &Extraction{Trades: []contracts.RawTrade{}}
	if ds == nil {
		return ex, nil
	}

	entry, ok := ds.Trades.First()
	if !ok {
		return ex, nil
	}
	ex.StrategyKey = entry.Key

	doc, err := decodeStrategyDocument(entry)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Trades == nil || len(doc.Trades.Entries) == 0 {
		return ex, nil
	}

	symbol := doc.Trades.Entries[0]
	ex.Symbol = symbol.Key

	if !isArray(symbol.Value) {
		return ex, nil
	}

	var trades []contracts.RawTrade
	if err := json.Unmarshal(symbol.Value, &trades); err != nil {
		return nil, &contracts.MalformedInputError{
			Key:    entry.Key,
			Reason: "trades for symbol " + symbol.Key + " cannot be decoded",
			Err:    err,
		}
	}
	if trades != nil {
		ex.Trades = trades
	}

	return ex, nil
}

// decodeStrategyDocument handles both the embedded-string and the
// already-structured form of a strategy value
func decodeStrategyDocument(entry contracts.DocumentEntry) (*contracts.StrategyDocument, error) {
	raw := bytes.TrimSpace(entry.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var embedded string
		if err := json.Unmarshal(raw, &embedded); err != nil {
			return nil, &contracts.MalformedInputError{Key: entry.Key, Reason: "strategy value is not a valid string", Err: err}
		}
		raw = bytes.TrimSpace([]byte(embedded))
		if !json.Valid(raw) {
			return nil, &contracts.MalformedInputError{
				Key:    entry.Key,
				Reason: "embedded strategy document is not valid JSON",
				Err:    syntaxError(raw),
			}
		}
	}

	// 객체가 아닌 값(숫자, 배열 등)은 trades 속성이 없는 것으로 취급
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}

	var doc contracts.StrategyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &contracts.MalformedInputError{Key: entry.Key, Reason: "strategy document cannot be decoded", Err: err}
	}
	return &doc, nil
}

func syntaxError(raw []byte) error {
	var v interface{}
	return json.Unmarshal(raw, &v)
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
