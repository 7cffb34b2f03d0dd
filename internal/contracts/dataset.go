package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PerformanceDataset is the top-level document produced by the strategy runner
// ⭐ SSOT: 업로드 → 추출 단계로 전달되는 입력 형식
type PerformanceDataset struct {
	CandleTopics   []string           `json:"candle_topics,omitempty"`
	InitialCapital float64            `json:"initial_capital"`
	Trades         *StrategyDocuments `json:"trades"`
}

// DocumentEntry is one strategy label with its embedded document
type DocumentEntry struct {
	Key   string
	Value json.RawMessage
}

// StrategyDocuments is a JSON object decoded with its key order preserved.
// Extraction picks the first key, so insertion order is part of the contract.
type StrategyDocuments struct {
	Entries []DocumentEntry
}

// UnmarshalJSON decodes an object while keeping key order
func (d *StrategyDocuments) UnmarshalJSON(data []byte) error {
	entries, err := decodeOrderedObject(data)
	if err != nil {
		return err
	}
	d.Entries = entries
	return nil
}

// MarshalJSON writes the entries back in their original order
func (d StrategyDocuments) MarshalJSON() ([]byte, error) {
	return encodeOrderedObject(d.Entries)
}

// Len returns the number of strategy labels
func (d *StrategyDocuments) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Entries)
}

// First returns the first strategy entry
func (d *StrategyDocuments) First() (DocumentEntry, bool) {
	if d.Len() == 0 {
		return DocumentEntry{}, false
	}
	return d.Entries[0], true
}

// Add appends a strategy document
func (d *StrategyDocuments) Add(key string, value json.RawMessage) {
	d.Entries = append(d.Entries, DocumentEntry{Key: key, Value: value})
}

// StrategyDocument is the embedded per-strategy document: symbol → executions
type StrategyDocument struct {
	Trades *SymbolTrades `json:"trades"`
}

// SymbolTrades maps symbol to its trade list, key order preserved
type SymbolTrades struct {
	Entries []DocumentEntry
}

// UnmarshalJSON decodes an object while keeping key order
func (s *SymbolTrades) UnmarshalJSON(data []byte) error {
	entries, err := decodeOrderedObject(data)
	if err != nil {
		return err
	}
	s.Entries = entries
	return nil
}

// MarshalJSON writes the entries back in their original order
func (s SymbolTrades) MarshalJSON() ([]byte, error) {
	return encodeOrderedObject(s.Entries)
}

// decodeOrderedObject walks the top level of a JSON object token by token.
// Non-object input (including null) yields no entries.
func decodeOrderedObject(data []byte) ([]DocumentEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil
	}

	var entries []DocumentEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", key, err)
		}
		entries = append(entries, DocumentEntry{Key: key, Value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return entries, nil
}

func encodeOrderedObject(entries []DocumentEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(e.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(e.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
