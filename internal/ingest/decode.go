package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/wonny/alphapulse/internal/contracts"
)

// Format is an upload encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var (
	// ErrUnsupportedFormat is returned for anything other than JSON or CSV
	ErrUnsupportedFormat = errors.New("unsupported upload format")
	// ErrTooLarge is returned when an upload exceeds the configured size
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// DetectFormat picks the format from an explicit hint, a content type or a
// file name, in that order
func DetectFormat(hint, contentType, name string) (Format, error) {
	if hint != "" {
		return parseFormat(hint)
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON, nil
	case strings.Contains(ct, "csv"):
		return FormatCSV, nil
	}

	if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
		return parseFormat(ext)
	}

	return FormatJSON, nil
}

func parseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ReadLimited reads r fully, failing with ErrTooLarge past maxBytes.
// maxBytes <= 0 disables the limit.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Decode parses an upload in the given format. A positive capital overrides
// the document's own initial capital; for CSV it is required.
func Decode(format Format, r io.Reader, capital float64) (*contracts.PerformanceDataset, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(r, capital)
	case FormatCSV:
		return DecodeCSV(r, capital)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// DecodeFile is Decode with the format taken from the file name
func DecodeFile(name string, r io.Reader, capital float64) (*contracts.PerformanceDataset, error) {
	format, err := DetectFormat("", "", name)
	if err != nil {
		return nil, err
	}
	return Decode(format, r, capital)
}

// envelope mirrors PerformanceDataset with presence tracking
type envelope struct {
	CandleTopics        []string        `json:"candle_topics"`
	InitialCapital      *float64        `json:"initial_capital"`
	InitialCapitalCamel *float64        `json:"initialCapital"`
	Trades              json.RawMessage `json:"trades"`
}

// DecodeJSON parses a strategy-runner dataset. Both initial_capital and
// initialCapital are accepted. A document without trades or without capital
// is malformed; an empty or null trades mapping is not.
func DecodeJSON(r io.Reader) (*contracts.PerformanceDataset, error) {
	return decodeJSON(r, 0)
}

func decodeJSON(r io.Reader, capitalOverride float64) (*contracts.PerformanceDataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &contracts.MalformedInputError{Key: "$", Reason: "document must be a JSON object"}
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &contracts.MalformedInputError{Key: "$", Reason: "document is not valid JSON", Err: err}
	}

	if env.Trades == nil {
		return nil, &contracts.MalformedInputError{Key: "trades", Reason: "field is missing"}
	}

	ds := &contracts.PerformanceDataset{CandleTopics: env.CandleTopics}

	switch {
	case capitalOverride > 0:
		ds.InitialCapital = capitalOverride
	case env.InitialCapital != nil:
		ds.InitialCapital = *env.InitialCapital
	case env.InitialCapitalCamel != nil:
		ds.InitialCapital = *env.InitialCapitalCamel
	default:
		return nil, &contracts.MalformedInputError{Key: "initial_capital", Reason: "field is missing"}
	}

	var docs contracts.StrategyDocuments
	if err := json.Unmarshal(env.Trades, &docs); err != nil {
		return nil, &contracts.MalformedInputError{Key: "trades", Reason: "strategy mapping cannot be decoded", Err: err}
	}
	ds.Trades = &docs

	return ds, nil
}
