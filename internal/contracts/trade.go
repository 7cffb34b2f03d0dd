package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a single execution
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// IsValid reports whether the side is one of the known values
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// NumericString holds a decimal value exactly as it arrived in the upload.
// 업로드 파일은 가격/수량을 문자열로 주지만 숫자로 오는 경우도 허용
type NumericString string

// UnmarshalJSON accepts both "1.25" and 1.25
func (n *NumericString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericString(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("numeric field must be a string or number: %w", err)
	}
	*n = NumericString(num.String())
	return nil
}

// Decimal parses the value with arbitrary precision
func (n NumericString) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(string(n)))
}

// String returns the raw text
func (n NumericString) String() string {
	return string(n)
}

// RawTrade is one execution as recorded by the strategy runner
type RawTrade struct {
	Quantity NumericString `json:"quantity"`
	Side     Side          `json:"side"`
	Price    NumericString `json:"price"`
	Time     int64         `json:"time"` // epoch milliseconds
}

// Timestamp converts the epoch-millisecond time to UTC
func (t RawTrade) Timestamp() time.Time {
	return time.UnixMilli(t.Time).UTC()
}
