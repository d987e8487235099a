package estat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrMalformedTime is returned by Period for time codes it cannot map.
var ErrMalformedTime = errors.New("estat: malformed time code")

// Payload is the top-level getStatsData document.
type Payload struct {
	GetStatsData struct {
		Result          Result `json:"RESULT"`
		StatisticalData struct {
			DataInf struct {
				Value Values `json:"VALUE"`
			} `json:"DATA_INF"`
		} `json:"STATISTICAL_DATA"`
	} `json:"GET_STATS_DATA"`
}

// Result is the portal's status block. Status 0 means success; 1 means the
// query matched no data; anything above is an error described by ErrorMsg.
type Result struct {
	Status   int    `json:"STATUS"`
	ErrorMsg string `json:"ERROR_MSG"`
}

// Entry is one raw leaf value.
type Entry struct {
	Tab      string `json:"@tab"`
	Time     string `json:"@time"`
	Status   string `json:"@cat01"`
	Category string `json:"@cat02"`
	Region   string `json:"@cat03"`
	Unit     string `json:"@unit"`
	Value    Amount `json:"$"`
}

// Values is the normalized leaf collection.
type Values []Entry

// UnmarshalJSON accepts either a JSON array of entries or a single entry.
func (v *Values) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = nil
		return nil
	}
	switch trimmed[0] {
	case '[':
		var list []Entry
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("decode VALUE array: %w", err)
		}
		*v = list
	case '{':
		var e Entry
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return fmt.Errorf("decode VALUE object: %w", err)
		}
		*v = Values{e}
	default:
		return fmt.Errorf("unexpected VALUE token %q: want '[' or '{'", trimmed[0])
	}
	return nil
}

// Amount is a leaf value. The portal encodes numbers as strings and uses
// placeholders such as "-" or "***" for suppressed cells; bare JSON numbers
// are accepted too.
type Amount string

// UnmarshalJSON accepts a JSON string or number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode amount %s: %w", b, err)
	}
	*a = Amount(n.String())
	return nil
}

// Int returns the leading integer of the amount, or 0 when it has none.
// "1200" → 1200, "12.7" → 12, "-" → 0.
func (a Amount) Int() int64 {
	s := bytes.TrimSpace([]byte(a))
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(string(s[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Decode reads a payload from r. A document without a VALUE collection
// decodes successfully with no entries.
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("estat: decode payload: %w", err)
	}
	return &p, nil
}

// Entries returns the payload's leaf entries.
func (p *Payload) Entries() Values {
	return p.GetStatsData.StatisticalData.DataInf.Value
}

// Period maps a time code such as "2024000303" to "2024-03".
func Period(timeCode string) (string, error) {
	if len(timeCode) < 10 {
		return "", fmt.Errorf("%w: %q", ErrMalformedTime, timeCode)
	}
	year, month := timeCode[0:4], timeCode[8:10]
	if !allDigits(year) || !allDigits(month) {
		return "", fmt.Errorf("%w: %q", ErrMalformedTime, timeCode)
	}
	if m, _ := strconv.Atoi(month); m < 1 || m > 12 {
		return "", fmt.Errorf("%w: %q", ErrMalformedTime, timeCode)
	}
	return year + "-" + month, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
