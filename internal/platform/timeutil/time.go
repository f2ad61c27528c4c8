package timeutil

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Timestamp layouts used in API payloads and logs.
const (
	RFC3339Millis = "2006-01-02T15:04:05.000Z07:00"
	RFC3339Micros = "2006-01-02T15:04:05.000000Z07:00"
)

// Time serializes as an RFC 3339 UTC timestamp with millisecond precision
// in JSON and as a CBOR tag 0 date/time string.
type Time struct {
	time.Time
}

// NewTime wraps t.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// Now returns the current time.
func Now() Time {
	return Time{Time: time.Now()}
}

func (t Time) String() string {
	return t.UTC().Format(RFC3339Millis)
}

func (t Time) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, len(RFC3339Millis)+2)
	b = append(b, '"')
	b = t.UTC().AppendFormat(b, RFC3339Millis)
	return append(b, '"'), nil
}

// UnmarshalJSON accepts any RFC 3339 timestamp. null leaves t unchanged.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timeutil: invalid JSON time %s", data)
	}
	parsed, err := parse(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{Number: 0, Content: t.UTC().Format(RFC3339Millis)})
}

// UnmarshalCBOR accepts a tag 0 date/time string or a bare text string.
func (t *Time) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return errors.New("timeutil: empty CBOR data")
	}

	content := data
	var tag cbor.RawTag
	if err := cbor.Unmarshal(data, &tag); err == nil {
		if tag.Number != 0 {
			return fmt.Errorf("timeutil: unexpected CBOR tag %d", tag.Number)
		}
		content = tag.Content
	}

	var s string
	if err := cbor.Unmarshal(content, &s); err != nil {
		return fmt.Errorf("timeutil: expected CBOR text string: %w", err)
	}
	parsed, err := parse(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parse(s string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid time %q: %w", s, err)
	}
	return parsed, nil
}
