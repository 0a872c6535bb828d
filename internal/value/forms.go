package value

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the text form of a Timestamp: RFC 3339 with nanosecond
// precision and a numeric offset ("+00:00" rather than "Z").
const TimestampLayout = "2006-01-02T15:04:05.999999999-07:00"

// FormatTimestamp returns the wire text of t.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses wire text into a time.Time. Both "Z" and numeric
// offsets are accepted; text without an offset is rejected.
//
// The returned time is in time.UTC when the offset is zero and in an unnamed
// fixed zone otherwise, so that equal inputs produce identical values.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, malformedf("timestamp %q: %v", truncate(s, 64), err)
	}
	return normalizeZone(t), nil
}

func normalizeZone(t time.Time) time.Time {
	_, offset := t.Zone()
	if offset == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", offset))
}

// DurationSeconds converts d to float seconds.
// Spans longer than about 104 days lose sub-microsecond precision because
// float64 carries 53 bits of mantissa.
func DurationSeconds(d time.Duration) float64 {
	return d.Seconds()
}

// DurationFromSeconds converts float seconds back into a Duration, rounding
// to the nearest nanosecond.
//
// float64 cannot hold math.MaxInt64; its nearest image is 2^63, which is
// read back as the largest Duration.
func DurationFromSeconds(sec float64) (time.Duration, error) {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0, malformedf("duration %v is not finite", sec)
	}
	ns := math.Round(sec * float64(time.Second))
	switch {
	case ns > 0x1p63 || ns < -0x1p63:
		return 0, malformedf("duration %v seconds overflows", sec)
	case ns == 0x1p63:
		return time.Duration(math.MaxInt64), nil
	}
	return time.Duration(ns), nil
}

// EncodeHex returns the lowercase hex text of b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex parses hex text. The result is never nil.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, &MalformedBytesError{Text: s, Reason: "odd length"}
	}
	out := make([]byte, len(s)/2)
	if _, err := hex.Decode(out, []byte(s)); err != nil {
		return nil, &MalformedBytesError{Text: s, Reason: "invalid hex character"}
	}
	return out, nil
}

// FormatUUID returns the canonical 36-character hyphenated form of id.
func FormatUUID(id uuid.UUID) string {
	return id.String()
}

// ParseUUID accepts only the canonical 36-character hyphenated form.
func ParseUUID(s string) (uuid.UUID, error) {
	if len(s) != 36 {
		return uuid.UUID{}, malformedf("uuid %q: want 36 characters, got %d", truncate(s, 64), len(s))
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, malformedf("uuid %q: %v", s, err)
	}
	return id, nil
}

// formatFloat writes the shortest text that round-trips f and always reads
// back as a float. Plain notation is used for magnitudes in [1e-4, 1e16),
// exponent notation outside that range.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
