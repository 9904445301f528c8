package store

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout renders local time at second precision; it sorts lexically.
const TimestampLayout = "20060102T150405"

// ErrUnknownDriver is returned by Open for an unrecognized backend name.
var ErrUnknownDriver = errors.New("unknown store driver")

// Record is one persisted invocation. Numeric sampling parameters are kept as
// strings. Records are immutable once written.
type Record struct {
	Timestamp   string `json:"timestamp" dynamodbav:"timestamp"`
	InputText   string `json:"input_text" dynamodbav:"input_text"`
	OutputText  string `json:"output_text" dynamodbav:"output_text"`
	ModelID     string `json:"model_id" dynamodbav:"model_id"`
	Temperature string `json:"temperature" dynamodbav:"temperature"`
	TopP        string `json:"top_p" dynamodbav:"top_p"`
}

// NewRecord stamps an invocation with now and formats its sampling parameters.
func NewRecord(now time.Time, input, output, modelID string, temperature, topP float64) Record {
	return Record{
		Timestamp:   now.Format(TimestampLayout),
		InputText:   input,
		OutputText:  output,
		ModelID:     modelID,
		Temperature: formatFloat(temperature),
		TopP:        formatFloat(topP),
	}
}

// Key is the record's primary key. Two invocations in the same second share a
// key and the later write wins.
func (r Record) Key() string { return r.Timestamp }

func (r Record) fields() map[string]any {
	return map[string]any{
		"timestamp":   r.Timestamp,
		"input_text":  r.InputText,
		"output_text": r.OutputText,
		"model_id":    r.ModelID,
		"temperature": r.Temperature,
		"top_p":       r.TopP,
	}
}

func recordFromFields(m map[string]string) Record {
	return Record{
		Timestamp:   m["timestamp"],
		InputText:   m["input_text"],
		OutputText:  m["output_text"],
		ModelID:     m["model_id"],
		Temperature: m["temperature"],
		TopP:        m["top_p"],
	}
}

// formatFloat renders f the way the records already in the table spell it:
// shortest round-trip digits, with ".0" on integral values (1 -> "1.0").
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// MaxScanLimit is the largest page any backend is asked for.
const MaxScanLimit = math.MaxInt32

func clampLimit(limit int) int {
	return min(limit, MaxScanLimit)
}

// Store is an append-only log of invocation records.
//
// Scan returns at most limit records in backend order, which is not
// guaranteed to be chronological. Get reports absence with ok=false and a nil
// error.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, key string) (rec Record, ok bool, err error)
	Scan(ctx context.Context, limit int) ([]Record, error)
	Ping(ctx context.Context) error
	Close() error
}
