// Package record defines the attendance record produced by the scan
// pipeline and its mapping onto spreadsheet rows.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FixedColumns are the leading sheet columns, always present and always in
// this order. Extra payload keys are appended after them, first seen first.
var FixedColumns = []string{"timestamp", "event", "id", "name", "raw"}

// Field is one ordered key/value pair from a payload's extra mapping.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is a single attendance sign-in. Either Raw holds the verbatim
// payload (unstructured scan) or ID/Name/Extra hold the structured fields;
// the two forms are mutually exclusive.
type Record struct {
	ScanID    string  `json:"scan_id"`
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Raw       string  `json:"raw,omitempty"`
	Extra     []Field `json:"extra,omitempty"`
}

// Structured reports whether the payload parsed as structured data.
func (r Record) Structured() bool {
	return r.Raw == ""
}

// DedupKey returns the key used for duplicate suppression: the structured
// id when present, otherwise the raw payload string.
func (r Record) DedupKey() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Raw
}

// Label returns a short human-readable description for status output.
func (r Record) Label() string {
	switch {
	case r.Name != "" && r.ID != "":
		return fmt.Sprintf("%s (%s)", r.Name, r.ID)
	case r.Name != "":
		return r.Name
	case r.ID != "":
		return r.ID
	default:
		raw := r.Raw
		if len(raw) > 40 {
			raw = raw[:40] + "…"
		}
		return raw
	}
}

// MissingColumns returns the extra keys not yet present in header, in
// first-seen order. Fixed columns never appear in the result.
func (r Record) MissingColumns(header []string) []string {
	known := make(map[string]struct{}, len(header))
	for _, col := range header {
		known[col] = struct{}{}
	}
	var missing []string
	for _, field := range r.Extra {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		missing = append(missing, key)
	}
	return missing
}

// Row maps the record onto the given header, one value per column. Columns
// the record has no value for are empty strings.
func (r Record) Row(header []string) []string {
	row := make([]string, len(header))
	for i, col := range header {
		row[i] = r.value(col)
	}
	return row
}

func (r Record) value(column string) string {
	switch column {
	case "timestamp":
		return r.Timestamp
	case "event":
		return r.Event
	case "id":
		return r.ID
	case "name":
		return r.Name
	case "raw":
		return r.Raw
	}
	for _, field := range r.Extra {
		if field.Key == column {
			return field.Value
		}
	}
	return ""
}

// Marshal encodes the record for durable spooling.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal decodes a spooled record.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}
