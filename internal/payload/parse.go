// Package payload turns scanned QR payload strings into attendance records.
//
// Structured payloads are JSON objects with the recognized keys id, name,
// event, and a nested extra mapping; anything else is kept verbatim in the
// record's raw field. Extra keys keep their document order so the sheet
// header evolves in first-seen order.
package payload

import (
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"

	"turnstile/internal/record"
)

// Parse converts a scanned payload into an attendance record. The timestamp
// is fixed to the capture time, and event is the session's event name unless
// the payload carries its own.
func Parse(data, event string, capturedAt time.Time) record.Record {
	rec := record.Record{
		ScanID:    uuid.NewString(),
		Timestamp: capturedAt.Format(time.RFC3339),
		Event:     event,
	}

	value, err := fastjson.Parse(data)
	if err != nil || value.Type() != fastjson.TypeObject {
		rec.Raw = data
		return rec
	}
	obj, err := value.Object()
	if err != nil {
		rec.Raw = data
		return rec
	}

	obj.Visit(func(key []byte, v *fastjson.Value) {
		switch string(key) {
		case "id":
			rec.ID = stringValue(v)
		case "name":
			rec.Name = stringValue(v)
		case "event":
			if name := stringValue(v); name != "" {
				rec.Event = name
			}
		case "extra":
			if nested, err := v.Object(); err == nil {
				nested.Visit(func(k []byte, nv *fastjson.Value) {
					rec.Extra = append(rec.Extra, record.Field{Key: string(k), Value: stringValue(nv)})
				})
			}
		default:
			rec.Extra = append(rec.Extra, record.Field{Key: string(key), Value: stringValue(v)})
		}
	})
	return rec
}

// Key derives the duplicate-suppression key for a payload without a full
// parse: the structured id when present, otherwise the payload itself.
// Ids are coerced the same way Parse coerces them, so a record's DedupKey
// always matches the key its scan was gated on.
func Key(data string) string {
	value, err := fastjson.Parse(data)
	if err != nil || value.Type() != fastjson.TypeObject {
		return data
	}
	if id := stringValue(value.Get("id")); id != "" {
		return id
	}
	return data
}

func stringValue(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNull:
		return ""
	default:
		return string(v.MarshalTo(nil))
	}
}
