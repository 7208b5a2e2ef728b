package payload_test

import (
	"reflect"
	"testing"
	"time"

	"turnstile/internal/payload"
	"turnstile/internal/record"
)

var captureTime = time.Date(2026, 8, 29, 10, 30, 0, 0, time.FixedZone("CST", 8*3600))

func TestParseStructuredPayload(t *testing.T) {
	data := `{"id":"A001","name":"王小明","event":"Demo","extra":{"email":"a@x.com","company":"ACME"}}`

	rec := payload.Parse(data, "Fallback Event", captureTime)

	if rec.Raw != "" {
		t.Fatalf("structured payload must leave raw empty, got %q", rec.Raw)
	}
	if rec.ID != "A001" || rec.Name != "王小明" {
		t.Fatalf("unexpected identity fields %q/%q", rec.ID, rec.Name)
	}
	if rec.Event != "Demo" {
		t.Fatalf("payload event should override session event, got %q", rec.Event)
	}
	want := []record.Field{{Key: "email", Value: "a@x.com"}, {Key: "company", Value: "ACME"}}
	if !reflect.DeepEqual(rec.Extra, want) {
		t.Fatalf("unexpected extra fields %v", rec.Extra)
	}
	if rec.Timestamp != captureTime.Format(time.RFC3339) {
		t.Fatalf("timestamp must be the capture time, got %q", rec.Timestamp)
	}
	if rec.ScanID == "" {
		t.Fatal("expected scan id to be assigned")
	}
}

func TestParseRawFallback(t *testing.T) {
	for _, data := range []string{"hello", `["not","an","object"]`, `{"broken`, "42"} {
		rec := payload.Parse(data, "Demo", captureTime)
		if rec.Raw != data {
			t.Fatalf("%q: expected verbatim raw, got %q", data, rec.Raw)
		}
		if rec.ID != "" || rec.Name != "" || len(rec.Extra) != 0 {
			t.Fatalf("%q: fallback record must not carry structured fields: %#v", data, rec)
		}
		if rec.Event != "Demo" {
			t.Fatalf("%q: expected session event, got %q", data, rec.Event)
		}
	}
}

func TestParseMissingKeysAreEmptyNotFailure(t *testing.T) {
	rec := payload.Parse(`{"name":"Alice"}`, "Demo", captureTime)
	if rec.Raw != "" {
		t.Fatal("object payload should parse as structured")
	}
	if rec.ID != "" {
		t.Fatalf("missing id should be empty, got %q", rec.ID)
	}
	if rec.Name != "Alice" {
		t.Fatalf("unexpected name %q", rec.Name)
	}
}

func TestParseUnrecognizedTopLevelKeysBecomeExtra(t *testing.T) {
	rec := payload.Parse(`{"id":"A1","badge":"VIP","seat":7}`, "Demo", captureTime)
	want := []record.Field{{Key: "badge", Value: "VIP"}, {Key: "seat", Value: "7"}}
	if !reflect.DeepEqual(rec.Extra, want) {
		t.Fatalf("unexpected extra fields %v", rec.Extra)
	}
}

func TestParseEmptyPayloadEventKeptFromSession(t *testing.T) {
	rec := payload.Parse(`{"id":"A1","event":""}`, "Session Event", captureTime)
	if rec.Event != "Session Event" {
		t.Fatalf("empty payload event should not override, got %q", rec.Event)
	}
}

func TestKey(t *testing.T) {
	cases := []struct {
		data string
		want string
	}{
		{`{"id":"A001","name":"x"}`, "A001"},
		{`{"id":123,"name":"x"}`, "123"},
		{`{"name":"no id"}`, `{"name":"no id"}`},
		{"hello", "hello"},
	}
	for _, tc := range cases {
		if got := payload.Key(tc.data); got != tc.want {
			t.Fatalf("Key(%q) = %q, want %q", tc.data, got, tc.want)
		}
	}
}

func TestKeyMatchesParsedDedupKey(t *testing.T) {
	for _, data := range []string{
		`{"id":"A001","name":"x"}`,
		`{"id":123}`,
		`{"id":true}`,
		"hello",
	} {
		rec := payload.Parse(data, "Demo", captureTime)
		if got := payload.Key(data); got != rec.DedupKey() {
			t.Fatalf("%q: Key gave %q but parsed record dedups on %q", data, got, rec.DedupKey())
		}
	}
}
