package roster_test

import (
	"os"
	"path/filepath"
	"testing"

	"turnstile/internal/roster"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "roster.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestLoadBasicRoster(t *testing.T) {
	path := writeRoster(t, "id,name\nA001,Ada Lovelace\nA002,王小明\n")

	entries, err := roster.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "A001" || entries[0].Name != "Ada Lovelace" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Name != "王小明" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestLoadStripsByteOrderMark(t *testing.T) {
	path := writeRoster(t, "\xEF\xBB\xBFid,name\nB001,Visitor\n")

	entries, err := roster.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entries[0].ID != "B001" {
		t.Fatalf("BOM leaked into parsing: %+v", entries[0])
	}
}

func TestLoadCarriesExtraColumnsInOrder(t *testing.T) {
	path := writeRoster(t, "id,ticket,name,seat\nC001,VIP,Visitor,12A\n")

	entries, err := roster.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	extra := entries[0].Extra
	if len(extra) != 2 {
		t.Fatalf("expected 2 extras, got %+v", extra)
	}
	if extra[0].Key != "ticket" || extra[0].Value != "VIP" {
		t.Fatalf("unexpected first extra: %+v", extra[0])
	}
	if extra[1].Key != "seat" || extra[1].Value != "12A" {
		t.Fatalf("unexpected second extra: %+v", extra[1])
	}
}

func TestLoadRejectsMissingColumns(t *testing.T) {
	path := writeRoster(t, "ident,fullname\nX,Y\n")
	if _, err := roster.Load(path); err == nil {
		t.Fatal("expected error for missing id and name columns")
	}
}

func TestLoadRejectsEmptyID(t *testing.T) {
	path := writeRoster(t, "id,name\n,No ID\n")
	if _, err := roster.Load(path); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestLoadRejectsEmptyRoster(t *testing.T) {
	path := writeRoster(t, "id,name\n")
	if _, err := roster.Load(path); err == nil {
		t.Fatal("expected error for roster with no entries")
	}
}
