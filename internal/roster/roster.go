// Package roster reads attendee lists from CSV for badge generation. The
// first row names the columns; id and name are required and every other
// column is carried as an extra field in column order.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"turnstile/internal/record"
)

// Entry is one attendee from the roster.
type Entry struct {
	ID    string
	Name  string
	Extra []record.Field
}

// Load parses the roster file. A UTF-8 byte order mark, common in
// spreadsheet exports, is stripped transparently.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(f, decoder))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	idCol, nameCol := -1, -1
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
		switch strings.ToLower(header[i]) {
		case "id":
			idCol = i
		case "name":
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("roster header must contain id and name columns, got %v", header)
	}

	var entries []Entry
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster: %w", err)
		}
		line++

		entry := Entry{
			ID:   strings.TrimSpace(row[idCol]),
			Name: strings.TrimSpace(row[nameCol]),
		}
		if entry.ID == "" {
			return nil, fmt.Errorf("roster line %d: empty id", line)
		}
		for i, value := range row {
			if i == idCol || i == nameCol {
				continue
			}
			if i >= len(header) {
				break
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			entry.Extra = append(entry.Extra, record.Field{Key: header[i], Value: value})
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("roster %s has no entries", path)
	}
	return entries, nil
}
