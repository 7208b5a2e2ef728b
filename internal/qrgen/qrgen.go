// Package qrgen renders printable badge QR codes from a roster. The
// payload is the same JSON shape the scan pipeline parses, with key order
// fixed so generated and hand-authored badges look alike.
package qrgen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"turnstile/internal/roster"
)

// ImageSize is the rendered badge edge in pixels.
const ImageSize = 512

// Generate writes one PNG per roster entry into outDir and returns the
// written paths in roster order. The event name is embedded in every badge
// so scans record against it even when the kiosk is configured differently.
func Generate(entries []roster.Entry, event, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		payload, err := Payload(entry, event)
		if err != nil {
			return paths, fmt.Errorf("badge payload for %s: %w", entry.ID, err)
		}
		path := filepath.Join(outDir, Filename(entry))
		if err := qrcode.WriteFile(payload, qrcode.Medium, ImageSize, path); err != nil {
			return paths, fmt.Errorf("write badge %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Payload builds the badge JSON with id first, then name and event, then
// extras under "extra" in roster column order.
func Payload(entry roster.Entry, event string) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	if err := writePair(&b, "id", entry.ID); err != nil {
		return "", err
	}
	b.WriteByte(',')
	if err := writePair(&b, "name", entry.Name); err != nil {
		return "", err
	}
	if event != "" {
		b.WriteByte(',')
		if err := writePair(&b, "event", event); err != nil {
			return "", err
		}
	}
	if len(entry.Extra) > 0 {
		b.WriteString(`,"extra":{`)
		for i, field := range entry.Extra {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writePair(&b, field.Key, field.Value); err != nil {
				return "", err
			}
		}
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Filename derives a filesystem-safe badge name from id and name.
func Filename(entry roster.Entry) string {
	base := entry.ID
	if entry.Name != "" {
		base += "-" + entry.Name
	}
	return sanitize(base) + ".png"
}

func writePair(b *strings.Builder, key, value string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	b.Write(k)
	b.WriteByte(':')
	b.Write(v)
	return nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
}
