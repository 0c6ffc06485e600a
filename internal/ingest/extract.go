package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"golang.org/x/text/encoding/charmap"
)

var ErrEmptyDocument = errors.New("arquivo vazio ou nao lido")

// Extract returns the plain text of raw. Text types pass through as UTF-8,
// falling back to Latin-1; everything else goes through docconv.
func Extract(raw []byte, mimeType string) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmptyDocument
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" || strings.HasPrefix(mt, "text/") || mt == "application/json" {
		return decodeText(raw)
	}
	res, err := docconv.Convert(bytes.NewReader(raw), mt, false)
	if err != nil {
		return "", fmt.Errorf("docconv %s: %w", mt, err)
	}
	text := strings.TrimSpace(res.Body)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	b, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(b), nil
}

// DefaultChunkSize is the character budget of one chunk.
const DefaultChunkSize = 1200

// Chunk groups whole lines into chunks of at most maxChars characters. A
// single longer line becomes its own chunk.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}
	var (
		parts []string
		buf   []string
		count int
	)
	flush := func() {
		if joined := strings.TrimSpace(strings.Join(buf, "\n")); joined != "" {
			parts = append(parts, joined)
		}
		buf, count = nil, 0
	}
	for _, line := range strings.Split(text, "\n") {
		if count+len(line) > maxChars && len(buf) > 0 {
			flush()
		}
		buf = append(buf, line)
		count += len(line)
	}
	flush()
	return parts
}
