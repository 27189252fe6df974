// Package extract turns raw documents into plain text for indexing.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"docrag/internal/domain"
)

// ErrUnsupportedFormat is returned for files no extractor handles.
var ErrUnsupportedFormat = &domain.Error{Kind: domain.KindUnsupported, Message: "unsupported document format", Recoverable: true}

// pageBreak separates pages in plain-text exports.
const pageBreak = "\f"

// PlainText reads UTF-8 text and markdown files.
type PlainText struct {
	now func() time.Time
}

// NewPlainText returns a plain-text extractor.
func NewPlainText() *PlainText {
	return &PlainText{now: time.Now}
}

// Supports reports whether name has an extension PlainText reads.
func (p *PlainText) Supports(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown", ".text":
		return true
	}
	return false
}

// Extract reads r fully. Pages are split on form feeds; invalid UTF-8 is
// replaced.
func (p *PlainText) Extract(ctx context.Context, name string, r io.Reader) (domain.Extraction, error) {
	start := p.now()
	if !p.Supports(name) {
		return domain.Extraction{}, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
	if err := ctx.Err(); err != nil {
		return domain.Extraction{}, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read %s: %w", name, err)
	}
	text := strings.ToValidUTF8(string(raw), "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	pages := 1
	if strings.Contains(text, pageBreak) {
		parts := strings.Split(text, pageBreak)
		kept := parts[:0]
		for _, part := range parts {
			if strings.TrimSpace(part) != "" {
				kept = append(kept, strings.TrimSpace(part))
			}
		}
		pages = max(1, len(kept))
		text = strings.Join(kept, "\n\n")
	}
	text = strings.TrimSpace(text)
	return domain.Extraction{
		Text:      text,
		PageCount: pages,
		CharCount: utf8.RuneCountInString(text),
		Elapsed:   p.now().Sub(start),
	}, nil
}

// File opens path and extracts it with e.
func File(ctx context.Context, e domain.Extractor, path string) (domain.Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Extraction{}, err
	}
	defer f.Close()
	return e.Extract(ctx, filepath.Base(path), f)
}
