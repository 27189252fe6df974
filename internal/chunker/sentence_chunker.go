package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"docrag/internal/domain"
)

var (
	sentenceBoundaryRe  = regexp.MustCompile(`[.!?]+\s+`)
	paragraphBoundaryRe = regexp.MustCompile(`\n[ \t\r]*\n\s*`)
)

// segment is a trimmed piece of the source with rune offsets.
type segment struct {
	text       string
	start, end int
}

// splitSentences cuts after each terminator that is followed by whitespace.
// The terminator stays with its sentence.
func splitSentences(text string) []segment {
	return split(text, sentenceBoundaryRe, func(m []int) int {
		return m[0] + len(strings.TrimRightFunc(text[m[0]:m[1]], unicode.IsSpace))
	})
}

// splitParagraphs cuts on blank lines.
func splitParagraphs(text string) []segment {
	return split(text, paragraphBoundaryRe, func(m []int) int { return m[0] })
}

func split(text string, re *regexp.Regexp, keepEnd func(m []int) int) []segment {
	var segs []segment
	pos := newRuneCounter(text)
	from := 0
	add := func(lo, hi int) {
		raw := text[lo:hi]
		trimmedLeft := strings.TrimLeftFunc(raw, unicode.IsSpace)
		trimmed := strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
		if trimmed == "" {
			return
		}
		lo += len(raw) - len(trimmedLeft)
		hi = lo + len(trimmed)
		segs = append(segs, segment{text: trimmed, start: pos.at(lo), end: pos.at(hi)})
	}
	for _, m := range re.FindAllStringIndex(text, -1) {
		add(from, keepEnd(m))
		from = m[1]
	}
	add(from, len(text))
	return segs
}

// accumulate packs consecutive segments into chunks no longer than
// MaxChunkSize. A segment that does not fit starts the next chunk. The
// trailing buffer is kept only when it reaches MinChunkSize, unless it is
// the whole document.
func (c *TextChunker) accumulate(segs []segment, sep string, opts domain.ChunkOptions) []domain.Chunk {
	var chunks []domain.Chunk
	var buf []segment
	bufLen := 0
	sepLen := utf8.RuneCountInString(sep)

	flush := func() {
		texts := make([]string, len(buf))
		for i, s := range buf {
			texts[i] = s.text
		}
		chunks = append(chunks, c.newChunk(strings.Join(texts, sep), len(chunks), buf[0].start, buf[len(buf)-1].end))
		buf = buf[:0]
		bufLen = 0
	}

	for _, s := range segs {
		n := utf8.RuneCountInString(s.text)
		if len(buf) > 0 && bufLen+sepLen+n > opts.MaxChunkSize {
			flush()
		}
		if len(buf) > 0 {
			bufLen += sepLen
		}
		buf = append(buf, s)
		bufLen += n
	}
	if len(buf) > 0 && (bufLen >= opts.MinChunkSize || len(chunks) == 0) {
		flush()
	}
	return chunks
}

// runeCounter converts increasing byte offsets to rune offsets.
type runeCounter struct {
	text    string
	byteOff int
	runeOff int
}

func newRuneCounter(text string) *runeCounter { return &runeCounter{text: text} }

func (rc *runeCounter) at(b int) int {
	if b < rc.byteOff {
		rc.byteOff, rc.runeOff = 0, 0
	}
	rc.runeOff += utf8.RuneCountInString(rc.text[rc.byteOff:b])
	rc.byteOff = b
	return rc.runeOff
}
