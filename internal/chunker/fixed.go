package chunker

import (
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
)

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// fixed slides a window of ChunkSize runes over text, retracting Overlap
// runes between windows. A cut that falls mid-text moves back to the
// nearest sentence terminator, never below MinChunkSize and never onto or
// before the previous cut, so chunk ends strictly increase.
func (c *TextChunker) fixed(text string, opts domain.ChunkOptions) []domain.Chunk {
	r := []rune(text)
	n := len(r)
	var chunks []domain.Chunk
	start, seq, prevEnd := 0, 0, 0
	for start < n {
		end := start + opts.ChunkSize
		if end > n {
			end = n
		}
		if end < n {
			for i := end - 1; i >= max(start+opts.MinChunkSize, prevEnd); i-- {
				if isTerminator(r[i]) {
					end = i + 1
					break
				}
			}
		}
		piece := strings.TrimSpace(string(r[start:end]))
		last := end >= n
		if piece != "" && (utf8.RuneCountInString(piece) >= opts.MinChunkSize || (last && len(chunks) == 0)) {
			chunks = append(chunks, c.newChunk(piece, seq, start, end))
		}
		seq++
		if last {
			break
		}
		// a cut closer than Overlap to start would revisit the same terminator
		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start, prevEnd = next, end
	}
	return chunks
}
