// Package chunker splits source files into overlapping, size-bounded,
// line-aligned chunks for embedding and retrieval.
package chunker

import (
	"strings"

	"vigil/internal/plugins"
)

// Chunk is a bounded, line-aligned slice of a source file. StartLine is
// 0-based inclusive, EndLine exclusive. Chunks within a file are totally
// ordered by Index.
type Chunk struct {
	Index     int
	StartLine int
	EndLine   int
	Text      string
}

// Split chunks file content using the profile's chunking parameters. It is
// deterministic: identical content and profile always yield identical
// boundaries. Empty content yields zero chunks; content shorter than
// chunk_lines yields exactly one.
//
// The file is partitioned into windows of chunk_lines lines, every window
// after the first is extended backward by chunk_lines_overlap lines, and
// any window whose text exceeds max_chars is split further on line
// boundaries. Lines are never split mid-line, even when a single line
// exceeds max_chars.
func Split(content string, p *plugins.Profile) []Chunk {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil
	}

	chunkLines := p.ChunkLines
	overlap := p.ChunkLinesOverlap

	out := make([]Chunk, 0, len(lines)/chunkLines+1)
	for start := 0; start < len(lines); start += chunkLines {
		end := start + chunkLines
		if end > len(lines) {
			end = len(lines)
		}
		extStart := start
		if start > 0 {
			extStart = start - overlap
		}
		out = append(out, capChars(lines, extStart, end, p.MaxChars)...)
	}
	for i := range out {
		out[i].Index = i
	}
	return out
}

// capChars emits the [start,end) line window as one chunk when it fits in
// maxChars, otherwise greedily accumulates whole lines into sub-chunks.
func capChars(lines []string, start, end, maxChars int) []Chunk {
	text := strings.Join(lines[start:end], "")
	if len(text) <= maxChars {
		return []Chunk{{StartLine: start, EndLine: end, Text: text}}
	}

	var out []Chunk
	subStart := start
	var sb strings.Builder
	for i := start; i < end; i++ {
		if sb.Len() > 0 && sb.Len()+len(lines[i]) > maxChars {
			out = append(out, Chunk{StartLine: subStart, EndLine: i, Text: sb.String()})
			subStart = i
			sb.Reset()
		}
		sb.WriteString(lines[i])
	}
	if sb.Len() > 0 {
		out = append(out, Chunk{StartLine: subStart, EndLine: end, Text: sb.String()})
	}
	return out
}

// splitLines splits content keeping line terminators, dropping the empty
// trailing element a final newline produces.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
