package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"vigil/internal/plugins"
)

func profile(chunkLines, overlap, maxChars int) *plugins.Profile {
	return &plugins.Profile{
		Name:              "test",
		Category:          plugins.CategoryCode,
		ChunkLines:        chunkLines,
		ChunkLinesOverlap: overlap,
		MaxChars:          maxChars,
	}
}

func numberedLines(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	return sb.String()
}

func TestSplitOverlapBoundaries(t *testing.T) {
	content := numberedLines(45)
	chunks := Split(content, profile(40, 15, 1 << 20))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].StartLine != 0 || chunks[0].EndLine != 40 {
		t.Fatalf("first chunk spans [%d,%d), want [0,40)", chunks[0].StartLine, chunks[0].EndLine)
	}
	// Second window [40,45) extends back by the overlap to line 26 (1-based).
	if chunks[1].StartLine != 25 || chunks[1].EndLine != 45 {
		t.Fatalf("second chunk spans [%d,%d), want [25,45)", chunks[1].StartLine, chunks[1].EndLine)
	}
	if !strings.HasPrefix(chunks[1].Text, "line 26\n") {
		t.Fatalf("second chunk starts with %q", chunks[1].Text[:8])
	}
	if chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Fatalf("chunk indices not sequential: %d, %d", chunks[0].Index, chunks[1].Index)
	}
}

func TestSplitDeterministic(t *testing.T) {
	content := numberedLines(123)
	p := profile(40, 15, 300)
	a := Split(content, p)
	b := Split(content, p)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical input produced different chunks")
	}
}

func TestSplitShortFileSingleChunk(t *testing.T) {
	content := "package main\n\nfunc main() {}\n"
	chunks := Split(content, profile(40, 15, 1500))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != content {
		t.Fatalf("chunk text differs from content")
	}
	if chunks[0].StartLine != 0 || chunks[0].EndLine != 3 {
		t.Fatalf("chunk spans [%d,%d), want [0,3)", chunks[0].StartLine, chunks[0].EndLine)
	}
}

func TestSplitEmptyContent(t *testing.T) {
	if chunks := Split("", profile(40, 15, 1500)); len(chunks) != 0 {
		t.Fatalf("empty content yielded %d chunks", len(chunks))
	}
}

func TestSplitMaxCharsSubdivides(t *testing.T) {
	// 10 lines of 50 chars each with max_chars 120: every window must be
	// re-split on line boundaries without ever cutting a line.
	line := strings.Repeat("x", 49) + "\n"
	content := strings.Repeat(line, 10)
	chunks := Split(content, profile(10, 0, 120))
	if len(chunks) < 4 {
		t.Fatalf("expected sub-splitting, got %d chunks", len(chunks))
	}
	var rebuilt strings.Builder
	for i, c := range chunks {
		if len(c.Text) > 120 {
			t.Fatalf("chunk %d exceeds max_chars: %d", i, len(c.Text))
		}
		if len(c.Text)%50 != 0 {
			t.Fatalf("chunk %d split mid-line: %d chars", i, len(c.Text))
		}
		rebuilt.WriteString(c.Text)
	}
	if rebuilt.String() != content {
		t.Fatalf("sub-split chunks do not cover the file")
	}
}

func TestSplitOversizedSingleLineKeptWhole(t *testing.T) {
	content := strings.Repeat("y", 500) + "\n"
	chunks := Split(content, profile(10, 0, 100))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for a single oversized line, got %d", len(chunks))
	}
	if chunks[0].Text != content {
		t.Fatalf("oversized line was cut")
	}
}

func TestSplitNoTrailingNewline(t *testing.T) {
	chunks := Split("a\nb\nc", profile(40, 15, 1500))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].EndLine != 3 {
		t.Fatalf("EndLine = %d, want 3", chunks[0].EndLine)
	}
}
