package review

import "strings"

const snippetMatchThreshold = 0.80

// Enrich fills in the line number of each finding by locating its snippet in
// the reviewed file content. Findings whose snippets cannot be located keep
// line 1 so downstream report writers always have a usable position.
func Enrich(findings []Finding, content string) []Finding {
	for i := range findings {
		findings[i].LineNumber = FindSnippetLine(content, findings[i].CodeSnippet)
		if findings[i].CWE == "" {
			findings[i].CWE = "CWE-Unknown"
		}
	}
	return findings
}

// FindSnippetLine returns the 1-based line where snippet best matches
// content. It first tries an exact normalized window match, then falls back
// to a similarity scan accepting matches at or above 0.80. Returns 1 when
// nothing qualifies.
func FindSnippetLine(content, snippet string) int {
	snippetLines := nonEmptyNormalized(strings.Split(snippet, "\n"))
	if len(snippetLines) == 0 {
		return 1
	}
	// Blank lines are skipped on both sides so vertical spacing never
	// shifts the window, but reported line numbers stay original.
	var normalized []string
	var lineNums []int
	for i, line := range strings.Split(content, "\n") {
		if n := normalizeLine(line); n != "" {
			normalized = append(normalized, n)
			lineNums = append(lineNums, i+1)
		}
	}

	window := len(snippetLines)
	bestLine, bestScore := 1, 0.0
	for start := 0; start+window <= len(normalized); start++ {
		score := windowScore(normalized[start:start+window], snippetLines)
		if score == 1.0 {
			return lineNums[start]
		}
		if score > bestScore {
			bestScore = score
			bestLine = lineNums[start]
		}
	}
	if bestScore >= snippetMatchThreshold {
		return bestLine
	}
	return 1
}

func windowScore(window, snippet []string) float64 {
	matched := 0
	for i := range snippet {
		if lineSimilarity(window[i], snippet[i]) >= snippetMatchThreshold {
			matched++
		}
	}
	return float64(matched) / float64(len(snippet))
}

// lineSimilarity is the ratio of the longest common subsequence to the mean
// length of the two normalized lines.
func lineSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	lcs := lcsLength(a, b)
	return 2.0 * float64(lcs) / float64(len(a)+len(b))
}

func lcsLength(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
			} else if prev[j+1] >= cur[j] {
				cur[j+1] = prev[j+1]
			} else {
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func normalizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nonEmptyNormalized(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if n := normalizeLine(line); n != "" {
			out = append(out, n)
		}
	}
	return out
}
