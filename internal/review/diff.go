package review

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// FileChange is one file's portion of a unified diff, prepared for review.
type FileChange struct {
	Path         string `json:"path"`
	IsNew        bool   `json:"is_new"`
	IsDelete     bool   `json:"is_delete"`
	IsBinary     bool   `json:"is_binary"`
	ChangedLines []int  `json:"changed_lines"`
	AddedContent string `json:"added_content"`
	Patch        string `json:"patch"`
}

// ParsePatch splits a unified diff into per-file changes. Binary files are
// skipped entirely; deletions come back as bare entries so the index can
// drop them, but they carry no reviewable content since removed code is
// never reviewed.
func ParsePatch(patch string) ([]FileChange, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(patch))
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	out := make([]FileChange, 0, len(files))
	for _, f := range files {
		if f.IsBinary {
			continue
		}
		if f.IsDelete {
			out = append(out, FileChange{Path: changePath(f), IsDelete: true})
			continue
		}
		fc := FileChange{
			Path:  changePath(f),
			IsNew: f.IsNew,
		}
		var added strings.Builder
		var patchText strings.Builder
		for _, frag := range f.TextFragments {
			patchText.WriteString(frag.Header())
			patchText.WriteString("\n")
			newLine := int(frag.NewPosition)
			for _, line := range frag.Lines {
				patchText.WriteString(line.Op.String())
				patchText.WriteString(line.Line)
				if !strings.HasSuffix(line.Line, "\n") {
					patchText.WriteString("\n")
				}
				switch line.Op {
				case gitdiff.OpAdd:
					fc.ChangedLines = append(fc.ChangedLines, newLine)
					added.WriteString(line.Line)
					if !strings.HasSuffix(line.Line, "\n") {
						added.WriteString("\n")
					}
					newLine++
				case gitdiff.OpContext:
					newLine++
				}
			}
		}
		fc.AddedContent = added.String()
		fc.Patch = patchText.String()
		if fc.AddedContent == "" {
			continue
		}
		out = append(out, fc)
	}
	return out, nil
}

func changePath(f *gitdiff.File) string {
	if f.NewName != "" {
		return f.NewName
	}
	return f.OldName
}
