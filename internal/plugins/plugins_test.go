package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEmbeddedProfiles(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("load embedded profiles: %v", err)
	}
	langs := r.Languages()
	if len(langs) < 5 {
		t.Fatalf("expected at least 5 code profiles, got %v", langs)
	}
	for _, want := range []string{"c", "go", "python"} {
		found := false
		for _, l := range langs {
			if l == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("language %s missing from %v", want, langs)
		}
	}
}

func TestResolveByExtension(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p := r.Resolve(".go"); p.Name != "go" || p.Category != CategoryCode {
		t.Fatalf("resolve .go: got %s/%s", p.Name, p.Category)
	}
	if p := r.Resolve(".C"); p.Name != "c" {
		t.Fatalf("extension matching must be case-insensitive, got %s", p.Name)
	}
	if p := r.Resolve(".xyz"); p.Category != CategoryDocs {
		t.Fatalf("unknown extension must fall back to docs, got %s", p.Category)
	}
	if r.Supported(".xyz") {
		t.Fatalf("unknown extension reported as supported")
	}
	if !r.Supported(".md") {
		t.Fatalf(".md must be supported as docs")
	}
}

func TestCodeProfilesDefineRequiredPrompts(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, ext := range r.CodeExtensions() {
		p := r.Resolve(ext)
		for _, key := range requiredCodePrompts {
			if strings.TrimSpace(p.Prompt(key)) == "" {
				t.Fatalf("profile %s missing prompt %s", p.Name, key)
			}
		}
	}
}

func TestGeneralPrompts(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(r.General(GeneralReviewReport), SchemaPlaceholder) {
		t.Fatalf("report prompt must carry the schema placeholder")
	}
	if !strings.Contains(r.General(GeneralRetrieveContext), "{file_path}") {
		t.Fatalf("retrieve prompt must carry {file_path}")
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"missing report prompt": `
general_prompts:
  retrieve_context: "about {file_path}"
docs:
  supported_extensions: [".md"]
  splitting: {chunk_lines: 10, chunk_lines_overlap: 2, max_chars: 100}
plugins: {}
`,
		"overlap >= chunk_lines": `
general_prompts:
  retrieve_context: "about {file_path}"
  security_review_report: "fields: [[REVIEW_SCHEMA_FIELDS]]"
docs:
  supported_extensions: [".md"]
  splitting: {chunk_lines: 10, chunk_lines_overlap: 10, max_chars: 100}
plugins: {}
`,
		"extension without dot": `
general_prompts:
  retrieve_context: "about {file_path}"
  security_review_report: "fields: [[REVIEW_SCHEMA_FIELDS]]"
docs:
  supported_extensions: ["md"]
  splitting: {chunk_lines: 10, chunk_lines_overlap: 2, max_chars: 100}
plugins: {}
`,
	}
	for name, yaml := range cases {
		path := writeTemp(t, yaml)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected load error", name)
		}
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(f, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return f
}

func TestRender(t *testing.T) {
	got := Render("review {file_path} with {issues}", map[string]string{"file_path": "a.go"})
	if got != "review a.go with {issues}" {
		t.Fatalf("render: %q", got)
	}
	if Render("plain", nil) != "plain" {
		t.Fatalf("render with no vars must be identity")
	}
}
