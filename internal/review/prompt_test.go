package review

import (
	"strings"
	"testing"

	"vigil/internal/plugins"
)

func loadRegistry(t *testing.T) *plugins.Registry {
	t.Helper()
	reg, err := plugins.Load("")
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	return reg
}

func TestBuildReviewSystemPrompt(t *testing.T) {
	reg := loadRegistry(t)
	p := reg.Resolve(".go")

	sys, err := BuildReviewSystemPrompt(reg, p, ModeFile, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sys, p.Prompt(plugins.PromptSecurityReviewFile)) {
		t.Fatalf("file mode must use the whole-file review prompt")
	}
	if !strings.Contains(sys, "\"code_snippet\"") {
		t.Fatalf("schema section not substituted into report prompt")
	}
	if strings.Contains(sys, plugins.SchemaPlaceholder) {
		t.Fatalf("schema placeholder left unsubstituted")
	}

	sys, err = BuildReviewSystemPrompt(reg, p, ModeChange, "")
	if err != nil {
		t.Fatalf("build change mode: %v", err)
	}
	if !strings.Contains(sys, p.Prompt(plugins.PromptSecurityReview)) {
		t.Fatalf("change mode must use the change review prompt")
	}
}

func TestBuildReviewSystemPromptCustomGuidance(t *testing.T) {
	reg := loadRegistry(t)
	p := reg.Resolve(".c")
	sys, err := BuildReviewSystemPrompt(reg, p, ModeFile, "Ignore test fixtures under testdata/.")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	precedence := reg.General(plugins.GeneralGuidancePrecedence)
	gi := strings.Index(sys, "Ignore test fixtures under testdata/.")
	pi := strings.Index(sys, strings.TrimSpace(precedence))
	if gi < 0 || pi < 0 || pi > gi {
		t.Fatalf("custom guidance must follow the precedence note")
	}
}

func TestBuildValidationSystemPrompt(t *testing.T) {
	reg := loadRegistry(t)
	p := reg.Resolve(".py")
	sys, err := BuildValidationSystemPrompt(reg, p)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sys, p.Prompt(plugins.PromptValidationReview)) {
		t.Fatalf("validation prompt missing profile template")
	}
	if !strings.Contains(sys, "\"reviews\"") && !strings.Contains(sys, "reviews") {
		t.Fatalf("validation prompt missing report contract")
	}
}

func TestBuildBodyText(t *testing.T) {
	fileUnit := Unit{Mode: ModeFile, RelPath: "pkg/auth.go", Snippet: "func Login() {}"}
	body := BuildBodyText(fileUnit, "auth is called from the HTTP layer")
	if !strings.HasPrefix(body, "FILE: pkg/auth.go\n\nSNIPPET:\nfunc Login() {}") {
		t.Fatalf("file body framing wrong: %q", body)
	}
	if !strings.Contains(body, "CONTEXT:\nauth is called from the HTTP layer") {
		t.Fatalf("context section missing: %q", body)
	}

	changeUnit := Unit{Mode: ModeChange, RelPath: "pkg/auth.go", OriginalFile: "old content", Patch: "+new line"}
	body = BuildBodyText(changeUnit, "")
	if !strings.Contains(body, "ORIGINAL_FILE: pkg/auth.go\nold content") {
		t.Fatalf("change body missing original file: %q", body)
	}
	if !strings.Contains(body, "FILE_CHANGES:\n+new line") {
		t.Fatalf("change body missing patch: %q", body)
	}
	if strings.Contains(body, "CONTEXT:") {
		t.Fatalf("empty context must not emit a context section")
	}
}
