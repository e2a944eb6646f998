package review

import (
	"fmt"
	"strings"

	"vigil/internal/plugins"
)

// BuildReviewSystemPrompt assembles the system prompt for a review unit from
// the language profile: the mode-specific review prompt, the language checks,
// and the report prompt with the schema section substituted in. Custom
// guidance, when present, is appended together with the precedence note so
// it overrides defaults without replacing them.
func BuildReviewSystemPrompt(reg *plugins.Registry, profile *plugins.Profile, mode Mode, customGuidance string) (string, error) {
	key := plugins.PromptSecurityReviewFile
	if mode == ModeChange {
		key = plugins.PromptSecurityReview
	}
	base := profile.Prompt(key)
	if base == "" {
		return "", fmt.Errorf("profile %s has no %s prompt", profile.Name, key)
	}

	report := reg.General(plugins.GeneralReviewReport)
	if !strings.Contains(report, plugins.SchemaPlaceholder) {
		return "", fmt.Errorf("report prompt missing schema placeholder")
	}
	report = strings.ReplaceAll(report, plugins.SchemaPlaceholder, SchemaPromptSection)

	parts := []string{base}
	if checks := profile.Prompt(plugins.PromptSecurityReviewChecks); checks != "" {
		parts = append(parts, checks)
	}
	parts = append(parts, report)
	if g := strings.TrimSpace(customGuidance); g != "" {
		parts = append(parts, reg.General(plugins.GeneralGuidancePrecedence), g)
	}
	return strings.Join(parts, "\n\n"), nil
}

// BuildValidationSystemPrompt assembles the validation-pass prompt. The same
// report schema applies because the validator re-emits the findings it keeps.
func BuildValidationSystemPrompt(reg *plugins.Registry, profile *plugins.Profile) (string, error) {
	base := profile.Prompt(plugins.PromptValidationReview)
	if base == "" {
		return "", fmt.Errorf("profile %s has no %s prompt", profile.Name, plugins.PromptValidationReview)
	}
	report := reg.General(plugins.GeneralReviewReport)
	if !strings.Contains(report, plugins.SchemaPlaceholder) {
		return "", fmt.Errorf("report prompt missing schema placeholder")
	}
	report = strings.ReplaceAll(report, plugins.SchemaPlaceholder, SchemaPromptSection)
	return base + "\n\n" + report, nil
}

// BuildBodyText frames the user message for a review unit. Full-file units
// present the file and its snippet; change units present the pre-change file
// and the patch hunks. Retrieved context, when present, follows under its
// own heading in both modes.
func BuildBodyText(u Unit, context string) string {
	var sb strings.Builder
	switch u.Mode {
	case ModeChange:
		sb.WriteString("ORIGINAL_FILE: " + u.RelPath + "\n")
		sb.WriteString(u.OriginalFile)
		sb.WriteString("\n\nFILE_CHANGES:\n")
		sb.WriteString(u.Patch)
	default:
		sb.WriteString("FILE: " + u.RelPath + "\n\nSNIPPET:\n")
		sb.WriteString(u.Snippet)
	}
	if c := strings.TrimSpace(context); c != "" {
		sb.WriteString("\n\nCONTEXT:\n")
		sb.WriteString(c)
	}
	return sb.String()
}
