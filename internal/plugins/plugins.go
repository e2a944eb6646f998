package plugins

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var embeddedProfiles []byte

const (
	CategoryCode = "code"
	CategoryDocs = "docs"
)

// Prompt template keys every code profile must define.
var requiredCodePrompts = []string{
	PromptSecurityReview,
	PromptSecurityReviewFile,
	PromptSecurityReviewChecks,
	PromptValidationReview,
	PromptSnippetSummary,
	PromptAttemptFix,
	PromptExplainChanges,
}

const (
	PromptSecurityReview       = "security_review"
	PromptSecurityReviewFile   = "security_review_file"
	PromptSecurityReviewChecks = "security_review_checks"
	PromptValidationReview     = "validation_review"
	PromptSnippetSummary       = "snippet_security_summary"
	PromptAttemptFix           = "attempt_fix"
	PromptExplainChanges       = "explain_changes"

	GeneralRetrieveContext    = "retrieve_context"
	GeneralReviewReport       = "security_review_report"
	GeneralGuidancePrecedence = "custom_guidance_precedence"

	// SchemaPlaceholder marks where the finding schema description is
	// substituted into the composed review system prompt.
	SchemaPlaceholder = "[[REVIEW_SCHEMA_FIELDS]]"
)

// requiredPlaceholders lists the named placeholders each template must
// carry so that rendering never silently drops a variable.
var requiredPlaceholders = map[string][]string{
	GeneralRetrieveContext: {"{file_path}"},
	PromptAttemptFix:       {"{patch}", "{issues}"},
	PromptExplainChanges:   {"{file_path}"},
}

// Profile is an immutable language profile: chunking parameters plus the
// prompt templates used by the review stages. Resolved by file extension.
type Profile struct {
	Name              string
	Category          string
	Extensions        []string
	ChunkLines        int
	ChunkLinesOverlap int
	MaxChars          int
	prompts           map[string]string
}

// Prompt returns the named template, or "" when the profile does not
// define it.
func (p *Profile) Prompt(key string) string {
	return p.prompts[key]
}

// Registry maps file extensions to language profiles. Loaded once at
// startup and read-only afterwards, so concurrent readers never race.
type Registry struct {
	profiles []*Profile
	byExt    map[string]*Profile
	docs     *Profile
	general  map[string]string
}

type yamlSplitting struct {
	ChunkLines        int `yaml:"chunk_lines"`
	ChunkLinesOverlap int `yaml:"chunk_lines_overlap"`
	MaxChars          int `yaml:"max_chars"`
}

type yamlPlugin struct {
	SupportedExtensions []string          `yaml:"supported_extensions"`
	Splitting           yamlSplitting     `yaml:"splitting"`
	Prompts             map[string]string `yaml:"prompts"`
}

type yamlConfig struct {
	GeneralPrompts map[string]string     `yaml:"general_prompts"`
	Docs           yamlPlugin            `yaml:"docs"`
	Plugins        map[string]yamlPlugin `yaml:"plugins"`
}

// Load builds the registry from the YAML profile configuration at path,
// or from the embedded default when path is empty. Any structural problem
// is a fatal configuration error.
func Load(path string) (*Registry, error) {
	raw := embeddedProfiles
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profiles config: %w", err)
		}
		raw = b
	}
	var cfg yamlConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse profiles config: %w", err)
	}

	r := &Registry{
		byExt:   map[string]*Profile{},
		general: cfg.GeneralPrompts,
	}
	if r.general == nil {
		r.general = map[string]string{}
	}
	for _, key := range []string{GeneralRetrieveContext, GeneralReviewReport} {
		if strings.TrimSpace(r.general[key]) == "" {
			return nil, fmt.Errorf("general prompt %q is required", key)
		}
	}
	if err := checkPlaceholders(GeneralRetrieveContext, r.general[GeneralRetrieveContext]); err != nil {
		return nil, err
	}
	if !strings.Contains(r.general[GeneralReviewReport], SchemaPlaceholder) {
		return nil, fmt.Errorf("general prompt %q must contain %s", GeneralReviewReport, SchemaPlaceholder)
	}

	names := make([]string, 0, len(cfg.Plugins))
	for name := range cfg.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := buildProfile(name, CategoryCode, cfg.Plugins[name])
		if err != nil {
			return nil, err
		}
		r.profiles = append(r.profiles, p)
		for _, ext := range p.Extensions {
			if prev, ok := r.byExt[ext]; ok {
				return nil, fmt.Errorf("extension %s claimed by both %s and %s", ext, prev.Name, name)
			}
			r.byExt[ext] = p
		}
	}

	docs, err := buildProfile("docs", CategoryDocs, cfg.Docs)
	if err != nil {
		return nil, err
	}
	r.docs = docs
	r.profiles = append(r.profiles, docs)
	for _, ext := range docs.Extensions {
		if prev, ok := r.byExt[ext]; ok {
			return nil, fmt.Errorf("extension %s claimed by both %s and docs", ext, prev.Name)
		}
		r.byExt[ext] = docs
	}
	return r, nil
}

func buildProfile(name, category string, src yamlPlugin) (*Profile, error) {
	if len(src.SupportedExtensions) == 0 {
		return nil, fmt.Errorf("profile %s declares no supported extensions", name)
	}
	s := src.Splitting
	if s.ChunkLines <= 0 || s.MaxChars <= 0 {
		return nil, fmt.Errorf("profile %s: chunk_lines and max_chars must be positive", name)
	}
	if s.ChunkLinesOverlap < 0 || s.ChunkLinesOverlap >= s.ChunkLines {
		return nil, fmt.Errorf("profile %s: chunk_lines_overlap must be in [0, chunk_lines)", name)
	}
	if category == CategoryCode {
		for _, key := range requiredCodePrompts {
			if strings.TrimSpace(src.Prompts[key]) == "" {
				return nil, fmt.Errorf("profile %s: prompt %q is required", name, key)
			}
			if err := checkPlaceholders(key, src.Prompts[key]); err != nil {
				return nil, fmt.Errorf("profile %s: %w", name, err)
			}
		}
	}
	exts := make([]string, 0, len(src.SupportedExtensions))
	for _, e := range src.SupportedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			return nil, fmt.Errorf("profile %s: extension %q must start with a dot", name, e)
		}
		exts = append(exts, e)
	}
	prompts := make(map[string]string, len(src.Prompts))
	for k, v := range src.Prompts {
		prompts[k] = v
	}
	return &Profile{
		Name:              name,
		Category:          category,
		Extensions:        exts,
		ChunkLines:        s.ChunkLines,
		ChunkLinesOverlap: s.ChunkLinesOverlap,
		MaxChars:          s.MaxChars,
		prompts:           prompts,
	}, nil
}

func checkPlaceholders(key, tmpl string) error {
	for _, ph := range requiredPlaceholders[key] {
		if !strings.Contains(tmpl, ph) {
			return fmt.Errorf("prompt %q is missing placeholder %s", key, ph)
		}
	}
	return nil
}

// Resolve returns the profile owning the extension, falling back to the
// generic docs profile so unrecognized file types never hard-fail.
func (r *Registry) Resolve(ext string) *Profile {
	if p, ok := r.byExt[strings.ToLower(ext)]; ok {
		return p
	}
	return r.docs
}

// Supported reports whether the extension belongs to any configured
// profile. Callers use this as the indexing allow-list.
func (r *Registry) Supported(ext string) bool {
	_, ok := r.byExt[strings.ToLower(ext)]
	return ok
}

func (r *Registry) Docs() *Profile { return r.docs }

func (r *Registry) General(key string) string { return r.general[key] }

// CodeExtensions returns the sorted union of all code profile extensions.
func (r *Registry) CodeExtensions() []string {
	out := make([]string, 0)
	for ext, p := range r.byExt {
		if p.Category == CategoryCode {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// Languages returns the names of the configured code profiles.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		if p.Category == CategoryCode {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Render substitutes {name} placeholders in a template. Placeholders with
// no binding are left untouched.
func Render(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
