package review

import "testing"

func TestApplyValidationSubset(t *testing.T) {
	original := []Finding{
		{Issue: "a", CodeSnippet: "foo(x)", Confidence: 0.8, Severity: "HIGH"},
		{Issue: "b", CodeSnippet: "bar(y)", Confidence: 0.6, Severity: "LOW"},
	}
	validated := []Finding{
		{Issue: "a rephrased", CodeSnippet: "foo( x )", Explanation: "confirmed against caller", Confidence: 0.95},
		{Issue: "invented", CodeSnippet: "baz(z)", Confidence: 1.0},
	}
	out := ApplyValidation(original, validated)
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving finding, got %d", len(out))
	}
	f := out[0]
	if f.Issue != "a" || f.Severity != "HIGH" {
		t.Fatalf("surviving finding must keep original fields: %+v", f)
	}
	if f.Explanation != "confirmed against caller" {
		t.Fatalf("validator explanation not applied: %+v", f)
	}
	if f.Confidence != 0.8 {
		t.Fatalf("validator must not rewrite confidence: %+v", f)
	}
}

func TestApplyValidationNeverInvents(t *testing.T) {
	out := ApplyValidation(nil, []Finding{{Issue: "x", CodeSnippet: "y"}})
	if len(out) != 0 {
		t.Fatalf("validation of empty input must stay empty, got %+v", out)
	}
}

func TestApplyValidationKeepsOriginalConfidence(t *testing.T) {
	original := []Finding{{Issue: "a", CodeSnippet: "foo", Confidence: 0.7}}
	for _, v := range []Finding{{CodeSnippet: "foo"}, {CodeSnippet: "foo", Confidence: 0.2}} {
		out := ApplyValidation(original, []Finding{v})
		if len(out) != 1 || out[0].Confidence != 0.7 {
			t.Fatalf("validator confidence %v must not overwrite: %+v", v.Confidence, out)
		}
	}
}
