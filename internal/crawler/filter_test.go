package crawler

import (
	"regexp"
	"strings"
	"testing"
)

type stubAllower struct {
	disallowPrefix string
}

func (s stubAllower) Allowed(rawURL, _ string) bool {
	return !strings.Contains(rawURL, s.disallowPrefix)
}

func TestRequiredTextStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		terms   []string
		title   string
		content string
		want    Verdict
	}{
		{name: "no terms", terms: nil, content: "anything", want: Pass},
		{name: "blank terms are ignored", terms: []string{"  ", ""}, content: "anything", want: Pass},
		{name: "term in content", terms: []string{"pricing"}, content: "our pricing plans", want: Pass},
		{name: "term in title", terms: []string{"pricing"}, title: "Pricing", content: "plans", want: Pass},
		{name: "case-insensitive", terms: []string{"PRICING"}, content: "pricing", want: Pass},
		{name: "folding of special case", terms: []string{"ΣΊΣΥΦΟΣ"}, content: "σίσυφος", want: Pass},
		{name: "any term suffices", terms: []string{"billing", "pricing"}, content: "pricing", want: Pass},
		{name: "term missing", terms: []string{"pricing"}, title: "About", content: "team", want: Skip},
		{name: "separators are normalized", terms: []string{"getting-started"}, content: "Getting_Started guide", want: Pass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			step := RequiredTextStep(tt.terms)
			got := step.Check(&Candidate{Title: tt.title, Content: tt.content})
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestURLPatternStep(t *testing.T) {
	t.Parallel()

	step := URLPatternStep(regexp.MustCompile("(?i)/docs/"))
	if got := step.Check(&Candidate{URL: "https://example.com/Docs/a"}); got != Pass {
		t.Errorf("expected pass, got %s", got)
	}
	if got := step.Check(&Candidate{URL: "https://example.com/blog/a"}); got != Skip {
		t.Errorf("expected skip, got %s", got)
	}
	if got := URLPatternStep(nil).Check(&Candidate{URL: "x"}); got != Pass {
		t.Errorf("expected nil pattern to pass, got %s", got)
	}
}

func TestRobotsStep(t *testing.T) {
	t.Parallel()

	step := RobotsStep(stubAllower{disallowPrefix: "/private/"}, "SiteSync")
	if got := step.Check(&Candidate{URL: "https://example.com/private/a"}); got != Stop {
		t.Errorf("expected stop, got %s", got)
	}
	if got := step.Check(&Candidate{URL: "https://example.com/public"}); got != Pass {
		t.Errorf("expected pass, got %s", got)
	}
	if got := RobotsStep(nil, "SiteSync").Check(&Candidate{URL: "https://example.com/private/a"}); got != Pass {
		t.Errorf("expected nil policy to pass, got %s", got)
	}
}

func TestPipelineEvaluate(t *testing.T) {
	t.Parallel()

	newPipeline := func() *Pipeline {
		return NewPipeline(nil, []FilterStep{
			ContentRegionStep(),
			RequiredTextStep([]string{"pricing"}),
			URLPatternStep(regexp.MustCompile("(?i)/docs/")),
		})
	}

	tests := []struct {
		name string
		cand Candidate
		want Decision
	}{
		{
			name: "all pass",
			cand: Candidate{URL: "https://e.com/docs/a", Content: "pricing", HasContent: true},
			want: Decision{Import: true, Explore: true},
		},
		{
			name: "missing content region stops",
			cand: Candidate{URL: "https://e.com/docs/a", Content: "pricing"},
			want: Decision{Step: "content-region"},
		},
		{
			name: "text fails, URL matches",
			cand: Candidate{URL: "https://e.com/docs/a", Content: "about", HasContent: true},
			want: Decision{Explore: true, Step: "required-text"},
		},
		{
			name: "text matches, URL fails",
			cand: Candidate{URL: "https://e.com/blog/a", Content: "pricing", HasContent: true},
			want: Decision{Explore: true, Step: "url-pattern"},
		},
		{
			name: "both fail reports first step",
			cand: Candidate{URL: "https://e.com/blog/a", Content: "about", HasContent: true},
			want: Decision{Explore: true, Step: "required-text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cand := tt.cand
			got := newPipeline().Evaluate(&cand)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestPipelineSteps(t *testing.T) {
	t.Parallel()

	p := NewPipeline(
		[]FilterStep{RobotsStep(nil, "a")},
		[]FilterStep{ContentRegionStep(), RequiredTextStep(nil), URLPatternStep(nil)},
	)
	got := strings.Join(p.Steps(), ",")
	want := "robots,content-region,required-text,url-pattern"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestVerdictString(t *testing.T) {
	t.Parallel()

	for v, want := range map[Verdict]string{Pass: "pass", Skip: "skip", Stop: "stop", Verdict(9): "unknown"} {
		if v.String() != want {
			t.Errorf("expected %s, got %s", want, v.String())
		}
	}
}

func mustCompile(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("failed to compile %q: %v", pattern, err)
	}
	return re
}
