package crawler

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nao1215/sitesync/internal/textnorm"
)

// Verdict is the outcome of a single FilterStep.
type Verdict int

const (
	// Pass lets the page continue to the next step.
	Pass Verdict = iota

	// Skip keeps the page out of the result but still follows its links.
	Skip

	// Stop drops the page: it is neither imported nor explored.
	Stop
)

// String returns the verdict name used in logs.
func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Skip:
		return "skip"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Candidate is a page under evaluation. Before the fetch only URL and
// Depth are set.
type Candidate struct {
	URL        string
	Depth      int
	Title      string
	Content    string
	HasContent bool
}

// FilterStep is one named check of the page filter pipeline.
type FilterStep interface {
	Name() string
	Check(c *Candidate) Verdict
}

// Decision is the combined outcome of a sequence of steps.
type Decision struct {
	// Import reports whether the page goes into the result.
	Import bool

	// Explore reports whether the page's links are followed.
	Explore bool

	// Step names the first step that did not pass. Empty when all passed.
	Step string
}

// Pipeline runs filter steps in a fixed order. Admission steps run
// before a page is fetched, evaluation steps after it is parsed.
type Pipeline struct {
	admission  []FilterStep
	evaluation []FilterStep
}

// NewPipeline creates a Pipeline.
func NewPipeline(admission, evaluation []FilterStep) *Pipeline {
	return &Pipeline{admission: admission, evaluation: evaluation}
}

// Admit runs the admission steps.
func (p *Pipeline) Admit(c *Candidate) Decision {
	return runSteps(p.admission, c)
}

// Evaluate runs the evaluation steps.
func (p *Pipeline) Evaluate(c *Candidate) Decision {
	return runSteps(p.evaluation, c)
}

// Steps returns the names of all steps in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, 0, len(p.admission)+len(p.evaluation))
	for _, s := range p.admission {
		names = append(names, s.Name())
	}
	for _, s := range p.evaluation {
		names = append(names, s.Name())
	}
	return names
}

// runSteps evaluates every step until one stops the page. A skipping
// step only clears Import, so later steps still get a chance to stop it.
func runSteps(steps []FilterStep, c *Candidate) Decision {
	d := Decision{Import: true, Explore: true}
	for _, s := range steps {
		switch s.Check(c) {
		case Stop:
			return Decision{Step: s.Name()}
		case Skip:
			if d.Import {
				d.Import = false
				d.Step = s.Name()
			}
		}
	}
	return d
}

// Allower answers robots.txt queries.
type Allower interface {
	Allowed(rawURL, agent string) bool
}

type robotsStep struct {
	policy Allower
	agent  string
}

// RobotsStep stops URLs that robots.txt disallows for agent.
func RobotsStep(policy Allower, agent string) FilterStep {
	return &robotsStep{policy: policy, agent: agent}
}

func (s *robotsStep) Name() string { return "robots" }

func (s *robotsStep) Check(c *Candidate) Verdict {
	if s.policy == nil || s.policy.Allowed(c.URL, s.agent) {
		return Pass
	}
	return Stop
}

type contentRegionStep struct{}

// ContentRegionStep stops pages without a main, article or body region.
func ContentRegionStep() FilterStep {
	return contentRegionStep{}
}

func (contentRegionStep) Name() string { return "content-region" }

func (contentRegionStep) Check(c *Candidate) Verdict {
	if c.HasContent {
		return Pass
	}
	return Stop
}

type requiredTextStep struct {
	terms []string
}

// RequiredTextStep skips pages whose normalized title and content contain
// none of terms. Matching uses Unicode case folding. With no terms every
// page passes.
func RequiredTextStep(terms []string) FilterStep {
	caser := cases.Fold()
	folded := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = textnorm.Normalize(term); term != "" {
			folded = append(folded, caser.String(term))
		}
	}
	return &requiredTextStep{terms: folded}
}

func (s *requiredTextStep) Name() string { return "required-text" }

func (s *requiredTextStep) Check(c *Candidate) Verdict {
	if len(s.terms) == 0 {
		return Pass
	}
	// Casers keep state, so each check uses its own.
	text := cases.Fold().String(textnorm.Normalize(c.Title + " " + c.Content))
	for _, term := range s.terms {
		if strings.Contains(text, term) {
			return Pass
		}
	}
	return Skip
}

type urlPatternStep struct {
	pattern *regexp.Regexp
}

// URLPatternStep skips pages whose URL does not match pattern.
// A nil pattern accepts every URL.
func URLPatternStep(pattern *regexp.Regexp) FilterStep {
	return &urlPatternStep{pattern: pattern}
}

func (s *urlPatternStep) Name() string { return "url-pattern" }

func (s *urlPatternStep) Check(c *Candidate) Verdict {
	if s.pattern == nil || s.pattern.MatchString(c.URL) {
		return Pass
	}
	return Skip
}
