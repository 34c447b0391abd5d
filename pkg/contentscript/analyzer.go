package contentscript

import (
	"context"
	"fmt"

	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
)

// maxHeadings caps the headings reported in an analysis.
const maxHeadings = 10

// Page is the document a content script analyzes.
type Page struct {
	URL   string
	Title string // used when the document has no <title>
	HTML  string
}

// Analyzer turns a page into the analysis payload.
type Analyzer struct {
	classifier Classifier
	maxLength  int
	logger     *logging.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithClassifier replaces the default heuristic classifier.
func WithClassifier(c Classifier) AnalyzerOption {
	return func(a *Analyzer) {
		if c != nil {
			a.classifier = c
		}
	}
}

// WithMaxTextLength bounds the text kept from each page.
func WithMaxTextLength(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.maxLength = n
	}
}

// WithLogger sets the analyzer logger.
func WithLogger(logger *logging.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates an analyzer that classifies with heuristics by default.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		classifier: HeuristicClassifier{},
		maxLength:  DefaultMaxTextLength,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze extracts and classifies page. The result always carries a
// string pageType.
func (a *Analyzer) Analyze(ctx context.Context, page Page) (types.Analysis, error) {
	e, err := Extract(page.HTML, a.maxLength)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", page.URL, err)
	}

	label, err := a.classifier.Classify(ctx, page.URL, e)
	if err != nil || !IsLabel(label) {
		a.logger.Warnf("classification of %s failed (label %q): %v", page.URL, label, err)
		label = LabelGeneral
	}

	title := e.Title
	if title == "" {
		title = page.Title
	}
	headings := e.Headings
	if len(headings) > maxHeadings {
		headings = headings[:maxHeadings]
	}
	if headings == nil {
		headings = []string{}
	}

	a.logger.Debugf("analyzed %s as %s (%d words)", page.URL, label, e.WordCount)

	return types.Analysis{
		"pageType":    label,
		"url":         page.URL,
		"title":       title,
		"description": e.Description,
		"wordCount":   e.WordCount,
		"headings":    headings,
		"links":       e.Links,
		"forms":       e.Forms,
	}, nil
}
