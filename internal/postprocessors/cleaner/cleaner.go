// Package cleaner normalises parsed document text before chunking.
package cleaner

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/boovines/Granted/internal/core/domain"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	disallowed     = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:\-()\[\]"'/]`)
	punctuationRun = regexp.MustCompile(`\.{2,}|,{2,}|!{2,}|\?{2,}|;{2,}|:{2,}`)
)

// Clean strips characters outside a conservative allow-list (letters,
// digits, whitespace, basic punctuation, brackets, quotes, slash),
// collapses whitespace runs to one space and repeated punctuation to a
// single mark.
func Clean(text string) string {
	text = disallowed.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = punctuationRun.ReplaceAllStringFunc(text, func(run string) string {
		return run[:1]
	})
	return strings.TrimSpace(text)
}

// Processor cleans segment text in place. Chunks pass through untouched,
// so it must run before the chunker.
type Processor struct {
	minLength int
}

// Option configures the cleaner processor.
type Option func(*Processor)

// WithMinLength blanks segments whose cleaned text is shorter than n
// characters, so the chunker produces nothing for them.
func WithMinLength(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.minLength = n
		}
	}
}

// New creates a cleaner processor.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "cleaner"
}

// Process rewrites seg.Text with Clean.
func (p *Processor) Process(_ context.Context, seg *domain.Segment, chunks []domain.Chunk) ([]domain.Chunk, error) {
	seg.Text = Clean(seg.Text)
	if utf8.RuneCountInString(seg.Text) < p.minLength {
		seg.Text = ""
	}
	return chunks, nil
}
