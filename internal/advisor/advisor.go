// Package advisor is the seam for generated practice insights. Nothing it
// returns feeds a computed figure.
package advisor

import (
	"context"
	"errors"
	"strings"
)

var ErrNoAdvice = errors.New("no advice available")

type Advisor interface {
	Advise(ctx context.Context, prompt string) (string, error)
}

// Rule maps a prompt substring to a canned answer.
type Rule struct {
	Contains string
	Text     string
}

// CannedAdvisor answers from fixed rules, first match wins. It stands in for
// a text-generation provider.
type CannedAdvisor struct {
	rules    []Rule
	fallback string
}

// NewCannedAdvisor builds an advisor over rules. fallback answers prompts no
// rule matches.
func NewCannedAdvisor(fallback string, rules ...Rule) *CannedAdvisor {
	return &CannedAdvisor{rules: rules, fallback: fallback}
}

// DefaultAdvisor carries the rules the server ships with.
func DefaultAdvisor() *CannedAdvisor {
	return NewCannedAdvisor("",
		Rule{Contains: "realization_rate=low", Text: "Realization is under 70%. Review unbilled time older than 30 days and issue invoices for completed work."},
		Rule{Contains: "unbilled=high", Text: "Unbilled work exceeds billed work. Schedule a billing run before month end."},
		Rule{Contains: "realization_rate=", Text: "Realization is healthy. Keep entering time daily to protect it."},
	)
}

func (a *CannedAdvisor) Advise(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range a.rules {
		if strings.Contains(prompt, r.Contains) {
			return r.Text, nil
		}
	}
	if a.fallback == "" {
		return "", ErrNoAdvice
	}
	return a.fallback, nil
}
