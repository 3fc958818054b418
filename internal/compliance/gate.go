// Package compliance screens campaign copy and generated assets before a
// campaign is finalized.
package compliance

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Status string

const (
	Approved Status = "approved"
	Failed   Status = "failed"
)

const (
	minMessageLength = 10
	capsMinLength    = 10
	capsMaxRatio     = 0.7
)

var bannedTerms = []string{"fuck", "shit", "damn", "hell", "ass", "bitch", "bastard", "crap"}

type Verdict struct {
	Status  Status   `json:"status"`
	Issues  []string `json:"issues"`
	Message string   `json:"message"`
}

func (v Verdict) Approved() bool {
	return v.Status == Approved
}

// ImageCheck inspects generated asset paths and returns issues found.
type ImageCheck interface {
	Name() string
	Check(paths []string) []string
}

// BrandOverlayPresence is the brand-mark check. It currently accepts every
// asset.
type BrandOverlayPresence struct{}

func (BrandOverlayPresence) Name() string { return "brand_overlay_presence" }

func (BrandOverlayPresence) Check([]string) []string { return nil }

type Gate struct {
	banned      []*regexp.Regexp
	terms       []string
	imageChecks []ImageCheck
}

// NewGate builds a gate with the fixed banned-term list. With no image
// checks given, BrandOverlayPresence is used.
func NewGate(checks ...ImageCheck) *Gate {
	if len(checks) == 0 {
		checks = []ImageCheck{BrandOverlayPresence{}}
	}

	g := &Gate{imageChecks: checks, terms: bannedTerms}
	for _, term := range bannedTerms {
		g.banned = append(g.banned, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return g
}

// CheckMessage runs only the text rules.
func (g *Gate) CheckMessage(message string) Verdict {
	return g.Check(message, nil)
}

func (g *Gate) Check(message string, paths []string) Verdict {
	issues := g.textIssues(message)
	if len(paths) > 0 {
		for _, check := range g.imageChecks {
			issues = append(issues, check.Check(paths)...)
		}
	}

	if len(issues) > 0 {
		return Verdict{
			Status:  Failed,
			Issues:  issues,
			Message: "Compliance check failed: " + strings.Join(issues, ", "),
		}
	}
	return Verdict{Status: Approved, Issues: []string{}, Message: "No compliance issues detected"}
}

func (g *Gate) textIssues(message string) []string {
	var issues []string

	for i, re := range g.banned {
		if re.MatchString(message) {
			issues = append(issues, fmt.Sprintf("Inappropriate language detected: '%s'", g.terms[i]))
		}
	}

	if n := utf8.RuneCountInString(message); n > capsMinLength {
		upper := 0
		for _, r := range message {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(n) > capsMaxRatio {
			issues = append(issues, "Excessive use of capital letters detected")
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(message)) < minMessageLength {
		issues = append(issues, fmt.Sprintf("Message too short (minimum %d characters required)", minMessageLength))
	}

	return issues
}
