// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scanner

import (
	"regexp"
	"strings"
	"sync"
)

// PatternVersion tracks the built-in pattern set version.
const PatternVersion = "2026.08"

// Severity grades a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparison.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// SecretPattern detects one class of dangerous content in snippet
// bodies.
//
// # Thread Safety
//
// Safe for concurrent use after construction; regex compilation is
// guarded by sync.Once.
type SecretPattern struct {
	// Type is the finding type (aws_access_key, private_key, ...).
	Type string `yaml:"type"`

	// Description explains what this pattern detects.
	Description string `yaml:"description"`

	// Pattern is the detection regex.
	Pattern string `yaml:"pattern"`

	// Severity is the grade assigned to matches.
	Severity Severity `yaml:"severity"`

	// FalsePositiveHints are regexes that, when found near a match,
	// discard it.
	FalsePositiveHints []string `yaml:"false_positive_hints"`

	// BaseConfidence is the starting confidence for matches, 0.0-1.0.
	// Zero means the default of 0.7.
	BaseConfidence float64 `yaml:"base_confidence"`

	compiled      *regexp.Regexp
	compiledHints []*regexp.Regexp
	compileOnce   sync.Once
	compileErr    error
}

// compile prepares the pattern and hint regexes.
func (p *SecretPattern) compile() error {
	p.compileOnce.Do(func() {
		p.compiled, p.compileErr = regexp.Compile(p.Pattern)
		if p.compileErr != nil {
			return
		}
		for _, hint := range p.FalsePositiveHints {
			re, err := regexp.Compile(hint)
			if err != nil {
				p.compileErr = err
				return
			}
			p.compiledHints = append(p.compiledHints, re)
		}
	})
	return p.compileErr
}

// match returns all non-suppressed matches of the pattern in content.
func (p *SecretPattern) match(content string) []Finding {
	if p.compile() != nil {
		return nil
	}

	locs := p.compiled.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}

	var findings []Finding
	for _, loc := range locs {
		ctxStart := max(0, loc[0]-50)
		ctxEnd := min(len(content), loc[1]+50)
		window := content[ctxStart:ctxEnd]

		suppressed := false
		for _, hint := range p.compiledHints {
			if hint.MatchString(window) {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}

		findings = append(findings, Finding{
			Type:        p.Type,
			Description: p.Description,
			Line:        strings.Count(content[:loc[0]], "\n") + 1,
			Context:     maskSecret(window, content[loc[0]:loc[1]]),
			Severity:    p.Severity,
		})
	}
	return findings
}

// maskSecret replaces the matched secret inside the context window with
// a redacted form keeping only the first and last two characters.
func maskSecret(window, secret string) string {
	if len(secret) <= 4 {
		return strings.ReplaceAll(window, secret, "****")
	}
	maskLen := max(len(secret)-4, 1)
	masked := secret[:2] + strings.Repeat("*", maskLen) + secret[len(secret)-2:]
	return strings.ReplaceAll(window, secret, masked)
}

// defaultPatterns is the built-in detection set. Deployments extend or
// replace it with YAML rule files (see rules.go).
func defaultPatterns() []*SecretPattern {
	return []*SecretPattern{
		{
			Type:        "aws_access_key",
			Description: "AWS Access Key ID",
			Pattern:     `(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`,
			Severity:    SeverityCritical,
			FalsePositiveHints: []string{
				`(?i)example`,
				`(?i)placeholder`,
			},
			BaseConfidence: 0.9,
		},
		{
			Type:        "aws_secret_key",
			Description: "AWS Secret Access Key",
			Pattern:     `(?i)(?:aws)?[_-]?secret[_-]?(?:access)?[_-]?key\s*[=:]\s*["']([a-zA-Z0-9/+=]{40})["']`,
			Severity:    SeverityCritical,
		},
		{
			Type:        "private_key",
			Description: "PEM private key block",
			Pattern:     `-----BEGIN (?:RSA |DSA |EC |OPENSSH )?PRIVATE KEY-----`,
			Severity:    SeverityCritical,
			BaseConfidence: 0.95,
		},
		{
			Type:        "api_key",
			Description: "Generic API key assignment",
			Pattern:     `(?i)(?:api[_-]?key|apikey)\s*[=:]\s*["']([a-zA-Z0-9_\-]{20,})["']`,
			Severity:    SeverityHigh,
			FalsePositiveHints: []string{
				`(?i)example`,
				`(?i)placeholder`,
				`(?i)your[_-]?api[_-]?key`,
				`(?i)xxx+`,
			},
		},
		{
			Type:        "github_token",
			Description: "GitHub token",
			Pattern:     `(?:ghp|gho|ghu|ghs|ghr)_[a-zA-Z0-9]{36,}`,
			Severity:    SeverityCritical,
		},
		{
			Type:        "stripe_key",
			Description: "Stripe live API key",
			Pattern:     `sk_live_[0-9a-zA-Z]{24,}`,
			Severity:    SeverityCritical,
		},
		{
			Type:        "slack_token",
			Description: "Slack token",
			Pattern:     `xox[baprs]-[0-9a-zA-Z-]{10,}`,
			Severity:    SeverityHigh,
		},
		{
			Type:        "database_url",
			Description: "Connection string with embedded credentials",
			Pattern:     `(?i)(?:postgres|mysql|mongodb|redis)://[^:\s]+:[^@\s]+@[^\s"']+`,
			Severity:    SeverityCritical,
			FalsePositiveHints: []string{
				`(?i)user:pass(?:word)?@`,
				`(?i)example\.com`,
			},
		},
		{
			Type:        "password",
			Description: "Hardcoded password assignment",
			Pattern:     `(?i)(?:password|passwd|pwd)\s*[=:]\s*["']([^"']{8,})["']`,
			Severity:    SeverityHigh,
			FalsePositiveHints: []string{
				`(?i)(?:password|passwd|pwd)\s*[=:]\s*["'](?:password|test|example|changeme|xxx+)["']`,
				`(?i)os\.(?:Getenv|environ)`,
			},
		},
		{
			Type:        "curl_pipe_shell",
			Description: "Remote script piped straight into a shell",
			Pattern:     `(?:curl|wget)[^\n|]*\|\s*(?:sudo\s+)?(?:ba)?sh`,
			Severity:    SeverityWarning,
			BaseConfidence: 0.6,
		},
		{
			Type:        "eval_injection",
			Description: "eval of dynamically built input",
			Pattern:     `(?i)\beval\s*\(\s*(?:request|params|input|argv|\$_(?:GET|POST|REQUEST))`,
			Severity:    SeverityWarning,
			BaseConfidence: 0.5,
		},
	}
}
