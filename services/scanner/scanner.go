// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scanner screens snippet content for leaked credentials and
// dangerous constructs before it is published.
//
// Every snippet write runs through Scan. A critical finding rejects the
// write outright; a high finding lets the write through but files an
// automatic moderation report so a human reviews it. Patterns are
// regex-based with false positive suppression and confidence scoring;
// deployments can override the built-in set with YAML rule files that
// hot-reload on change.
package scanner

import (
	"context"
	"strings"
	"sync"
)

// Verdict is the decision for a scanned snippet.
type Verdict string

const (
	// VerdictClean lets the write proceed.
	VerdictClean Verdict = "clean"

	// VerdictFlag lets the write proceed but files a moderation report.
	VerdictFlag Verdict = "flag"

	// VerdictReject blocks the write.
	VerdictReject Verdict = "reject"
)

// Finding is a single detection in snippet content. Context is masked;
// the raw secret never leaves the scanner.
type Finding struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Line        int      `json:"line"`
	Context     string   `json:"context"`
	Severity    Severity `json:"severity"`
	Confidence  float64  `json:"confidence"`
}

// Result is the outcome of scanning one snippet body.
type Result struct {
	Verdict     Verdict   `json:"verdict"`
	MaxSeverity Severity  `json:"max_severity"`
	Findings    []Finding `json:"findings"`
}

// minReportConfidence is the confidence floor below which a finding
// cannot escalate the verdict. Low-confidence matches still appear in
// Findings for transparency.
const minReportConfidence = 0.4

// Scanner screens snippet content against a pattern set.
//
// # Thread Safety
//
// Safe for concurrent use. SetPatterns swaps the active set atomically
// under a write lock; Scan holds the read lock.
type Scanner struct {
	mu       sync.RWMutex
	patterns []*SecretPattern
}

// New returns a Scanner with the built-in pattern set.
func New() *Scanner {
	return &Scanner{patterns: defaultPatterns()}
}

// SetPatterns replaces the active pattern set. Used by the rule
// watcher on hot reload.
func (s *Scanner) SetPatterns(patterns []*SecretPattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = patterns
}

// PatternCount returns the size of the active pattern set.
func (s *Scanner) PatternCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// Scan screens content and returns the verdict with all findings.
func (s *Scanner) Scan(ctx context.Context, content string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	patterns := s.patterns
	s.mu.RUnlock()

	result := &Result{
		Verdict:     VerdictClean,
		MaxSeverity: SeverityInfo,
	}

	for _, p := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, f := range p.match(content) {
			f.Confidence = confidence(p, content)
			result.Findings = append(result.Findings, f)

			if f.Confidence < minReportConfidence {
				continue
			}
			if f.Severity.rank() > result.MaxSeverity.rank() {
				result.MaxSeverity = f.Severity
			}
		}
	}

	switch {
	case result.MaxSeverity == SeverityCritical:
		result.Verdict = VerdictReject
	case result.MaxSeverity == SeverityHigh:
		result.Verdict = VerdictFlag
	}
	return result, nil
}

// confidence derives a calibrated score for a match from the pattern's
// base confidence and content-level signals.
func confidence(p *SecretPattern, content string) float64 {
	score := p.BaseConfidence
	if score == 0 {
		score = 0.7
	}

	lower := strings.ToLower(content)

	// Tutorial-looking content is far more likely to hold fabricated
	// credentials.
	for _, marker := range []string{"example", "tutorial", "demo", "sample", "lorem ipsum"} {
		if strings.Contains(lower, marker) {
			score *= 0.6
			break
		}
	}

	// An explicit suppression note drops the match below the
	// escalation floor but keeps it visible.
	if strings.Contains(lower, "#nosec") || strings.Contains(lower, "// nosec") {
		score *= 0.3
	}

	if score > 1 {
		score = 1
	}
	return score
}
