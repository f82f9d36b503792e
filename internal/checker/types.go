package checker

import (
	"strings"
	"time"
)

// Verdict is the closed-set outcome classification of a verification run
type Verdict string

const (
	VerdictTrue         Verdict = "TRUE"
	VerdictFalse        Verdict = "FALSE"
	VerdictUnverifiable Verdict = "UNVERIFIABLE"
	VerdictError        Verdict = "ERROR"
)

// Valid reports whether the verdict is one of the four enumerated values
func (v Verdict) Valid() bool {
	switch v {
	case VerdictTrue, VerdictFalse, VerdictUnverifiable, VerdictError:
		return true
	}
	return false
}

// ParseVerdict normalizes a raw verdict string; anything outside the closed
// set maps to ERROR
func ParseVerdict(s string) Verdict {
	v := Verdict(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return VerdictError
	}
	return v
}

// Source represents one citation backing a verdict
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Evidence summarizes reasoning for and against the claim
type Evidence struct {
	Supporting []string `json:"supporting"`
	Counter    []string `json:"counter"`
}

// Record is the normalized result of one verification run. It is built fresh
// per run and never mutated afterward.
type Record struct {
	Claim      string    `json:"claim"`
	Conclusion string    `json:"conclusion"`
	Confidence float64   `json:"confidence"`
	Verdict    Verdict   `json:"verdict"`
	Evidence   Evidence  `json:"evidence"`
	Sources    []Source  `json:"sources"`
	Timestamp  time.Time `json:"timestamp"`
}

// ClampConfidence forces a confidence value into [0.0, 1.0]
func ClampConfidence(confidence float64) float64 {
	if confidence < 0.0 {
		return 0.0
	}
	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}
