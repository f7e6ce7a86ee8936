// Package assistant defines the narrow contracts for the speech and language
// helpers (transcription, tone adjustment, task decomposition) together with
// placeholder implementations that simulate a remote model.
package assistant

import (
	"context"
	"fmt"
	"strings"
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// ToneAdjuster rewrites text in the requested tone.
type ToneAdjuster interface {
	AdjustTone(ctx context.Context, text string, tone Tone) (string, error)
}

// Decomposer splits free text into actionable task titles. Higher spiciness
// asks for smaller steps.
type Decomposer interface {
	Decompose(ctx context.Context, text string, level Spiciness) ([]string, error)
}

// Tone is a target writing style.
type Tone string

// Supported tones.
const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneAssertive    Tone = "assertive"
)

// ParseTone validates s; the empty string selects professional.
func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ToneProfessional, nil
	case ToneProfessional, ToneFriendly, ToneAssertive:
		return t, nil
	default:
		return "", fmt.Errorf("%w: tone %q", ErrInvalidInput, s)
	}
}

// Spiciness is the decomposition granularity, 1 through 5.
type Spiciness int

// Granularity levels.
const (
	SpicyLight Spiciness = iota + 1
	SpicyMedium
	SpicyHot
	SpicyExtraHot
	SpicyInferno
)

// DefaultSpiciness is used when the caller does not choose.
const DefaultSpiciness = SpicyMedium

var spicyNames = map[Spiciness]string{
	SpicyLight:    "Light",
	SpicyMedium:   "Medium",
	SpicyHot:      "Hot",
	SpicyExtraHot: "Extra Hot",
	SpicyInferno:  "Inferno",
}

// String returns the display name.
func (s Spiciness) String() string {
	if n, ok := spicyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Spiciness(%d)", int(s))
}

// Valid reports whether s is within 1..5.
func (s Spiciness) Valid() bool {
	return s >= SpicyLight && s <= SpicyInferno
}

// Suite bundles the three capabilities.
type Suite struct {
	Transcriber  Transcriber
	ToneAdjuster ToneAdjuster
	Decomposer   Decomposer
}

// NewSuite returns a Suite backed by one implementation of all three.
func NewSuite(impl interface {
	Transcriber
	ToneAdjuster
	Decomposer
}) Suite {
	return Suite{Transcriber: impl, ToneAdjuster: impl, Decomposer: impl}
}
