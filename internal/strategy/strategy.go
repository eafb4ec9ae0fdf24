// Package strategy defines the Strategy value object that parameterizes one
// correlation attempt within a search: which columns to intersect and check
// for uniqueness, how wide a time window to use, and how much noise to
// tolerate.
package strategy

import (
	"fmt"

	"github.com/arianrashidi/rootcause-go/internal/messagetable"
	"github.com/arianrashidi/rootcause-go/internal/rcerrors"
)

// Strategy is immutable once constructed; FoundWithNoise is only ever set on
// a deep copy taken at match time, to record provenance for one matched
// RootCauseEntry, never on the shared original.
type Strategy struct {
	IntersectionOccurrencesCol messagetable.Column
	IntersectionCol            messagetable.Column
	HiddenOccurrencesCol       messagetable.Column
	UniquenessCol              messagetable.Column
	WindowSeconds              int
	MaxNoise                   int

	FoundWithNoise int
}

// New validates and constructs a Strategy. Every column selector must be
// content or service_template_id; anything else fails with BadStrategy.
func New(intersectionOccurrencesCol, intersectionCol, hiddenOccurrencesCol, uniquenessCol messagetable.Column, windowSeconds, maxNoise int) (*Strategy, error) {
	fields := map[string]messagetable.Column{
		"intersection_occurrences_col": intersectionOccurrencesCol,
		"intersection_col":             intersectionCol,
		"hidden_occurrences_col":       hiddenOccurrencesCol,
		"uniqueness_col":               uniquenessCol,
	}
	for field, col := range fields {
		if !messagetable.IsStrategyColumn(col) {
			return nil, rcerrors.NewBadStrategy(field, string(col))
		}
	}
	if windowSeconds <= 0 {
		return nil, rcerrors.NewBadStrategy("window_seconds", fmt.Sprintf("%d", windowSeconds))
	}
	if maxNoise < 0 {
		return nil, rcerrors.NewBadStrategy("max_noise", fmt.Sprintf("%d", maxNoise))
	}

	return &Strategy{
		IntersectionOccurrencesCol: intersectionOccurrencesCol,
		IntersectionCol:            intersectionCol,
		HiddenOccurrencesCol:       hiddenOccurrencesCol,
		UniquenessCol:              uniquenessCol,
		WindowSeconds:              windowSeconds,
		MaxNoise:                   maxNoise,
	}, nil
}

// WithFoundWithNoise returns a value copy of s with FoundWithNoise set,
// leaving the receiver untouched. Used to snapshot a Strategy for provenance
// on a single matched RootCauseEntry.
func (s Strategy) WithFoundWithNoise(found int) Strategy {
	s.FoundWithNoise = found
	return s
}

// Name renders a stable label for logging and display, matching the
// reference's strategy headline format.
func (s Strategy) Name() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", s.IntersectionOccurrencesCol, s.IntersectionCol, s.HiddenOccurrencesCol, s.UniquenessCol, s.MaxNoise)
}
