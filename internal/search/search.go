// Package search implements the correlation core: given an error line and
// an ordered list of strategies, it scans a MessageTable and produces the
// set of other lines that are plausible correlated precursors.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/arianrashidi/rootcause-go/internal/display"
	"github.com/arianrashidi/rootcause-go/internal/messagetable"
	"github.com/arianrashidi/rootcause-go/internal/rcerrors"
	"github.com/arianrashidi/rootcause-go/internal/strategy"
)

// RootCauseEntry is one admitted line, together with every strategy
// snapshot that caused it to be admitted.
type RootCauseEntry struct {
	LineID     int
	Message    messagetable.LogMessage
	Strategies []strategy.Strategy
}

// RootCauseSet is the result of one search: ordered ascending by LineID,
// at most one entry per LineID.
type RootCauseSet []RootCauseEntry

// Settings configures one search session: the filters applied to every
// candidate, and the display sink progress is reported to. Regexes are
// pre-compiled at construction (fail fast) rather than compiled per
// candidate.
type Settings struct {
	ServiceFilter      []*regexp.Regexp
	ContentFilter      []*regexp.Regexp
	DuplicateFilterCol messagetable.Column
	HasDuplicateFilter bool
	Output             display.Output
}

// NewSettings compiles the given filter patterns. Unanchored substring
// search, matching the reference's re.search semantics.
func NewSettings(serviceFilter, contentFilter []string, duplicateFilterCol string, output display.Output) (Settings, error) {
	if output == nil {
		output = display.Silent{}
	}

	s := Settings{Output: output}
	for _, pattern := range serviceFilter {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid service_filter pattern %q: %w", pattern, err)
		}
		s.ServiceFilter = append(s.ServiceFilter, re)
	}
	for _, pattern := range contentFilter {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid content_filter pattern %q: %w", pattern, err)
		}
		s.ContentFilter = append(s.ContentFilter, re)
	}
	if duplicateFilterCol != "" {
		s.DuplicateFilterCol = messagetable.Column(duplicateFilterCol)
		s.HasDuplicateFilter = true
	}
	return s, nil
}

// Engine runs strategies against a MessageTable and accumulates a
// RootCauseSet. One Engine serves exactly one search(error_line_id) call;
// construct a fresh Engine per invocation.
type Engine struct {
	table      *messagetable.MessageTable
	settings   Settings
	strategies []strategy.Strategy
	rootCause  []RootCauseEntry
}

// New creates an Engine over table, configured with settings and an ordered
// list of strategies to run.
func New(table *messagetable.MessageTable, settings Settings, strategies []strategy.Strategy) *Engine {
	return &Engine{table: table, settings: settings, strategies: strategies}
}

// Search runs every configured strategy against errorLineID and returns the
// resulting RootCauseSet, sorted ascending by LineID. The error line itself
// is always considered for inclusion last, so it survives even when no
// strategy admits any candidate (subject to the same filters as any other
// candidate).
func (e *Engine) Search(errorLineID int) (RootCauseSet, error) {
	e.rootCause = nil

	errorRow, err := e.table.GetByID(errorLineID)
	if err != nil {
		return nil, err
	}

	for _, s := range e.strategies {
		if err := e.searchStrategy(errorLineID, errorRow, s); err != nil {
			return nil, err
		}
	}

	if _, err := e.addToRootCause(errorLineID, 0, nil); err != nil {
		return nil, err
	}

	sort.Slice(e.rootCause, func(i, j int) bool {
		return e.rootCause[i].LineID < e.rootCause[j].LineID
	})

	result := make(RootCauseSet, len(e.rootCause))
	copy(result, e.rootCause)

	views := make([]display.EntryView, len(result))
	for i, entry := range result {
		views[i] = toEntryView(errorLineID, entry)
	}
	e.settings.Output.PrintRootCause(errorLineID, views)

	return result, nil
}

func toEntryView(errorLineID int, entry RootCauseEntry) display.EntryView {
	v := display.EntryView{
		LineID:    entry.LineID,
		IsError:   entry.LineID == errorLineID,
		Timestamp: entry.Message.Timestamp.String(),
		Service:   entry.Message.Service,
		Template:  entry.Message.Template,
		Content:   entry.Message.Content,
	}
	for _, s := range entry.Strategies {
		v.Strategies = append(v.Strategies, display.StrategyView{Name: s.Name(), FoundWithNoise: s.FoundWithNoise})
	}
	return v
}

// searchStrategy runs the seven-step correlation algorithm for one
// strategy, admitting candidates via addToRootCause as it finds them.
func (e *Engine) searchStrategy(errorLineID int, errorRow messagetable.LogMessage, s strategy.Strategy) error {
	e.settings.Output.PrintHeadline(fmt.Sprintf("Trying search strategy %q", s.Name()))

	errorIntersectionOccVal, err := messagetable.Value(s.IntersectionOccurrencesCol, errorRow)
	if err != nil {
		return err
	}
	intersectionOccurrences, err := e.table.GetByValue(s.IntersectionOccurrencesCol, errorIntersectionOccVal)
	if err != nil {
		return err
	}
	e.settings.Output.PrintStatus(fmt.Sprintf("%d error occurrences found for intersection", len(intersectionOccurrences)))
	if len(intersectionOccurrences) < 2 {
		return nil
	}

	intersection, err := e.table.TimeWindowsIntersection(s.IntersectionCol, timestampsOf(intersectionOccurrences), s.WindowSeconds)
	if err != nil {
		return err
	}
	e.settings.Output.PrintStatus(fmt.Sprintf("%d values in intersection of time windows found", len(intersection)))
	if len(intersection) < 2 {
		return nil
	}

	errorWindow := e.table.TimeWindow(errorRow.Timestamp, s.WindowSeconds)

	errorHiddenOccVal, err := messagetable.Value(s.HiddenOccurrencesCol, errorRow)
	if err != nil {
		return err
	}
	hiddenOccurrences, err := e.table.GetByValue(s.HiddenOccurrencesCol, errorHiddenOccVal)
	if err != nil {
		return err
	}
	e.settings.Output.PrintStatus(fmt.Sprintf("%d error occurrences found for the uniqueness check exclusion", len(hiddenOccurrences)))
	if len(hiddenOccurrences) < 2 {
		return nil
	}

	outsideWindowsCount, err := e.table.CountOutsideTimeWindows(s.UniquenessCol, timestampsOf(hiddenOccurrences), s.WindowSeconds)
	if err != nil {
		return err
	}

	addedCount := 0
	for _, intersectionValue := range intersection {
		var filtered []messagetable.LogMessage
		for _, row := range errorWindow {
			v, err := messagetable.Value(s.IntersectionCol, row)
			if err != nil {
				return err
			}
			if v == intersectionValue {
				filtered = append(filtered, row)
			}
		}

		seen := make(map[interface{}]bool)
		for _, row := range filtered {
			u, err := messagetable.Value(s.UniquenessCol, row)
			if err != nil {
				return err
			}
			if seen[u] {
				continue
			}
			seen[u] = true

			if err := checkTypeAgreement(u, outsideWindowsCount, s.UniquenessCol); err != nil {
				return err
			}

			if row.LineID == errorLineID {
				continue
			}

			foundWithNoise := outsideWindowsCount[u]
			if foundWithNoise <= s.MaxNoise {
				admitted, err := e.addToRootCause(row.LineID, foundWithNoise, &s)
				if err != nil {
					return err
				}
				if admitted {
					addedCount++
				}
			}
		}
	}

	e.settings.Output.PrintCompletion(fmt.Sprintf("%d lines added to root cause", addedCount))
	return nil
}

// checkTypeAgreement enforces that a candidate uniqueness value's runtime
// type agrees with the noise-count map's key type. Both columns this engine
// ever compares are typed consistently by MessageTable (string for content,
// int for service_template_id), so a mismatch indicates corrupted data
// rather than a legitimate code path.
func checkTypeAgreement(candidate interface{}, counts map[interface{}]int, column messagetable.Column) error {
	if len(counts) == 0 {
		return nil
	}
	for key := range counts {
		if fmt.Sprintf("%T", key) != fmt.Sprintf("%T", candidate) {
			return rcerrors.NewTypeMismatch(string(column))
		}
		break
	}
	return nil
}


func timestampsOf(rows []messagetable.LogMessage) []time.Time {
	out := make([]time.Time, len(rows))
	for i, r := range rows {
		out[i] = r.Timestamp
	}
	return out
}

// addToRootCause applies the filter/dedup/merge policy for admitting one
// candidate line. service_filter and content_filter regex exclusions are
// checked first; duplicate_filter_col rejects a candidate whose value in
// that column already appears in the accumulated set. If the line is
// already present and a strategy is given, the strategy snapshot is
// appended to that entry instead of creating a new one.
func (e *Engine) addToRootCause(lineID int, foundWithNoise int, s *strategy.Strategy) (bool, error) {
	row, err := e.table.GetByID(lineID)
	if err != nil {
		return false, err
	}

	for _, re := range e.settings.ServiceFilter {
		if re.MatchString(row.Service) {
			return false, nil
		}
	}
	for _, re := range e.settings.ContentFilter {
		if re.MatchString(row.Content) {
			return false, nil
		}
	}

	if e.settings.HasDuplicateFilter {
		candidateValue, err := messagetable.Value(e.settings.DuplicateFilterCol, row)
		if err != nil {
			return false, err
		}
		for _, entry := range e.rootCause {
			existing, err := messagetable.Value(e.settings.DuplicateFilterCol, entry.Message)
			if err != nil {
				return false, err
			}
			if existing == candidateValue {
				return false, nil
			}
		}
	}

	var snapshot *strategy.Strategy
	if s != nil {
		copied := s.WithFoundWithNoise(foundWithNoise)
		snapshot = &copied
	}

	for i := range e.rootCause {
		if e.rootCause[i].LineID == lineID && snapshot != nil {
			e.rootCause[i].Strategies = append(e.rootCause[i].Strategies, *snapshot)
			return true, nil
		}
	}

	entry := RootCauseEntry{LineID: lineID, Message: row}
	if snapshot != nil {
		entry.Strategies = []strategy.Strategy{*snapshot}
	}
	e.rootCause = append(e.rootCause, entry)
	return true, nil
}
