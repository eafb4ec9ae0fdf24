// Package messagetable implements the in-memory log table the search engine
// runs against: a narrow struct-of-arrays layout (one slice per column, plus
// the fact that rows are kept in ascending-timestamp order) rather than a
// general-purpose dataframe. Every operation below mirrors one bullet of the
// MessageTable contract: indexed lookup, column-value lookup, time-window
// slicing, window intersection, and outside-window noise counting.
package messagetable

import (
	"sort"
	"strings"
	"time"

	"github.com/arianrashidi/rootcause-go/internal/rcerrors"
)

// Column names a MessageTable column. Only Content and ServiceTemplateID are
// valid strategy column selectors; Service and Template exist for lookup and
// display but are never compared across time windows.
type Column string

const (
	ColumnContent           Column = "content"
	ColumnService           Column = "service"
	ColumnTemplate          Column = "template"
	ColumnServiceTemplateID Column = "service_template_id"
)

// StrategyColumns lists the column selectors a Strategy is allowed to name.
var StrategyColumns = []Column{ColumnContent, ColumnServiceTemplateID}

// IsStrategyColumn reports whether c is a valid Strategy column selector.
func IsStrategyColumn(c Column) bool {
	return c == ColumnContent || c == ColumnServiceTemplateID
}

// LogMessage is one materialized row.
type LogMessage struct {
	LineID            int
	Timestamp         time.Time
	Content           string
	Service           string
	Template          string
	ServiceTemplateID int
	HasTemplate       bool
}

// MessageTable is an in-memory, ascending-timestamp-ordered table of log
// messages. It is built once per search session and never mutated except by
// AssignServiceTemplateIDs, which fills in the template-id column in place.
type MessageTable struct {
	lineID            []int
	timestamp         []time.Time
	content           []string
	service           []string
	template          []string
	serviceTemplateID []int
	hasTemplate       bool

	indexByLineID map[int]int
}

// New builds a MessageTable from parallel column slices. template and
// serviceTemplateID may be nil, meaning the table is in "pre-clustering"
// schema state (see the data model's two valid schema states). All slices
// must have equal length; callers (the preparation pipeline) are responsible
// for that invariant, since this constructor is the last, already-validated
// step of ingestion.
func New(lineID []int, timestamp []time.Time, content, service []string, template []string, serviceTemplateID []int) *MessageTable {
	hasTemplate := template != nil && serviceTemplateID != nil

	t := &MessageTable{
		lineID:        lineID,
		timestamp:     timestamp,
		content:       content,
		service:       service,
		hasTemplate:   hasTemplate,
		indexByLineID: make(map[int]int, len(lineID)),
	}
	if hasTemplate {
		t.template = template
		t.serviceTemplateID = serviceTemplateID
	}
	for i, id := range lineID {
		t.indexByLineID[id] = i
	}
	return t
}

// Len returns the number of rows.
func (t *MessageTable) Len() int {
	return len(t.lineID)
}

// HasTemplate reports whether template/service_template_id columns are
// present (post-clustering schema state).
func (t *MessageTable) HasTemplate() bool {
	return t.hasTemplate
}

func (t *MessageTable) rowAt(i int) LogMessage {
	m := LogMessage{
		LineID:      t.lineID[i],
		Timestamp:   t.timestamp[i],
		Content:     t.content[i],
		Service:     t.service[i],
		HasTemplate: t.hasTemplate,
	}
	if t.hasTemplate {
		m.Template = t.template[i]
		m.ServiceTemplateID = t.serviceTemplateID[i]
	}
	return m
}

// GetByID returns the row with the given line_id.
func (t *MessageTable) GetByID(lineID int) (LogMessage, error) {
	i, ok := t.indexByLineID[lineID]
	if !ok {
		return LogMessage{}, rcerrors.NewNotFound(lineID)
	}
	return t.rowAt(i), nil
}

// valueAt returns the value of column at row i as an interface{}: string for
// Content/Service/Template, int for ServiceTemplateID.
func (t *MessageTable) valueAt(column Column, i int) (interface{}, error) {
	switch column {
	case ColumnContent:
		return t.content[i], nil
	case ColumnService:
		return t.service[i], nil
	case ColumnTemplate:
		if !t.hasTemplate {
			return nil, rcerrors.NewMissingColumn(string(ColumnTemplate))
		}
		return t.template[i], nil
	case ColumnServiceTemplateID:
		if !t.hasTemplate {
			return nil, rcerrors.NewMissingColumn(string(ColumnServiceTemplateID))
		}
		return t.serviceTemplateID[i], nil
	default:
		return nil, rcerrors.NewMissingColumn(string(column))
	}
}

// GetByValue returns every row whose column equals value, preserving
// ascending timestamp order.
func (t *MessageTable) GetByValue(column Column, value interface{}) ([]LogMessage, error) {
	var out []LogMessage
	for i := range t.lineID {
		v, err := t.valueAt(column, i)
		if err != nil {
			return nil, err
		}
		if v == value {
			out = append(out, t.rowAt(i))
		}
	}
	return out, nil
}

// windowBounds returns the contiguous [lo, hi) index range covering rows
// whose timestamp lies in the closed interval [endTime-seconds, endTime].
// Timestamps are ascending, so both ends are found by binary search.
func (t *MessageTable) windowBounds(endTime time.Time, seconds int) (lo, hi int) {
	start := endTime.Add(-time.Duration(seconds) * time.Second)
	lo = sort.Search(len(t.timestamp), func(i int) bool {
		return !t.timestamp[i].Before(start)
	})
	hi = sort.Search(len(t.timestamp), func(i int) bool {
		return t.timestamp[i].After(endTime)
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// TimeWindow returns every row whose timestamp lies in the closed interval
// [endTime-seconds, endTime].
func (t *MessageTable) TimeWindow(endTime time.Time, seconds int) []LogMessage {
	lo, hi := t.windowBounds(endTime, seconds)
	out := make([]LogMessage, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, t.rowAt(i))
	}
	return out
}

// TimeWindows returns one subset per end time, in the same order.
func (t *MessageTable) TimeWindows(endTimes []time.Time, seconds int) [][]LogMessage {
	out := make([][]LogMessage, len(endTimes))
	for i, e := range endTimes {
		out[i] = t.TimeWindow(e, seconds)
	}
	return out
}

// TimeWindowsIntersection returns the distinct values of column present in
// every window anchored at the given end times. An empty endTimes list
// yields an empty result; a single end time yields the distinct values in
// that one window.
func (t *MessageTable) TimeWindowsIntersection(column Column, endTimes []time.Time, seconds int) ([]interface{}, error) {
	if len(endTimes) == 0 {
		return nil, nil
	}

	windows := t.TimeWindows(endTimes, seconds)

	sets := make([]map[interface{}]bool, len(windows))
	var order []interface{}
	seenInFirst := make(map[interface{}]bool)

	for wi, rows := range windows {
		set := make(map[interface{}]bool, len(rows))
		for _, r := range rows {
			v, err := rowValue(column, r)
			if err != nil {
				return nil, err
			}
			set[v] = true
			if wi == 0 && !seenInFirst[v] {
				seenInFirst[v] = true
				order = append(order, v)
			}
		}
		sets[wi] = set
	}

	var out []interface{}
	for _, v := range order {
		inAll := true
		for _, set := range sets {
			if !set[v] {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, v)
		}
	}
	return out, nil
}

// CountOutsideTimeWindows counts, per distinct value of column, how many
// rows lie outside every one of the given windows. Before counting, the
// table's own maximum timestamp is appended to endTimes as an implicit extra
// window boundary, so the tail of the data is always subtracted too.
func (t *MessageTable) CountOutsideTimeWindows(column Column, endTimes []time.Time, seconds int) (map[interface{}]int, error) {
	allEndTimes := endTimes
	if n := t.Len(); n > 0 {
		allEndTimes = append(append([]time.Time{}, endTimes...), t.timestamp[n-1])
	}

	inside := make([]bool, t.Len())
	for _, e := range allEndTimes {
		lo, hi := t.windowBounds(e, seconds)
		for i := lo; i < hi; i++ {
			inside[i] = true
		}
	}

	counts := make(map[interface{}]int)
	for i := range t.lineID {
		if inside[i] {
			continue
		}
		v, err := t.valueAt(column, i)
		if err != nil {
			return nil, err
		}
		counts[v]++
	}
	return counts, nil
}

// Value returns the value of column on an already-materialized LogMessage,
// for callers (the search engine's filters and strategy comparisons) that
// hold rows rather than table indices.
func Value(column Column, r LogMessage) (interface{}, error) {
	return rowValue(column, r)
}

func rowValue(column Column, r LogMessage) (interface{}, error) {
	switch column {
	case ColumnContent:
		return r.Content, nil
	case ColumnService:
		return r.Service, nil
	case ColumnTemplate:
		return r.Template, nil
	case ColumnServiceTemplateID:
		return r.ServiceTemplateID, nil
	default:
		return nil, rcerrors.NewMissingColumn(string(column))
	}
}

// pairKey is the unordered (service, template) grouping key used by
// AssignServiceTemplateIDs. Equal pairs always yield equal keys since both
// fields participate, so there is nothing to "unorder" in practice - the two
// fields are simply compared together.
type pairKey struct {
	service  string
	template string
}

// AssignServiceTemplateIDs groups rows by their (service, template) pair and
// assigns each distinct pair a dense positive integer id, in first-appearance
// order. The table must already carry a template column (HasTemplate).
func (t *MessageTable) AssignServiceTemplateIDs() error {
	if t.template == nil {
		return rcerrors.NewMissingColumn(string(ColumnTemplate))
	}

	ids := make(map[pairKey]int)
	assigned := make([]int, t.Len())
	next := 1

	for i := range t.lineID {
		key := pairKey{service: t.service[i], template: t.template[i]}
		id, ok := ids[key]
		if !ok {
			id = next
			ids[key] = id
			next++
		}
		assigned[i] = id
	}

	t.serviceTemplateID = assigned
	t.hasTemplate = true
	return nil
}

// timestampLayouts are tried in order against a raw timestamp field.
// "15:04:05.999999" accepts an optional fractional part of any number of
// digits (Go's parser reads every digit present, so nanosecond values are
// kept as well); the plain whole-second layout is tried second.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ValidateTimestampFormat parses a raw timestamp field in the canonical
// "YYYY-MM-DD HH:MM:SS[.ffffff]" layout, accepting an optional fractional
// part of any length, and fails with BadTimestamp if none of
// timestampLayouts match.
func ValidateTimestampFormat(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, rcerrors.NewBadTimestamp(raw)
}

// ValidateTimestampOrder fails with OutOfOrder if the first timestamp is
// after the last. The contract is ascending order (see the Open Question
// decision recorded for internal/rcerrors: the reference implementation's
// error text mislabels this check "descending").
func ValidateTimestampOrder(timestamps []time.Time) error {
	if len(timestamps) < 2 {
		return nil
	}
	if timestamps[0].After(timestamps[len(timestamps)-1]) {
		return rcerrors.NewOutOfOrder()
	}
	return nil
}

// EnsureRequiredColumnsExist checks that timestamp, content and service are
// present, plus template and service_template_id when templateRequired.
func EnsureRequiredColumnsExist(headers []string, templateRequired bool) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	required := []string{"timestamp", "content", "service"}
	if templateRequired {
		required = append(required, "template", "service_template_id")
	}
	for _, r := range required {
		if !present[r] {
			return rcerrors.NewMissingColumn(r)
		}
	}
	return nil
}

// NormalizeColumnNames trims, lowercases, and replaces '-' and ' ' with '_'
// in every header.
func NormalizeColumnNames(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		h = strings.ToLower(h)
		h = strings.ReplaceAll(h, "-", "_")
		h = strings.ReplaceAll(h, " ", "_")
		out[i] = h
	}
	return out
}

// CombineDaytimeToTimestamps concatenates a "day" and "time" column into a
// "timestamp" column when the latter is absent, returning the (possibly
// rewritten) headers and rows. headers is assumed already normalized. Rows
// that are shorter than headers are left untouched.
func CombineDaytimeToTimestamps(headers []string, rows [][]string) ([]string, [][]string) {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[h] = i
	}

	_, hasTimestamp := idx["timestamp"]
	dayIdx, hasDay := idx["day"]
	timeIdx, hasTime := idx["time"]
	if hasTimestamp || !hasDay || !hasTime {
		return headers, rows
	}

	newHeaders := append(append([]string{}, headers...), "timestamp")
	newRows := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) <= dayIdx || len(row) <= timeIdx {
			newRows[i] = row
			continue
		}
		combined := row[dayIdx] + " " + row[timeIdx]
		newRows[i] = append(append([]string{}, row...), combined)
	}
	return newHeaders, newRows
}
