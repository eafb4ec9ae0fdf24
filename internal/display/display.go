// Package display implements the human-facing progress and result output
// for a search session. It is a pure side-effecting boundary: nothing in
// the correlation core depends on what an Output implementation does with
// the text it's given.
package display

import "fmt"

// ANSI SGR color codes used for root-cause entries.
const (
	ColorError = 31 // the error line itself
	ColorFound = 32 // every other admitted candidate
)

// StrategyView is the provenance snapshot of one strategy that matched an
// entry, rendered for display.
type StrategyView struct {
	Name           string
	FoundWithNoise int
}

// EntryView is the display-facing projection of one RootCauseEntry.
type EntryView struct {
	LineID     int
	IsError    bool
	Timestamp  string
	Service    string
	Template   string
	Content    string
	Strategies []StrategyView
}

// Output is the display capability a search session is configured with.
// Notebook and Silent are its only two variants.
type Output interface {
	ProgressBars() bool
	PrintHeadline(text string)
	PrintNext(text string)
	PrintStatus(text string)
	PrintCompletion(text string)
	PrintRootCause(errorLineID int, entries []EntryView)
	PrintRootCauseEntry(errorLineID int, entry EntryView)
}

// rightTrim drops a trailing suffix if present, used to tidy message content
// that ends in a stray colon.
func rightTrim(text, remove string) string {
	if len(text) >= len(remove) && text[len(text)-len(remove):] == remove {
		return text[:len(text)-len(remove)]
	}
	return text
}

func coloredString(text string, code int) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, text)
}

func coloredBoldString(text string, code int) string {
	return fmt.Sprintf("\x1b[%d;1m%s\x1b[0m", code, text)
}

// Notebook prints human-readable, ANSI-colored progress and results to
// stdout, for interactive or notebook-style use.
type Notebook struct{}

func (Notebook) ProgressBars() bool { return true }

func (Notebook) PrintHeadline(text string) {
	fmt.Printf("\x1b[30;1m%s:\x1b[0m\n", text)
}

func (Notebook) PrintNext(text string) {
	fmt.Printf("\u21bb %s ...\n", text)
}

func (Notebook) PrintStatus(text string) {
	fmt.Printf("\u2139 %s.\n", text)
}

func (Notebook) PrintCompletion(text string) {
	fmt.Printf("\u2713 %s.\n", text)
}

func (n Notebook) PrintRootCause(errorLineID int, entries []EntryView) {
	if len(entries) > 1 {
		n.PrintHeadline("\nResults")
	} else {
		n.PrintCompletion("No root cause found")
		return
	}
	for _, entry := range entries {
		n.PrintRootCauseEntry(errorLineID, entry)
	}
}

func (Notebook) PrintRootCauseEntry(errorLineID int, entry EntryView) {
	color := ColorFound
	if entry.LineID == errorLineID {
		color = ColorError
	}

	out := ""
	fields := []struct{ key, value string }{
		{"Line", fmt.Sprintf("%d", entry.LineID)},
		{"Timestamp", entry.Timestamp},
		{"Service", entry.Service},
		{"Template", entry.Template},
		{"Content", rightTrim(entry.Content, ":")},
	}
	for _, f := range fields {
		out += "\n" + coloredBoldString(f.key+":", color) + " " + coloredString(f.value, color)
	}

	if len(entry.Strategies) > 0 {
		out += "\n" + coloredBoldString("Found with strategies:", color)
	}
	for _, s := range entry.Strategies {
		out += "\n" + coloredString(fmt.Sprintf("- %s|%d", s.Name, s.FoundWithNoise), color)
	}

	fmt.Println(out)
}

// Silent discards every progress and result message. Used in batch and test
// contexts where output is not wanted.
type Silent struct{}

func (Silent) ProgressBars() bool                                  { return false }
func (Silent) PrintHeadline(string)                                {}
func (Silent) PrintNext(string)                                    {}
func (Silent) PrintStatus(string)                                  {}
func (Silent) PrintCompletion(string)                               {}
func (Silent) PrintRootCause(int, []EntryView)                     {}
func (Silent) PrintRootCauseEntry(int, EntryView)                  {}
