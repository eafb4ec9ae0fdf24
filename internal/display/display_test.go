package display

import "testing"

func TestSilentProgressBarsIsFalse(t *testing.T) {
	if (Silent{}).ProgressBars() {
		t.Error("expected Silent output to report no progress bars")
	}
}

func TestNotebookProgressBarsIsTrue(t *testing.T) {
	if !(Notebook{}).ProgressBars() {
		t.Error("expected Notebook output to report progress bars")
	}
}

func TestRightTrimDropsTrailingSuffix(t *testing.T) {
	if got := rightTrim("failed:", ":"); got != "failed" {
		t.Errorf("expected trailing colon trimmed, got %q", got)
	}
}

func TestRightTrimLeavesTextWithoutSuffix(t *testing.T) {
	if got := rightTrim("failed", ":"); got != "failed" {
		t.Errorf("expected unchanged text, got %q", got)
	}
}

func TestColoredStringWrapsInSGRCodes(t *testing.T) {
	got := coloredString("x", ColorError)
	want := "\x1b[31mx\x1b[0m"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestSilentPrintRootCauseDoesNotPanic(t *testing.T) {
	(Silent{}).PrintRootCause(1, []EntryView{{LineID: 1, IsError: true}})
}
