package rcerrors

import (
	"encoding/json"
	"testing"
)

func TestNewOutOfOrderUsesAscendingMessage(t *testing.T) {
	err := NewOutOfOrder()
	if err.Code != CodeOutOfOrder {
		t.Errorf("expected code %s, got %s", CodeOutOfOrder, err.Code)
	}
	if err.Category != ClientError {
		t.Errorf("expected category %s, got %s", ClientError, err.Category)
	}
	want := "timestamps are out of order (timestamps must be ascending)"
	if err.Message != want {
		t.Errorf("expected message %q, got %q", want, err.Message)
	}
}

func TestNewTypeMismatchIsServerError(t *testing.T) {
	err := NewTypeMismatch("content")
	if err.Category != ServerError {
		t.Errorf("type mismatch should be a server error, got %s", err.Category)
	}
}

func TestErrorImplementsErrorInterface(t *testing.T) {
	var err error = NewNotFound(42)
	if err.Error() == "" {
		t.Error("expected non-empty error string")
	}
}

func TestToJSONRoundTrips(t *testing.T) {
	err := NewBadStrategy("intersection_col", "foo")
	js := err.ToJSON()
	if js == "" {
		t.Fatal("expected non-empty JSON")
	}
	var decoded Error
	if jerr := json.Unmarshal([]byte(js), &decoded); jerr != nil {
		t.Fatalf("expected valid JSON, got %v", jerr)
	}
	if decoded.Code != err.Code || decoded.Category != err.Category || decoded.Message != err.Message || decoded.Suggestion != err.Suggestion {
		t.Errorf("expected %+v after round trip, got %+v", *err, decoded)
	}
}
