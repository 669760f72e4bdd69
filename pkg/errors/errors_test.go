package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTablelogError_Message(t *testing.T) {
	err := InvalidTimestamp("noon", 7, errors.New("bad layout"))

	msg := err.Error()
	for _, want := range []string{"[E105]", "failed to parse timestamp", "row=7", "value=noon", "bad layout"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	// Context keys are sorted.
	if strings.Index(msg, "row=") > strings.Index(msg, "value=") {
		t.Errorf("Context not sorted: %q", msg)
	}
}

func TestTablelogError_IsAndAs(t *testing.T) {
	base := MissingColumn("Tables", []string{"Timestamp"})
	wrapped := fmt.Errorf("load: %w", base)

	if !errors.Is(wrapped, New(CodeMissingColumn, "")) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(wrapped, New(CodeInvalidTimestamp, "")) {
		t.Error("errors.Is should not match a different code")
	}

	var te *TablelogError
	if !errors.As(wrapped, &te) {
		t.Fatal("errors.As failed")
	}
	if te.Context["column"] != "Tables" {
		t.Errorf("column context = %v", te.Context["column"])
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, CodeWriteFailed, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestCodes(t *testing.T) {
	err := fmt.Errorf("outer: %w", FileNotFound("/nope.csv"))

	if GetCode(err) != CodeFileNotFound {
		t.Errorf("GetCode = %s", GetCode(err))
	}
	if !IsCode(err, CodeFileNotFound) {
		t.Error("IsCode should be true")
	}
	if !IsFatal(err) {
		t.Error("file not found should be fatal")
	}
	if IsFatal(New(CodeWriteFailed, "disk")) {
		t.Error("write failure is not an analysis-fatal code")
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("plain errors map to CodeUnknown")
	}
}
