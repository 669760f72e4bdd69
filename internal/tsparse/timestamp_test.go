package tsparse

import (
	"errors"
	"testing"
	"time"
)

func TestParser_CommonLayouts(t *testing.T) {
	want := time.Date(2025, 3, 14, 18, 30, 5, 0, time.UTC)

	inputs := []string{
		"2025-03-14 18:30:05",
		" 2025-03-14 18:30:05 ",
		"2025-03-14T18:30:05",
		"2025-03-14T18:30:05Z",
		"2025/03/14 18:30:05",
	}

	p := NewParser("")
	for _, in := range inputs {
		got, err := p.Parse(in)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("Parse(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParser_PreferredLayout(t *testing.T) {
	p := NewParser("02.01.2006 15:04")
	got, err := p.Parse("14.03.2025 18:30")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParser_ExcelSerial(t *testing.T) {
	p := NewParser("")
	// 45000.5 is 2023-03-15 12:00:00.
	got, err := p.Parse("45000.5")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParser_Invalid(t *testing.T) {
	p := NewParser("")
	for _, in := range []string{"", "   ", "yesterday", "2025-13-45 99:99:99", "1.2.3"} {
		if _, err := p.Parse(in); !errors.Is(err, ErrInvalidTimestamp) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidTimestamp", in, err)
		}
	}
}
