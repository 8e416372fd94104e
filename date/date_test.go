package date

import (
	"testing"
	"time"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
		// tests also checks that the property remain true
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("2025-7-1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := New(2025, time.July, 1); got != want {
		t.Errorf("Parse = %v, want %v", got, want)
	}
	if _, err := Parse("01.07.2025"); err == nil {
		t.Errorf("Parse accepted a non ISO date")
	}
}

func TestParseLayout(t *testing.T) {
	got, err := ParseLayout("02/01/2006", "31/07/2025")
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	if want := New(2025, time.July, 31); got != want {
		t.Errorf("ParseLayout = %v, want %v", got, want)
	}
}

func TestAdd(t *testing.T) {
	d := New(2025, time.July, 31)
	if got, want := d.Add(1), New(2025, time.August, 1); got != want {
		t.Errorf("Add(1) = %v, want %v", got, want)
	}
}
