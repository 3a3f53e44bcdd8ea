package domain

import (
	"testing"
	"time"
)

func TestUniqueIDIgnoresMetadata(t *testing.T) {
	base := Screening{
		Title: "The Third Man",
		Venue: "The Brattle",
		Date:  NewDate(2026, time.February, 1),
		Time:  NewClockTime(19, 30),
	}
	enriched := base
	enriched.Director = "Carol Reed"
	enriched.Year = 1949
	enriched.RuntimeMinutes = 104
	enriched.SourceSite = "Screen Boston"

	if base.UniqueID() != enriched.UniqueID() {
		t.Fatalf("metadata must not change identity: %s vs %s", base.UniqueID(), enriched.UniqueID())
	}
	if len(base.UniqueID()) != 12 {
		t.Fatalf("expected 12-char id, got %q", base.UniqueID())
	}

	moved := base
	moved.Time = NewClockTime(21, 0)
	if base.UniqueID() == moved.UniqueID() {
		t.Fatalf("different start time must change identity")
	}
}

func TestUniqueIDIsStable(t *testing.T) {
	s := Screening{
		Title: "Playtime",
		Venue: "Harvard Film Archive",
		Date:  NewDate(2026, time.March, 7),
		Time:  NewClockTime(19, 0),
	}
	first := s.UniqueID()
	second := s.UniqueID()
	if first != second {
		t.Fatalf("expected stable id, got %s then %s", first, second)
	}
}

func TestEndAtDefaultsToTwoHours(t *testing.T) {
	s := Screening{
		Title: "Unknown Runtime",
		Venue: "The Brattle",
		Date:  NewDate(2026, time.February, 1),
		Time:  NewClockTime(19, 0),
	}
	start := s.StartAt(time.UTC)
	end := s.EndAt(time.UTC)
	if end.Sub(start) != 2*time.Hour {
		t.Fatalf("expected 2h default, got %s", end.Sub(start))
	}

	s.RuntimeMinutes = 95
	if got := s.EndAt(time.UTC).Sub(s.StartAt(time.UTC)); got != 95*time.Minute {
		t.Fatalf("expected 95m, got %s", got)
	}
}

func TestConfigDatesInclusive(t *testing.T) {
	cfg := ScrapeConfig{
		StartDate: NewDate(2025, time.January, 1),
		DaysAhead: 2,
	}
	dates := cfg.Dates()
	if len(dates) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(dates))
	}
	if !dates[0].Equal(NewDate(2025, time.January, 1)) || !dates[2].Equal(NewDate(2025, time.January, 3)) {
		t.Fatalf("unexpected window bounds: %v .. %v", dates[0], dates[2])
	}
	if !cfg.InWindow(NewDate(2025, time.January, 3)) {
		t.Fatalf("end date must be inside the window")
	}
	if cfg.InWindow(NewDate(2025, time.January, 4)) {
		t.Fatalf("day after end must be outside the window")
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := ScrapeConfig{}.Normalize()
	if cfg.DaysAhead != DefaultDaysAhead {
		t.Fatalf("expected default days ahead, got %d", cfg.DaysAhead)
	}
	if cfg.StartDate.IsZero() {
		t.Fatalf("expected start date to be filled")
	}
	if cfg.TimeoutSeconds != DefaultTimeoutSeconds || cfg.MaxRetries != DefaultMaxRetries {
		t.Fatalf("expected fetch defaults, got %d/%d", cfg.TimeoutSeconds, cfg.MaxRetries)
	}
}

func TestCanonicalVenue(t *testing.T) {
	cases := map[string]string{
		"Brattle":                         "The Brattle",
		"The Brattle":                     "The Brattle",
		"Coolidge Corner Theatre":         "Coolidge Corner Theatre",
		"Harvard Film Archive":            "Harvard Film Archive",
		"Somewhere Completely Different!": "Somewhere Completely Different!",
	}
	for input, want := range cases {
		if got := CanonicalVenue(input); got != want {
			t.Fatalf("CanonicalVenue(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestVenueAddressSubstringMatch(t *testing.T) {
	if got := VenueAddress("The Brattle"); got == "" {
		t.Fatalf("expected an address for The Brattle")
	}
	if got := VenueAddress("Unknown Microcinema"); got != "" {
		t.Fatalf("expected empty address, got %q", got)
	}
}
