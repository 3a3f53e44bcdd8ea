package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
)

const brattleFixture = `<html><body>
<p>Skip to content</p>
<h1>Upcoming Films</h1>
<h2>The Red Shoes</h2>
<p>Opens on January 28</p>
<p>Director:</p>
<p>Michael Powell &amp; Emeric Pressburger</p>
<p>Run Time:</p>
<p>133 min.</p>
<p>Format:</p>
<p>35mm Film</p>
<p>Release Year:</p>
<p>1948</p>
<p>Wed, Jan 28</p>
<p>7:00 pm</p>
<p>7:00 pm</p>
<p>Thu, Jan 29</p>
<p>9:30 pm</p>
<h2>The Umbrellas of Cherbourg</h2>
<p>Director:</p>
<p>Jacques Demy</p>
<p>Run Time:</p>
<p>91 min</p>
<p>Release Year:</p>
<p>1964</p>
<p>Fri, Feb 6</p>
<p>4:30 pm</p>
<p>7:00 pm</p>
<p>The Brattle Film Foundation</p>
<p>40 Brattle St, Cambridge, MA 02138</p>
</body></html>`

func TestBrattleScrape(t *testing.T) {
	client := &stubClient{pages: map[string]string{
		brattleComingSoonURL: brattleFixture,
	}}
	b := NewBrattle(client, testLogger())
	b.nowFunc = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }

	cfg := domain.ScrapeConfig{StartDate: domain.NewDate(2026, 1, 15), DaysAhead: 30}
	screenings, err := b.Scrape(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	// The duplicated 7:00 pm line collapses, leaving two Red Shoes showings
	// and two Umbrellas showings.
	if len(screenings) != 4 {
		t.Fatalf("expected 4 screenings, got %d: %v", len(screenings), screenings)
	}

	redShoes := screenings[0]
	if redShoes.Title != "The Red Shoes" {
		t.Fatalf("title = %q", redShoes.Title)
	}
	if redShoes.Venue != "The Brattle" {
		t.Errorf("venue = %q", redShoes.Venue)
	}
	if !redShoes.Date.Equal(domain.NewDate(2026, 1, 28)) {
		t.Errorf("date = %v", redShoes.Date)
	}
	if redShoes.Time != domain.NewClockTime(19, 0) {
		t.Errorf("time = %v", redShoes.Time)
	}
	if redShoes.Director != "Michael Powell & Emeric Pressburger" {
		t.Errorf("director = %q", redShoes.Director)
	}
	if redShoes.RuntimeMinutes != 133 {
		t.Errorf("runtime = %d", redShoes.RuntimeMinutes)
	}
	if redShoes.Year != 1948 {
		t.Errorf("year = %d", redShoes.Year)
	}
	if len(redShoes.SpecialAttributes) != 1 || redShoes.SpecialAttributes[0] != "35mm" {
		t.Errorf("special attributes = %v", redShoes.SpecialAttributes)
	}
	// The 35mm format already carries the canonical tag, so no extra text.
	if redShoes.Extra != "" {
		t.Errorf("extra = %q", redShoes.Extra)
	}

	if !screenings[1].Date.Equal(domain.NewDate(2026, 1, 29)) || screenings[1].Time != domain.NewClockTime(21, 30) {
		t.Errorf("second showing = %v %v", screenings[1].Date, screenings[1].Time)
	}

	umbrellas := screenings[2]
	if umbrellas.Title != "The Umbrellas of Cherbourg" {
		t.Fatalf("title = %q", umbrellas.Title)
	}
	if umbrellas.Director != "Jacques Demy" {
		t.Errorf("director = %q", umbrellas.Director)
	}
	if umbrellas.RuntimeMinutes != 91 {
		t.Errorf("runtime = %d", umbrellas.RuntimeMinutes)
	}
	if umbrellas.Year != 1964 {
		t.Errorf("year = %d", umbrellas.Year)
	}
	if umbrellas.Time != domain.NewClockTime(16, 30) {
		t.Errorf("time = %v", umbrellas.Time)
	}
	if len(umbrellas.SpecialAttributes) != 0 {
		t.Errorf("special attributes = %v", umbrellas.SpecialAttributes)
	}
	if umbrellas.SourceSite != "Brattle" {
		t.Errorf("source site = %q", umbrellas.SourceSite)
	}
}

func TestBrattleWindowExcludesDistantDates(t *testing.T) {
	client := &stubClient{pages: map[string]string{
		brattleComingSoonURL: brattleFixture,
	}}
	b := NewBrattle(client, testLogger())
	b.nowFunc = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }

	// Window closes January 31, dropping the February showings.
	cfg := domain.ScrapeConfig{StartDate: domain.NewDate(2026, 1, 15), DaysAhead: 16}
	screenings, err := b.Scrape(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(screenings) != 2 {
		t.Fatalf("expected 2 screenings, got %d", len(screenings))
	}
	for _, s := range screenings {
		if s.Title != "The Red Shoes" {
			t.Errorf("unexpected screening outside window: %v", s)
		}
	}
}

func TestBrattleParseRuntime(t *testing.T) {
	cases := []struct {
		value string
		want  int
	}{
		{"133 min.", 133},
		{"91 min", 91},
		{"2hr 30min", 150},
		{"N/A", 0},
	}
	for _, tc := range cases {
		if got := brattleParseRuntime(tc.value); got != tc.want {
			t.Errorf("brattleParseRuntime(%q) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestBrattleLooksLikeTitle(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"The Red Shoes", true},
		{"Director:", false},
		{"7:00 pm", false},
		{"Wednesday, January 28", false},
		{"ok", false},
		{"lowercase opener", false},
	}
	for _, tc := range cases {
		if got := brattleLooksLikeTitle(tc.line); got != tc.want {
			t.Errorf("brattleLooksLikeTitle(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestBrattleNormalizeFormat(t *testing.T) {
	cases := []struct {
		format string
		want   string
	}{
		{"35mm Film", "35mm"},
		{"70mm", "70mm"},
		{"16mm print", "16mm"},
		{"DCP", ""},
		{"Unknown", ""},
	}
	for _, tc := range cases {
		if got := brattleNormalizeFormat(tc.format); got != tc.want {
			t.Errorf("brattleNormalizeFormat(%q) = %q, want %q", tc.format, got, tc.want)
		}
	}
}
