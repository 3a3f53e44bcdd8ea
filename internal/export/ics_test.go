package export

import (
	"strings"
	"testing"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
)

func testScreening() domain.Screening {
	return domain.Screening{
		Title:             "The Third Man",
		Venue:             "The Brattle",
		Date:              domain.NewDate(2026, 2, 6),
		Time:              domain.NewClockTime(19, 0),
		SourceURL:         "https://screenboston.com/",
		SourceSite:        "Screen Boston",
		RuntimeMinutes:    104,
		Director:          "Carol Reed",
		Year:              1949,
		SpecialAttributes: []string{"35mm"},
	}
}

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	c := NewCalendar(loc, nil)
	c.nowFunc = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	return c
}

func unfold(rendered string) string {
	return strings.ReplaceAll(rendered, "\r\n ", "")
}

func TestRenderCalendarEnvelope(t *testing.T) {
	c := newTestCalendar(t)
	rendered := c.Render([]domain.Screening{testScreening()})

	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"PRODID:-//CinemaCal//EN\r\n",
		"VERSION:2.0\r\n",
		"CALSCALE:GREGORIAN\r\n",
		"METHOD:PUBLISH\r\n",
		"X-WR-CALNAME:Movie Screenings\r\n",
		"X-WR-TIMEZONE:America/New_York\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestRenderEvent(t *testing.T) {
	c := newTestCalendar(t)
	s := testScreening()
	rendered := unfold(c.Render([]domain.Screening{s}))

	for _, want := range []string{
		"BEGIN:VEVENT",
		"UID:" + s.UniqueID() + "@cinemacal",
		"DTSTAMP:20260115T120000Z",
		"DTSTART;TZID=America/New_York:20260206T190000",
		// 104 minutes after the start.
		"DTEND;TZID=America/New_York:20260206T204400",
		"SUMMARY:The Third Man @ The Brattle",
		"LOCATION:The Brattle\\, 40 Brattle St\\, Cambridge\\, MA 02138",
		"DESCRIPTION:Director: Carol Reed\\nYear: 1949\\nRuntime: 1h 44m\\nSpecial: 35mm\\nSource: Screen Boston\\nURL: https://screenboston.com/",
		"END:VEVENT",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("missing %q in:\n%s", want, rendered)
		}
	}
}

func TestRenderDefaultsToTwoHourEnd(t *testing.T) {
	c := newTestCalendar(t)
	s := testScreening()
	s.RuntimeMinutes = 0
	rendered := unfold(c.Render([]domain.Screening{s}))

	if !strings.Contains(rendered, "DTEND;TZID=America/New_York:20260206T210000") {
		t.Errorf("expected a two hour default end:\n%s", rendered)
	}
}

func TestRenderSkipsUnrenderableEvents(t *testing.T) {
	c := newTestCalendar(t)
	missingTitle := testScreening()
	missingTitle.Title = ""

	rendered := c.Render([]domain.Screening{missingTitle, testScreening()})
	if got := strings.Count(rendered, "BEGIN:VEVENT"); got != 1 {
		t.Errorf("event count = %d, want 1", got)
	}
}

func TestRenderFoldsLongLines(t *testing.T) {
	c := newTestCalendar(t)
	s := testScreening()
	s.Extra = strings.Repeat("long notes ", 20)
	rendered := c.Render([]domain.Screening{s})

	for _, line := range strings.Split(rendered, "\r\n") {
		if len(line) > 76 {
			t.Errorf("line exceeds fold limit (%d octets): %q", len(line), line)
		}
	}
}

func TestEscapeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a,b;c", `a\,b\;c`},
		{"line\nbreak", `line\nbreak`},
		{`back\slash`, `back\\slash`},
	}
	for _, tc := range cases {
		if got := escapeText(tc.in); got != tc.want {
			t.Errorf("escapeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatRuntime(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{104, "1h 44m"},
		{45, "45m"},
		{120, "2h 0m"},
	}
	for _, tc := range cases {
		if got := formatRuntime(tc.minutes); got != tc.want {
			t.Errorf("formatRuntime(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}
