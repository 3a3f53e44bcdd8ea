package export

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
)

const (
	icsProdID   = "-//CinemaCal//EN"
	icsCalName  = "Movie Screenings"
	icsUIDSufix = "@cinemacal"
)

// Calendar renders screenings as an iCalendar feed. Event start and end
// times are written in the configured timezone; an event that cannot be
// rendered is skipped with a warning rather than failing the export.
type Calendar struct {
	location *time.Location
	logger   *log.Logger
	nowFunc  func() time.Time
}

func NewCalendar(location *time.Location, logger *log.Logger) *Calendar {
	if location == nil {
		location = time.UTC
	}
	return &Calendar{location: location, logger: logger, nowFunc: time.Now}
}

func (c *Calendar) Render(screenings []domain.Screening) string {
	var b strings.Builder
	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "PRODID:"+icsProdID)
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "CALSCALE:GREGORIAN")
	writeLine(&b, "METHOD:PUBLISH")
	writeLine(&b, "X-WR-CALNAME:"+icsCalName)
	writeLine(&b, "X-WR-TIMEZONE:"+c.location.String())

	stamp := c.nowFunc().UTC().Format("20060102T150405Z")
	for _, s := range screenings {
		if err := c.writeEvent(&b, s, stamp); err != nil {
			if c.logger != nil {
				c.logger.Printf("skipping event %q: %v", s.Title, err)
			}
		}
	}

	writeLine(&b, "END:VCALENDAR")
	return b.String()
}

func (c *Calendar) writeEvent(b *strings.Builder, s domain.Screening, stamp string) error {
	if s.Title == "" || s.Date.IsZero() {
		return fmt.Errorf("missing title or date")
	}

	start := s.StartAt(c.location)
	end := s.EndAt(c.location)

	writeLine(b, "BEGIN:VEVENT")
	writeLine(b, "UID:"+s.UniqueID()+icsUIDSufix)
	writeLine(b, "DTSTAMP:"+stamp)
	writeLine(b, fmt.Sprintf("DTSTART;TZID=%s:%s", c.location.String(), start.Format("20060102T150405")))
	writeLine(b, fmt.Sprintf("DTEND;TZID=%s:%s", c.location.String(), end.Format("20060102T150405")))
	writeLine(b, "SUMMARY:"+escapeText(fmt.Sprintf("%s @ %s", s.Title, s.Venue)))

	location := s.Venue
	if address := domain.VenueAddress(s.Venue); address != "" {
		location = s.Venue + ", " + address
	}
	writeLine(b, "LOCATION:"+escapeText(location))

	if description := eventDescription(s); description != "" {
		writeLine(b, "DESCRIPTION:"+escapeText(description))
	}
	writeLine(b, "END:VEVENT")
	return nil
}

func eventDescription(s domain.Screening) string {
	var lines []string
	if s.Director != "" {
		lines = append(lines, "Director: "+s.Director)
	}
	if s.Year > 0 {
		lines = append(lines, fmt.Sprintf("Year: %d", s.Year))
	}
	if s.RuntimeMinutes > 0 {
		lines = append(lines, "Runtime: "+formatRuntime(s.RuntimeMinutes))
	}
	if len(s.SpecialAttributes) > 0 {
		lines = append(lines, "Special: "+strings.Join(s.SpecialAttributes, ", "))
	}
	if s.Extra != "" {
		lines = append(lines, "Notes: "+s.Extra)
	}
	if s.SourceSite != "" {
		lines = append(lines, "Source: "+s.SourceSite)
	}
	if s.SourceURL != "" {
		lines = append(lines, "URL: "+s.SourceURL)
	}
	return strings.Join(lines, "\n")
}

func formatRuntime(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}

// writeLine emits one content line with CRLF endings and RFC 5545 folding
// at 75 octets.
func writeLine(b *strings.Builder, line string) {
	const limit = 75
	for len(line) > limit {
		cut := limit
		// Do not split a UTF-8 sequence across the fold.
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

func isRuneStart(c byte) bool {
	return c&0xC0 != 0x80
}

func escapeText(value string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return replacer.Replace(value)
}
