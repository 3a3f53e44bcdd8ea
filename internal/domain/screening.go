package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ClockTime is a venue-local wall-clock time with minute resolution.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute}
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:00", t.Hour, t.Minute)
}

// MinutesSinceMidnight is used for ordering showtimes within a day.
func (t ClockTime) MinutesSinceMidnight() int {
	return t.Hour*60 + t.Minute
}

func (t ClockTime) Before(other ClockTime) bool {
	return t.MinutesSinceMidnight() < other.MinutesSinceMidnight()
}

// Screening is one showing of one film at one venue, date and time.
type Screening struct {
	Title             string    `json:"title"`
	Venue             string    `json:"venue"`
	Date              time.Time `json:"date"`
	Time              ClockTime `json:"time"`
	SourceURL         string    `json:"source_url"`
	SourceSite        string    `json:"source_site"`
	RuntimeMinutes    int       `json:"runtime_minutes,omitempty"`
	Director          string    `json:"director,omitempty"`
	Year              int       `json:"year,omitempty"`
	Extra             string    `json:"extra,omitempty"`
	SpecialAttributes []string  `json:"special_attributes,omitempty"`
}

// Date values are always normalized to midnight UTC so they compare and
// format as plain calendar dates.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartAt combines the calendar date and wall-clock time in the given zone.
func (s Screening) StartAt(loc *time.Location) time.Time {
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), s.Time.Hour, s.Time.Minute, 0, 0, loc)
}

// EndAt is the start plus the runtime, or plus two hours when the runtime is
// unknown.
func (s Screening) EndAt(loc *time.Location) time.Time {
	duration := 2 * time.Hour
	if s.RuntimeMinutes > 0 {
		duration = time.Duration(s.RuntimeMinutes) * time.Minute
	}
	return s.StartAt(loc).Add(duration)
}

// UniqueID is the stable identity hash of (title, venue, date, time). Two
// screenings that differ only in metadata share an id and are the same
// logical event.
func (s Screening) UniqueID() string {
	key := fmt.Sprintf("%s|%s|%s|%s", s.Title, s.Venue, s.Date.Format("2006-01-02"), s.Time)
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}

// SameEvent reports whether two screenings share identity. Metadata fields do
// not participate.
func (s Screening) SameEvent(other Screening) bool {
	return s.Title == other.Title &&
		s.Venue == other.Venue &&
		s.Date.Equal(other.Date) &&
		s.Time == other.Time
}

func (s Screening) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s @ %s - %s %02d:%02d", s.Title, s.Venue, s.Date.Format("Mon Jan 02"), s.Time.Hour, s.Time.Minute)
	if s.Extra != "" {
		fmt.Fprintf(&b, " [%s]", s.Extra)
	}
	if len(s.SpecialAttributes) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(s.SpecialAttributes, ", "))
	}
	return b.String()
}

// VenueAddresses maps canonical venue display names to street addresses for
// calendar export.
var VenueAddresses = map[string]string{
	"The Brattle":             "40 Brattle St, Cambridge, MA 02138",
	"Coolidge Corner Theatre": "290 Harvard St, Brookline, MA 02446",
	"Harvard Film Archive":    "24 Quincy St, Cambridge, MA 02138",
	"Somerville Theatre":      "55 Davis Square, Somerville, MA 02144",
	"West Newton Cinema":      "1296 Washington St, West Newton, MA 02465",
	"Museum of Fine Arts":     "465 Huntington Ave, Boston, MA 02115",
	"Capitol Theatre":         "204 Massachusetts Ave, Arlington, MA 02474",
}

// VenueAddress looks up the address for a venue with substring matching in
// either direction.
func VenueAddress(venue string) string {
	lowered := strings.ToLower(venue)
	for name, address := range VenueAddresses {
		nameLower := strings.ToLower(name)
		if strings.Contains(lowered, nameLower) || strings.Contains(nameLower, lowered) {
			return address
		}
	}
	return ""
}

// CanonicalVenue maps venue aliases and substrings to one fixed display name
// used for grouping. Unrecognized venues pass through unchanged.
func CanonicalVenue(venue string) string {
	trimmed := strings.TrimSpace(venue)
	if trimmed == "" {
		return venue
	}
	lowered := strings.ToLower(trimmed)
	for name := range VenueAddresses {
		nameLower := strings.ToLower(name)
		if strings.Contains(lowered, nameLower) || strings.Contains(nameLower, lowered) {
			return name
		}
	}
	return venue
}
