package scraper

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/attributes"
	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/fetch"
	"github.com/cinemacal/cinemacal-back/internal/parsing"
)

const screenBostonBaseURL = "https://screenboston.com/"

// screenBostonVenues maps canonical venue names to the aliases the
// aggregator uses.
var screenBostonVenues = []struct {
	name     string
	patterns []string
}{
	{"The Brattle", []string{"brattle", "the brattle"}},
	{"Coolidge Corner Theatre", []string{"coolidge", "coolidge corner"}},
	{"Harvard Film Archive", []string{"harvard film archive", "hfa"}},
	{"Somerville Theatre", []string{"somerville theatre", "somerville theater"}},
	{"West Newton Cinema", []string{"west newton"}},
	{"Museum of Fine Arts", []string{"museum of fine arts", "mfa", "museum of fine art"}},
	{"Capitol Theatre", []string{"capitol theatre", "capitol theater"}},
}

var (
	sbTimeLineRe  = regexp.MustCompile(`(?i)^(\d{1,2}:\d{2}\s*(?:AM|PM))$`)
	sbMetadataRe  = regexp.MustCompile(`^(19\d{2}|20\d{2}),\s*\w+,\s*(\d+h\s*\d*m?)`)
	sbYearLineRe  = regexp.MustCompile(`^(19\d{2}|20\d{2})$`)
	sbRuntimeRe   = regexp.MustCompile(`(\d+)h\s*(\d*)m?`)
	sbHasDigitsRe = regexp.MustCompile(`\d`)
)

var sbSectionHeaders = map[string]struct{}{
	"now screening":       {},
	"upcoming screenings": {},
	"schedule":            {},
	"about":               {},
}

var sbSpecialMarkers = []string{"in person", "q&a", "discussion", "seminar", "live score", "sing-along"}

// How far a film block may extend past its first line.
const sbMaxLookAhead = 15

// ScreenBoston scrapes the aggregator's single listing page: date headers
// partition the text into film blocks of title, director, metadata, venue
// and showtimes.
type ScreenBoston struct {
	client  fetch.Client
	logger  *log.Logger
	nowFunc func() time.Time
}

func NewScreenBoston(client fetch.Client, logger *log.Logger) *ScreenBoston {
	return &ScreenBoston{client: client, logger: logger, nowFunc: time.Now}
}

func (s *ScreenBoston) Name() string { return "Screen Boston" }

func (s *ScreenBoston) Scrape(ctx context.Context, cfg domain.ScrapeConfig) ([]domain.Screening, error) {
	doc, err := getDocument(ctx, s.client, screenBostonBaseURL, fetchOptions(cfg))
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	screenings := s.parseLines(doc.TextLines(), now)
	screenings = validateAll(screenings, now, s.logger, s.Name())
	screenings = filterWindow(screenings, cfg)
	screenings = dedupeExact(screenings)

	if s.logger != nil {
		s.logger.Printf("Screen Boston: found %d screenings", len(screenings))
	}
	return screenings, nil
}

func (s *ScreenBoston) parseLines(lines []string, now time.Time) []domain.Screening {
	var screenings []domain.Screening
	var currentDate time.Time
	assumedYear := now.Year()

	i := 0
	for i < len(lines) {
		line := lines[i]

		if parsing.IsDateHeader(line) {
			if parsed, ok := parsing.ParseDateHeader(line, assumedYear, now); ok {
				currentDate = parsed
			}
			i++
			continue
		}

		if !currentDate.IsZero() {
			block, consumed := s.parseFilmBlock(lines, i, currentDate, now)
			if len(block) > 0 {
				screenings = append(screenings, block...)
				i += consumed
				continue
			}
		}
		i++
	}
	return screenings
}

// parseFilmBlock assembles one film block starting at startIdx. Blocks look
// like:
//
//	SCREEN BOSTON CO-PRESENTS   (optional)
//	Film Title
//	Director Name
//	2025, Drama, 1h 59m
//	Venue Name
//	3:30 PM
//	8:30 PM
//
// It returns the screenings plus the number of lines consumed (at least 1).
func (s *ScreenBoston) parseFilmBlock(lines []string, startIdx int, screeningDate time.Time, now time.Time) ([]domain.Screening, int) {
	acc := filmAccumulator{}
	venue := ""
	var times []domain.ClockTime
	consumed := 0

	for offset := 0; offset < sbMaxLookAhead; offset++ {
		if startIdx+offset >= len(lines) {
			break
		}
		line := lines[startIdx+offset]

		if parsing.IsDateHeader(line) {
			break
		}
		if _, ok := sbSectionHeaders[strings.ToLower(line)]; ok {
			consumed = offset + 1
			continue
		}
		if strings.Contains(strings.ToUpper(line), "SCREEN BOSTON") {
			consumed = offset + 1
			continue
		}

		if m := sbTimeLineRe.FindStringSubmatch(line); m != nil {
			if t, ok := parsing.ParseTime(m[1]); ok {
				times = append(times, t)
			} else if s.logger != nil {
				s.logger.Printf("Screen Boston: could not parse time %q", m[1])
			}
			consumed = offset + 1
			continue
		}

		if detected := screenBostonVenue(line); detected != "" && venue == "" {
			venue = detected
			consumed = offset + 1
			continue
		}

		if m := sbMetadataRe.FindStringSubmatch(line); m != nil {
			acc.year, _ = strconv.Atoi(m[1])
			acc.runtime = parseScreenBostonRuntime(m[2])
			consumed = offset + 1
			continue
		}
		if m := sbYearLineRe.FindStringSubmatch(line); m != nil && acc.year == 0 {
			acc.year, _ = strconv.Atoi(m[1])
			consumed = offset + 1
			continue
		}

		// Double-feature and format markers go to extras before the
		// director heuristic can mistake them for a name.
		lowered := strings.ToLower(line)
		if strings.Contains(lowered, "double feature") || strings.Contains(lowered, "35mm") || strings.Contains(lowered, "70mm") {
			acc.addExtra(line)
			consumed = offset + 1
			continue
		}
		if parsing.ContainsAnyFold(line, sbSpecialMarkers) {
			acc.addExtra(line)
			consumed = offset + 1
			continue
		}

		if acc.title != "" && acc.director == "" && venue == "" &&
			len(line) < 40 &&
			!sbHasDigitsRe.MatchString(line) &&
			screenBostonVenue(line) == "" &&
			!parsing.IsDateHeader(line) &&
			!strings.Contains(lowered, "double feature") {
			acc.director = line
			consumed = offset + 1
			continue
		}

		if acc.title == "" && len(line) > 1 && !parsing.IsDateHeader(line) {
			acc.title = line
			consumed = offset + 1
			continue
		}

		// Past the showtimes and hit something unrecognized: block is done.
		if len(times) > 0 {
			break
		}
	}

	var screenings []domain.Screening
	if acc.title != "" && venue != "" && len(times) > 0 {
		extra := strings.Join(acc.extras, ", ")
		var special []string
		if len(acc.extras) > 0 {
			special = attributes.Extract(strings.Join(acc.extras, " "))
		}
		for _, t := range times {
			screenings = append(screenings, domain.Screening{
				Title:             acc.title,
				Venue:             venue,
				Date:              screeningDate,
				Time:              t,
				SourceURL:         screenBostonBaseURL,
				SourceSite:        "Screen Boston",
				RuntimeMinutes:    acc.runtime,
				Director:          acc.director,
				Year:              acc.year,
				Extra:             extra,
				SpecialAttributes: special,
			})
		}
	}

	if consumed < 1 {
		consumed = 1
	}
	return screenings, consumed
}

// screenBostonVenue maps an alias line to a canonical venue name, matching
// exactly or by prefix.
func screenBostonVenue(line string) string {
	lowered := strings.ToLower(strings.TrimSpace(line))
	for _, v := range screenBostonVenues {
		for _, pattern := range v.patterns {
			if lowered == pattern || strings.HasPrefix(lowered, pattern) {
				return v.name
			}
		}
	}
	return ""
}

// parseScreenBostonRuntime parses the "1h 59m" fragment of a metadata line.
func parseScreenBostonRuntime(token string) int {
	m := sbRuntimeRe.FindStringSubmatch(token)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	mins := 0
	if m[2] != "" {
		mins, _ = strconv.Atoi(m[2])
	}
	return hours*60 + mins
}
