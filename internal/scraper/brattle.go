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

const (
	brattleComingSoonURL = "https://brattlefilm.org/coming-soon/"
	brattleVenueName     = "The Brattle"
)

var brattleSkipPatterns = []string{
	"skip to content",
	"upcoming films",
	"watch trailer",
	"see full details",
	"the brattle film foundation",
	"location",
	"contact",
	"policies",
	"subscribe",
	"instagram",
	"facebook",
	"letterboxd",
	"bluesky",
	"copyright",
	"powered by",
	"40 brattle st",
	"starring",
	"dates with showtimes",
}

var (
	brattleTimeRe     = regexp.MustCompile(`(?i)^(\d{1,2}:\d{2}\s*(?:am|pm))(.*)$`)
	brattleOpensRe    = regexp.MustCompile(`(?i)^Opens on \w+ \d+`)
	brattleRuntimeRe  = regexp.MustCompile(`(?i)(?:(\d+)\s*hr?s?)?\s*(\d+)\s*min`)
	brattleYearRe     = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	brattleCombinedRe = regexp.MustCompile(`(?i)^(?:Director|Directed by):?\s*(.+?)(?:\s*[|•]\s*|$)`)
)

type brattleShowtime struct {
	date  time.Time
	times []domain.ClockTime
}

// brattleFilm accumulates one coming-soon entry: the metadata lines that
// follow the title plus the date/time grid beneath it.
type brattleFilm struct {
	title     string
	director  string
	year      int
	runtime   int
	format    string
	extras    []string
	showtimes []brattleShowtime
}

func (f *brattleFilm) addExtra(extra string) {
	for _, have := range f.extras {
		if have == extra {
			return
		}
	}
	f.extras = append(f.extras, extra)
}

// Brattle scans the coming-soon page text line by line. Entries carry
// label:value metadata on separate lines and a date grid with showtimes.
type Brattle struct {
	client  fetch.Client
	logger  *log.Logger
	nowFunc func() time.Time
}

func NewBrattle(client fetch.Client, logger *log.Logger) *Brattle {
	return &Brattle{client: client, logger: logger, nowFunc: time.Now}
}

func (b *Brattle) Name() string { return "Brattle" }

func (b *Brattle) Scrape(ctx context.Context, cfg domain.ScrapeConfig) ([]domain.Screening, error) {
	doc, err := getDocument(ctx, b.client, brattleComingSoonURL, fetchOptions(cfg))
	if err != nil {
		return nil, err
	}

	now := b.nowFunc()
	films := b.parseLines(doc.TextLines(), now)

	var screenings []domain.Screening
	for _, film := range films {
		screenings = append(screenings, b.createScreenings(film, cfg)...)
	}
	screenings = validateAll(screenings, now, b.logger, b.Name())
	screenings = dedupeExact(screenings)
	if b.logger != nil {
		b.logger.Printf("Brattle: found %d screenings", len(screenings))
	}
	return screenings, nil
}

func (b *Brattle) parseLines(lines []string, now time.Time) []*brattleFilm {
	var films []*brattleFilm
	var current *brattleFilm

	flush := func() {
		if current != nil && current.title != "" {
			films = append(films, current)
		}
		current = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if parsing.ContainsAnyFold(line, brattleSkipPatterns) {
			continue
		}
		if brattleOpensRe.MatchString(line) {
			continue
		}

		// Label lines put the value on the following line.
		if current != nil {
			switch {
			case strings.EqualFold(line, "Director:"):
				if i+1 < len(lines) {
					current.director = strings.TrimSpace(lines[i+1])
					i++
				}
				continue
			case strings.EqualFold(line, "Run Time:"):
				if i+1 < len(lines) {
					current.runtime = brattleParseRuntime(lines[i+1])
					i++
				}
				continue
			case strings.EqualFold(line, "Format:"):
				if i+1 < len(lines) {
					current.format = strings.TrimSpace(lines[i+1])
					i++
				}
				continue
			case strings.EqualFold(line, "Release Year:"):
				if i+1 < len(lines) {
					if m := brattleYearRe.FindString(lines[i+1]); m != "" {
						current.year = atoiSafe(m)
					}
					i++
				}
				continue
			}

			// Legacy layout kept the director on one combined line.
			if m := brattleCombinedRe.FindStringSubmatch(line); m != nil {
				if current.director == "" {
					current.director = strings.TrimSpace(m[1])
				}
				continue
			}
		}

		if date, ok := parsing.ParseDateHeader(line, now.Year(), now); ok {
			if current != nil {
				current.showtimes = append(current.showtimes, brattleShowtime{date: date})
			}
			continue
		}

		if m := brattleTimeRe.FindStringSubmatch(line); m != nil {
			if current == nil || len(current.showtimes) == 0 {
				continue
			}
			t, ok := parsing.ParseTime(m[1])
			if !ok {
				continue
			}
			latest := &current.showtimes[len(current.showtimes)-1]
			latest.times = append(latest.times, t)
			// A suffix after the clock marks the presentation format.
			if suffix := strings.TrimSpace(m[2]); suffix != "" {
				current.addExtra(suffix)
			}
			continue
		}

		lower := strings.ToLower(line)
		if current != nil {
			if strings.Contains(lower, "35mm") {
				current.addExtra("35mm")
				continue
			}
			if strings.Contains(lower, "70mm") {
				current.addExtra("70mm")
				continue
			}
			if strings.Contains(lower, "premiere") {
				current.addExtra("Premiere")
				continue
			}
		}

		if brattleLooksLikeTitle(line) {
			flush()
			current = &brattleFilm{title: line}
		}
	}
	flush()
	return films
}

func brattleLooksLikeTitle(line string) bool {
	if len(line) < 3 || len(line) > 150 {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return false
	}
	if brattleTimeRe.MatchString(line) {
		return false
	}
	if parsing.IsDateHeader(line) {
		return false
	}
	return parsing.StartsUppercase(line)
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// brattleParseRuntime accepts both "113 min." and "2hr 30min".
func brattleParseRuntime(value string) int {
	m := brattleRuntimeRe.FindStringSubmatch(value)
	if m == nil {
		return 0
	}
	hours := 0
	if m[1] != "" {
		hours = atoiSafe(m[1])
	}
	return hours*60 + atoiSafe(m[2])
}

func (b *Brattle) createScreenings(film *brattleFilm, cfg domain.ScrapeConfig) []domain.Screening {
	attrText := film.format
	for _, extra := range film.extras {
		attrText += " " + extra
	}
	attrs := attributes.Extract(attrText)

	var extras []string
	for _, extra := range film.extras {
		normalized := brattleNormalizeFormat(extra)
		if normalized == "" || attributes.Has(attrs, normalized) {
			continue
		}
		extras = append(extras, extra)
	}
	if format := brattleNormalizeFormat(film.format); format != "" && !attributes.Has(attrs, format) {
		extras = append(extras, film.format)
	}

	var screenings []domain.Screening
	for _, showtime := range film.showtimes {
		if !cfg.InWindow(showtime.date) {
			continue
		}
		for _, t := range showtime.times {
			screenings = append(screenings, domain.Screening{
				Title:             film.title,
				Venue:             brattleVenueName,
				Date:              showtime.date,
				Time:              t,
				SourceURL:         brattleComingSoonURL,
				SourceSite:        "Brattle",
				RuntimeMinutes:    film.runtime,
				Director:          film.director,
				Year:              film.year,
				Extra:             strings.Join(extras, ", "),
				SpecialAttributes: attrs,
			})
		}
	}
	return screenings
}

// brattleNormalizeFormat maps presentation formats onto the canonical
// attribute tags. DCP is the house default and carries no tag.
func brattleNormalizeFormat(format string) string {
	lower := strings.ToLower(format)
	switch {
	case strings.Contains(lower, "35mm"):
		return "35mm"
	case strings.Contains(lower, "70mm"):
		return "70mm"
	case strings.Contains(lower, "16mm"):
		return "16mm"
	case strings.Contains(lower, "dcp"):
		return ""
	}
	return ""
}
