package scraper

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cinemacal/cinemacal-back/internal/attributes"
	"github.com/cinemacal/cinemacal-back/internal/cache"
	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/fetch"
	"github.com/cinemacal/cinemacal-back/internal/parsing"
)

const (
	coolidgeBaseURL      = "https://coolidge.org/"
	coolidgeShowtimesURL = "https://coolidge.org/films-events/now-playing"
	coolidgeVenueName    = "Coolidge Corner Theatre"

	// Concurrent date-page fetch cap; the theater's server is small.
	coolidgeMaxDateWorkers = 10

	// Detail pages get a tighter budget than listing pages.
	coolidgeDetailTimeout = 10 * time.Second
)

var (
	coolidgeRuntimeRe   = regexp.MustCompile(`(?i)(\d+)\s*h(?:rs?|ours?)?\s*(\d+)?\s*m(?:ins?)?`)
	coolidgeMinsOnlyRe  = regexp.MustCompile(`(?i)^(\d+)\s*m(?:ins?)?$`)
	coolidgeHoursOnlyRe = regexp.MustCompile(`(?i)^(\d+)\s*h(?:rs?|ours?)?$`)
	coolidgeTimeLineRe  = regexp.MustCompile(`(?i)^(\d{1,2}:\d{2}\s*(?:am|pm))(?:\s*\w+)?$`)
	coolidgeRoomCodeRe  = regexp.MustCompile(`(?i)^(MH\d|ECEC|MHB)$`)
	coolidgeYearRe      = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	coolidgeClockRe     = regexp.MustCompile(`\d:\d{2}`)
	directedByRe        = regexp.MustCompile(`(?i)Directed by\s+(.+?)(?:,|\s+\d{4}|$)`)
)

// Navigation and campaign labels that must never be mistaken for titles.
var coolidgeSkipPatterns = []string{
	"now playing", "coming soon", "calendar", "skip to", "main navigation",
	"films & events", "education", "support us", "about us", "shop",
	"become a member", "donate", "search", "home", "film guide",
	"open captions", "membership", "gift cards",
	"learn more", "new release", "cinema in 70mm", "spotlight on women",
	"special screenings", "director in person", "speaker",
}

// Coolidge iterates the window one date page at a time over a bounded worker
// pool, scanning each page's text for film blocks. Detail pages are fetched
// only when both director and year are unknown after the listing pass, and
// results are memoized across workers.
type Coolidge struct {
	client  fetch.Client
	logger  *log.Logger
	nowFunc func() time.Time
	details *cache.DetailCache
}

func NewCoolidge(client fetch.Client, logger *log.Logger) *Coolidge {
	return &Coolidge{
		client:  client,
		logger:  logger,
		nowFunc: time.Now,
		details: cache.NewDetailCache(),
	}
}

func (c *Coolidge) Name() string { return "Coolidge" }

func (c *Coolidge) Scrape(ctx context.Context, cfg domain.ScrapeConfig) ([]domain.Screening, error) {
	dates := cfg.Dates()
	workers := coolidgeMaxDateWorkers
	if len(dates) < workers {
		workers = len(dates)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan time.Time)
	var (
		mu         sync.Mutex
		screenings []domain.Screening
		wg         sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for date := range jobs {
				day, err := c.scrapeDate(ctx, cfg, date)
				if err != nil {
					if c.logger != nil {
						c.logger.Printf("Coolidge: scraping failed for %s: %v", date.Format("2006-01-02"), err)
					}
					continue
				}
				mu.Lock()
				screenings = append(screenings, day...)
				mu.Unlock()
			}
		}()
	}

	for _, date := range dates {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- date:
		}
	}
	close(jobs)
	wg.Wait()

	now := c.nowFunc()
	screenings = validateAll(screenings, now, c.logger, c.Name())
	if c.logger != nil {
		c.logger.Printf("Coolidge: found %d total screenings", len(screenings))
	}
	return screenings, nil
}

func coolidgeDateURL(date time.Time) string {
	return coolidgeShowtimesURL + "?date=" + date.Format("2006-01-02")
}

func (c *Coolidge) scrapeDate(ctx context.Context, cfg domain.ScrapeConfig, date time.Time) ([]domain.Screening, error) {
	doc, err := getDocument(ctx, c.client, coolidgeDateURL(date), fetchOptions(cfg))
	if err != nil {
		return nil, err
	}
	return c.parsePage(ctx, cfg, doc, date), nil
}

func (c *Coolidge) parsePage(ctx context.Context, cfg domain.ScrapeConfig, doc *fetch.Document, date time.Time) []domain.Screening {
	titleToURL := coolidgeTitleLinks(doc)
	lines := doc.TextLines()
	now := c.nowFunc()

	var screenings []domain.Screening
	acc := filmAccumulator{}
	prevLineWasRuntime := false

	for _, line := range lines {
		if coolidgeRoomCodeRe.MatchString(line) {
			prevLineWasRuntime = false
			acc.pendingHours = false
			continue
		}
		if parsing.ContainsAnyFold(line, coolidgeSkipPatterns) {
			prevLineWasRuntime = false
			acc.pendingHours = false
			continue
		}

		// Runtime on one line ("2hrs 29mins"), or split "2hrs" / "29mins"
		// across consecutive lines.
		if m := coolidgeRuntimeRe.FindStringSubmatch(line); m != nil {
			hours, _ := strconv.Atoi(m[1])
			mins := 0
			if m[2] != "" {
				mins, _ = strconv.Atoi(m[2])
			}
			acc.runtime = hours*60 + mins
			prevLineWasRuntime = true
			acc.pendingHours = false
			continue
		}
		if m := coolidgeMinsOnlyRe.FindStringSubmatch(line); m != nil && acc.pendingHours && acc.runtime > 0 {
			mins, _ := strconv.Atoi(m[1])
			acc.runtime += mins
			acc.pendingHours = false
			prevLineWasRuntime = true
			continue
		}
		if m := coolidgeHoursOnlyRe.FindStringSubmatch(line); m != nil {
			hours, _ := strconv.Atoi(m[1])
			acc.runtime = hours * 60
			acc.pendingHours = true
			prevLineWasRuntime = true
			continue
		}

		if m := coolidgeTimeLineRe.FindStringSubmatch(line); m != nil && acc.active() {
			if t, ok := parsing.ParseTime(m[1]); ok {
				screening := c.buildScreening(ctx, cfg, acc, date, t)
				// Showings already underway at parse time are useless.
				if screening.StartAt(time.Local).After(now) {
					screenings = append(screenings, screening)
				}
			} else if c.logger != nil {
				c.logger.Printf("Coolidge: could not parse time %q", m[1])
			}
			prevLineWasRuntime = false
			continue
		}

		if m := coolidgeYearRe.FindStringSubmatch(line); m != nil && acc.year == 0 {
			acc.year, _ = strconv.Atoi(m[1])
		}

		if m := directedByRe.FindStringSubmatch(line); m != nil && acc.director == "" {
			acc.director = strings.TrimSpace(m[1])
		} else if acc.active() && acc.director == "" &&
			len(line) > 2 && len(line) < 50 &&
			!strings.ContainsAny(line, "0123456789") &&
			!coolidgeTimeLineRe.MatchString(line) &&
			!parsing.IsLogline(line) &&
			parsing.StartsUppercase(line) {
			acc.director = line
		}

		lowered := strings.ToLower(line)
		if strings.Contains(lowered, "35mm") {
			acc.addExtra("35mm")
		}
		if strings.Contains(lowered, "70mm") {
			acc.addExtra("70mm")
		}

		// New title detection. The tagline often directly follows the
		// runtime line ("Dream Big."), so that line never opens a film.
		if prevLineWasRuntime {
			prevLineWasRuntime = false
		} else if len(line) > 3 && len(line) < 100 &&
			!coolidgeClockRe.MatchString(line) &&
			parsing.StartsUppercase(line) &&
			!parsing.ContainsAnyFold(line, coolidgeSkipPatterns) &&
			!parsing.IsLogline(line) {
			acc.start(line, titleToURL[line])
		}
	}

	return screenings
}

func (c *Coolidge) buildScreening(ctx context.Context, cfg domain.ScrapeConfig, acc filmAccumulator, date time.Time, t domain.ClockTime) domain.Screening {
	director, year := acc.director, acc.year
	if acc.detailURL != "" && director == "" && year == 0 {
		entry := c.detailInfo(ctx, cfg, acc.title, acc.detailURL)
		director, year = entry.Director, entry.Year
	}

	sourceURL := acc.detailURL
	if sourceURL == "" {
		sourceURL = coolidgeDateURL(date)
	}
	var special []string
	if len(acc.extras) > 0 {
		special = attributes.Extract(strings.Join(acc.extras, " "))
	}
	return domain.Screening{
		Title:             acc.title,
		Venue:             coolidgeVenueName,
		Date:              date,
		Time:              t,
		SourceURL:         sourceURL,
		SourceSite:        "Coolidge",
		RuntimeMinutes:    acc.runtime,
		Director:          director,
		Year:              year,
		Extra:             strings.Join(acc.extras, ", "),
		SpecialAttributes: special,
	}
}

// detailInfo fetches a film's detail page for director and year, memoizing
// by title and URL so concurrent date workers ask each page once.
func (c *Coolidge) detailInfo(ctx context.Context, cfg domain.ScrapeConfig, title, detailURL string) cache.DetailEntry {
	key := title + "|" + detailURL
	if entry, ok := c.details.Get(key); ok {
		return entry
	}

	opts := fetch.Options{
		Timeout:     coolidgeDetailTimeout,
		MaxAttempts: 1,
		RetryDelay:  cfg.RetryDelay(),
	}
	if cfg.Timeout() < opts.Timeout {
		opts.Timeout = cfg.Timeout()
	}

	entry := cache.DetailEntry{}
	doc, err := getDocument(ctx, c.client, detailURL, opts)
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("Coolidge: could not fetch detail page %s: %v", detailURL, err)
		}
		c.details.Put(key, entry)
		return entry
	}

	text := strings.Join(doc.TextLines(), " ")
	if m := directedByRe.FindStringSubmatch(text); m != nil {
		entry.Director = strings.TrimSpace(m[1])
	}
	if m := coolidgeYearRe.FindStringSubmatch(text); m != nil {
		entry.Year, _ = strconv.Atoi(m[1])
	}
	c.details.Put(key, entry)
	return entry
}

// coolidgeTitleLinks maps link text to absolute detail URLs for every
// plausible title link on the page.
func coolidgeTitleLinks(doc *fetch.Document) map[string]string {
	titleToURL := make(map[string]string)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) < 2 || parsing.IsLogline(text) {
			return
		}
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		titleToURL[text] = fetch.AbsoluteURL(coolidgeBaseURL, href)
	})
	return titleToURL
}
