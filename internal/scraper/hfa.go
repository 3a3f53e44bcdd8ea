package scraper

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cinemacal/cinemacal-back/internal/attributes"
	"github.com/cinemacal/cinemacal-back/internal/cache"
	"github.com/cinemacal/cinemacal-back/internal/domain"
	"github.com/cinemacal/cinemacal-back/internal/fetch"
	"github.com/cinemacal/cinemacal-back/internal/parsing"
)

const (
	hfaBaseURL     = "https://harvardfilmarchive.org/"
	hfaCalendarURL = "https://harvardfilmarchive.org/calendar"
	hfaVenueName   = "Harvard Film Archive"

	// Runaway-loop guard for the calendar pagination.
	hfaMaxPages = 20
)

var (
	hfaDayRe         = regexp.MustCompile(`([a-zA-Z]+)\s*(\d{1,2})\s*([a-zA-Z]+)`)
	hfaTimeRe        = regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(?:am|pm)`)
	hfaDirectedByRe  = regexp.MustCompile(`^Directed by\s+(.+?),\s*(\d{4})\s*$`)
	hfaPageLinkRe    = regexp.MustCompile(`page=\d+`)
	hfaDetailMinsRe  = regexp.MustCompile(`(?i)\b(\d{1,3})\s*min\.?\b`)
	hfaDetailHoursRe = regexp.MustCompile(`(?i)\b(\d+)\s*h\s*(\d+)?\s*m\.?\b`)
)

// hfaEvent is one calendar entry before it is turned into a Screening.
type hfaEvent struct {
	date       time.Time
	time       domain.ClockTime
	title      string
	director   string
	year       int
	series     string
	detailURL  string
	attributes []string
}

// HFA walks the archive's calendar DOM, paginating until no further-page
// indicator remains. Detail pages supply runtimes and extra attributes and
// are cached by URL for the run.
type HFA struct {
	client  fetch.Client
	logger  *log.Logger
	nowFunc func() time.Time
	details *cache.DetailCache
}

func NewHFA(client fetch.Client, logger *log.Logger) *HFA {
	return &HFA{client: client, logger: logger, nowFunc: time.Now, details: cache.NewDetailCache()}
}

func (h *HFA) Name() string { return "Harvard Film Archive" }

func (h *HFA) Scrape(ctx context.Context, cfg domain.ScrapeConfig) ([]domain.Screening, error) {
	now := h.nowFunc()
	assumedYear := now.Year()
	opts := fetchOptions(cfg)

	var screenings []domain.Screening
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s?from=%s&to=%s", hfaCalendarURL,
			cfg.StartDate.Format("2006-01-02"), cfg.EndDate().Format("2006-01-02"))
		if page > 1 {
			url += fmt.Sprintf("&page=%d", page)
		}

		doc, err := getDocument(ctx, h.client, url, opts)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			// Later pages are best effort: keep what earlier pages gave us.
			if h.logger != nil {
				h.logger.Printf("HFA: could not fetch page %d, keeping %d screenings: %v", page, len(screenings), err)
			}
			break
		}

		events := h.parseCalendarPage(doc, assumedYear, now)
		if len(events) == 0 && page == 1 {
			break
		}

		for _, ev := range events {
			if !cfg.InWindow(ev.date) {
				continue
			}
			screenings = append(screenings, h.buildScreening(ctx, cfg, ev))
		}

		if h.logger != nil {
			h.logger.Printf("HFA page %d: found %d events", page, len(events))
		}
		if !h.hasMorePages(doc) {
			break
		}
		if page >= hfaMaxPages {
			if h.logger != nil {
				h.logger.Printf("HFA: hit pagination safety limit")
			}
			break
		}
	}

	screenings = validateAll(screenings, now, h.logger, h.Name())
	if h.logger != nil {
		h.logger.Printf("Harvard Film Archive: found %d total screenings", len(screenings))
	}
	return screenings, nil
}

func (h *HFA) hasMorePages(doc *fetch.Document) bool {
	more := false
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(strings.Join(strings.Fields(sel.Text()), ""))
		if strings.Contains(text, "viewmore") {
			more = true
			return false
		}
		if href, ok := sel.Attr("href"); ok && hfaPageLinkRe.MatchString(href) {
			more = true
			return false
		}
		return true
	})
	return more
}

// parseCalendarPage walks the calendar spots in document order: day spots
// set the current date, event spots yield entries under it.
func (h *HFA) parseCalendarPage(doc *fetch.Document, assumedYear int, now time.Time) []hfaEvent {
	var events []hfaEvent
	var currentDate time.Time

	doc.Find("[class*='m-calendar__spot']").Each(func(_ int, sel *goquery.Selection) {
		if sel.HasClass("m-calendar__spot--day") {
			// Day spots render like "Friday30January".
			text := strings.TrimSpace(sel.Text())
			if m := hfaDayRe.FindStringSubmatch(text); m != nil {
				month, okMonth := parsing.MonthNumber(m[3])
				day, errDay := strconv.Atoi(m[2])
				if parsing.IsDayName(m[1]) && okMonth && errDay == nil {
					currentDate = parsing.ResolveYear(domain.NewDate(assumedYear, month, day), now)
				}
			}
			return
		}
		if !sel.HasClass("m-calendar__spot--event") || currentDate.IsZero() {
			return
		}
		if ev, ok := h.parseEventSpot(sel, currentDate); ok {
			events = append(events, ev)
		}
	})
	return events
}

func (h *HFA) parseEventSpot(sel *goquery.Selection, date time.Time) (hfaEvent, bool) {
	ev := hfaEvent{date: date}

	sel.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if strings.Contains(href, "/calendar/") &&
			!strings.Contains(href, "programs") &&
			!strings.Contains(href, "page=") {
			ev.detailURL = fetch.AbsoluteURL(hfaBaseURL, href)
			return false
		}
		return true
	})

	timeText := strings.TrimSpace(sel.Find("time").Text())
	if timeText == "" {
		timeText = strings.TrimSpace(sel.Text())
	}
	match := hfaTimeRe.FindString(timeText)
	if match == "" {
		return ev, false
	}
	t, ok := parsing.ParseTime(match)
	if !ok {
		if h.logger != nil {
			h.logger.Printf("HFA: could not parse time %q", match)
		}
		return ev, false
	}
	ev.time = t

	for _, heading := range []string{"h5", "h4", "h3"} {
		if title := strings.TrimSpace(sel.Find(heading).First().Text()); title != "" {
			ev.title = title
			break
		}
	}
	if ev.title == "" {
		return ev, false
	}

	sel.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := strings.TrimSpace(div.Text())
		if m := hfaDirectedByRe.FindStringSubmatch(text); m != nil {
			ev.director = strings.TrimSpace(m[1])
			ev.year, _ = strconv.Atoi(m[2])
			return false
		}
		return true
	})
	sel.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := strings.TrimSpace(div.Text())
		if strings.Contains(text, "From the") || strings.Contains(text, "...") {
			ev.series = text
			return false
		}
		return true
	})

	ev.attributes = attributes.Extract(strings.TrimSpace(sel.Text()))
	return ev, true
}

func (h *HFA) buildScreening(ctx context.Context, cfg domain.ScrapeConfig, ev hfaEvent) domain.Screening {
	runtime := 0
	special := append([]string(nil), ev.attributes...)

	if ev.detailURL != "" {
		detail := h.detailInfo(ctx, cfg, ev.detailURL)
		runtime = detail.RuntimeMinutes
		special = attributes.Union(special, detail.Attributes)
		// A concrete film gauge supersedes the generic tag.
		if attributes.Has(special, "35mm") || attributes.Has(special, "16mm") || attributes.Has(special, "70mm") {
			filtered := special[:0]
			for _, tag := range special {
				if tag != "Screening on film" {
					filtered = append(filtered, tag)
				}
			}
			special = filtered
		}
	}

	return domain.Screening{
		Title:             ev.title,
		Venue:             hfaVenueName,
		Date:              ev.date,
		Time:              ev.time,
		SourceURL:         hfaCalendarURL,
		SourceSite:        "Harvard Film Archive",
		RuntimeMinutes:    runtime,
		Director:          ev.director,
		Year:              ev.year,
		Extra:             ev.series,
		SpecialAttributes: special,
	}
}

// detailInfo pulls runtime and attributes from an event's detail page,
// cached by URL for the lifetime of the run.
func (h *HFA) detailInfo(ctx context.Context, cfg domain.ScrapeConfig, detailURL string) cache.DetailEntry {
	if entry, ok := h.details.Get(detailURL); ok {
		return entry
	}

	entry := cache.DetailEntry{}
	doc, err := getDocument(ctx, h.client, detailURL, fetchOptions(cfg))
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("HFA: could not fetch detail from %s: %v", detailURL, err)
		}
		h.details.Put(detailURL, entry)
		return entry
	}

	text := strings.Join(doc.TextLines(), " ")
	entry.RuntimeMinutes = hfaDetailRuntime(text)
	entry.Attributes = attributes.Extract(text)
	h.details.Put(detailURL, entry)
	return entry
}

// hfaDetailRuntime parses the blurb trailer: "... country, year, format,
// color, 111 min." with an hours-and-minutes fallback.
func hfaDetailRuntime(text string) int {
	if m := hfaDetailMinsRe.FindStringSubmatch(text); m != nil {
		if val, err := strconv.Atoi(m[1]); err == nil && val >= 1 && val <= 600 {
			return val
		}
	}
	if m := hfaDetailHoursRe.FindStringSubmatch(text); m != nil {
		hours, _ := strconv.Atoi(m[1])
		mins := 0
		if m[2] != "" {
			mins, _ = strconv.Atoi(m[2])
		}
		if hours >= 0 && hours <= 24 && mins >= 0 && mins < 60 {
			return hours*60 + mins
		}
	}
	return 0
}
