package reconcile

import (
	"sort"
	"strings"

	"github.com/cinemacal/cinemacal-back/internal/attributes"
	"github.com/cinemacal/cinemacal-back/internal/domain"
)

// preferredSite names the first-party source per venue. When the same
// screening arrives from both an aggregator and the venue's own site, the
// venue's listing carries richer metadata and wins.
var preferredSite = map[string]string{
	"Coolidge Corner Theatre": "Coolidge",
	"The Brattle":             "Brattle",
	"Harvard Film Archive":    "Harvard Film Archive",
}

// Reconcile merges the combined scrape output into a single deduplicated
// list: concurrent double bills are merged, flagged double features absorb
// their second half, and cross-source duplicates collapse to the preferred
// listing. The result is sorted by date then time.
func Reconcile(screenings []domain.Screening) []domain.Screening {
	merged := mergeConcurrent(screenings)
	merged = mergeFlaggedDoubleFeatures(merged)
	merged = dedupeAcrossSources(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Date.Equal(merged[j].Date) {
			return merged[i].Date.Before(merged[j].Date)
		}
		return merged[i].Time.Before(merged[j].Time)
	})
	return merged
}

type slotKey struct {
	venue string
	date  string
	time  domain.ClockTime
}

// mergeConcurrent groups screenings that share a canonical venue, date and
// start time. Identical titles collapse to the first listing; distinct
// titles in one slot are a double bill and merge into a combined record.
func mergeConcurrent(screenings []domain.Screening) []domain.Screening {
	var order []slotKey
	groups := make(map[slotKey][]domain.Screening)
	for _, s := range screenings {
		key := slotKey{venue: domain.CanonicalVenue(s.Venue), date: s.Date.Format("2006-01-02"), time: s.Time}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], s)
	}

	var out []domain.Screening
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		distinct := distinctTitles(group)
		if len(distinct) == 1 {
			out = append(out, pickPreferred(group))
			continue
		}
		out = append(out, mergeGroup(group))
	}
	return out
}

// pickPreferred chooses among same-title listings of one slot: the venue's
// own site first, then anything over the aggregator, then first arrival.
func pickPreferred(group []domain.Screening) domain.Screening {
	best := group[0]
	for _, s := range group[1:] {
		if s.SourceSite == best.SourceSite {
			continue
		}
		if preferredSite[s.Venue] == s.SourceSite {
			best = s
			continue
		}
		if best.SourceSite == "Screen Boston" && s.SourceSite != "Screen Boston" {
			best = s
		}
	}
	return best
}

func distinctTitles(group []domain.Screening) []string {
	var titles []string
	seen := make(map[string]bool)
	for _, s := range group {
		if !seen[s.Title] {
			seen[s.Title] = true
			titles = append(titles, s.Title)
		}
	}
	return titles
}

// mergeGroup folds a same-slot double bill into one record with a combined
// title. Runtimes sum over the parts that report one.
func mergeGroup(group []domain.Screening) domain.Screening {
	merged := group[0]
	merged.Title = strings.Join(distinctTitles(group), " + ")
	merged.Director = mergeDirectors(group)
	merged.RuntimeMinutes = 0
	for _, s := range group {
		if s.RuntimeMinutes > 0 {
			merged.RuntimeMinutes += s.RuntimeMinutes
		}
	}
	merged.Extra = mergeExtras(group)
	merged.SpecialAttributes = nil
	for _, s := range group {
		merged.SpecialAttributes = attributes.Union(merged.SpecialAttributes, s.SpecialAttributes)
	}
	return merged
}

func mergeDirectors(group []domain.Screening) string {
	var directors []string
	allEqual := true
	for _, s := range group {
		if s.Director == "" {
			continue
		}
		if len(directors) > 0 && s.Director != directors[0] {
			allEqual = false
		}
		duplicate := false
		for _, have := range directors {
			if have == s.Director {
				duplicate = true
				break
			}
		}
		if !duplicate {
			directors = append(directors, s.Director)
		}
	}
	switch {
	case len(directors) == 0:
		return ""
	case allEqual:
		return directors[0]
	default:
		return strings.Join(directors, " + ")
	}
}

func mergeExtras(group []domain.Screening) string {
	var extras []string
	for _, s := range group {
		if s.Extra == "" {
			continue
		}
		duplicate := false
		for _, have := range extras {
			if have == s.Extra {
				duplicate = true
				break
			}
		}
		if !duplicate {
			extras = append(extras, s.Extra)
		}
	}
	return strings.Join(extras, ", ")
}

// mergeFlaggedDoubleFeatures pairs a record tagged "Double feature" with the
// next listing at the same venue on the same date. The second half usually
// has no start time of its own on the source site.
func mergeFlaggedDoubleFeatures(screenings []domain.Screening) []domain.Screening {
	sorted := append([]domain.Screening(nil), screenings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, vj := domain.CanonicalVenue(sorted[i].Venue), domain.CanonicalVenue(sorted[j].Venue)
		if vi != vj {
			return vi < vj
		}
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Time.Before(sorted[j].Time)
	})

	var out []domain.Screening
	for i := 0; i < len(sorted); i++ {
		current := sorted[i]
		if attributes.Has(current.SpecialAttributes, "Double feature") && i+1 < len(sorted) {
			next := sorted[i+1]
			if domain.CanonicalVenue(next.Venue) == domain.CanonicalVenue(current.Venue) &&
				next.Date.Equal(current.Date) &&
				next.Title != current.Title {
				out = append(out, mergeGroup([]domain.Screening{current, next}))
				i++
				continue
			}
		}
		out = append(out, current)
	}
	return out
}

type dedupKey struct {
	title string
	venue string
	date  string
	time  domain.ClockTime
}

// dedupeAcrossSources collapses the same title/venue/date/time seen from
// multiple sources. The venue's own site beats the aggregator; within one
// source the first listing wins. Insertion order is preserved so output is
// deterministic.
func dedupeAcrossSources(screenings []domain.Screening) []domain.Screening {
	var order []dedupKey
	kept := make(map[dedupKey]domain.Screening)
	for _, s := range screenings {
		key := dedupKey{title: s.Title, venue: s.Venue, date: s.Date.Format("2006-01-02"), time: s.Time}
		existing, seen := kept[key]
		if !seen {
			order = append(order, key)
			kept[key] = s
			continue
		}
		if existing.SourceSite == s.SourceSite {
			continue
		}
		if preferredSite[s.Venue] == s.SourceSite {
			kept[key] = s
			continue
		}
		if existing.SourceSite == "Screen Boston" && s.SourceSite != "Screen Boston" {
			kept[key] = s
		}
	}

	out := make([]domain.Screening, 0, len(order))
	for _, key := range order {
		out = append(out, kept[key])
	}
	return out
}

// FilterRegularCoolidge drops Coolidge titles playing a regular extended
// run, keeping repertory and special programming. A title counts as a
// regular run when it spans at least minDays distinct dates or minShowtimes
// total showtimes.
func FilterRegularCoolidge(screenings []domain.Screening, minDays, minShowtimes int) []domain.Screening {
	days := make(map[string]map[string]bool)
	counts := make(map[string]int)
	for _, s := range screenings {
		if domain.CanonicalVenue(s.Venue) != "Coolidge Corner Theatre" {
			continue
		}
		if days[s.Title] == nil {
			days[s.Title] = make(map[string]bool)
		}
		days[s.Title][s.Date.Format("2006-01-02")] = true
		counts[s.Title]++
	}

	var out []domain.Screening
	for _, s := range screenings {
		if domain.CanonicalVenue(s.Venue) == "Coolidge Corner Theatre" &&
			(len(days[s.Title]) >= minDays || counts[s.Title] >= minShowtimes) {
			continue
		}
		out = append(out, s)
	}
	return out
}
