// Package parsing holds the date, time and runtime heuristics shared by all
// source parsers. Every function is pure; callers decide how to log the
// tokens that fail to parse.
package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cinemacal/cinemacal-back/internal/domain"
)

var timeLayouts = []string{
	"3:04PM", // 7:00PM
	"3PM",    // 7PM
	"15:04",  // 19:00
}

// ParseTime parses wall-clock tokens like "7:00 PM", "7:00pm", "7PM" and
// "19:00". The second return is false when the token is unparseable.
func ParseTime(token string) (domain.ClockTime, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(token), " ", ""))
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, normalized)
		if err == nil {
			return domain.NewClockTime(parsed.Hour(), parsed.Minute()), true
		}
	}
	return domain.ClockTime{}, false
}

var (
	runtimeHoursRe = regexp.MustCompile(`(\d+)\s*h`)
	runtimeMinsRe  = regexp.MustCompile(`(\d+)\s*m`)
	runtimePlainRe = regexp.MustCompile(`^(\d+)`)
)

// ParseRuntime parses "2h 30m", "2hrs 15mins", "150 min" or bare minutes
// into a minute count. Returns 0, false when nothing numeric is present.
func ParseRuntime(token string) (int, bool) {
	lowered := strings.ToLower(strings.TrimSpace(token))
	total := 0
	if m := runtimeHoursRe.FindStringSubmatch(lowered); m != nil {
		hours, _ := strconv.Atoi(m[1])
		total += hours * 60
	}
	if m := runtimeMinsRe.FindStringSubmatch(lowered); m != nil {
		mins, _ := strconv.Atoi(m[1])
		total += mins
	}
	if total == 0 {
		if m := runtimePlainRe.FindStringSubmatch(lowered); m != nil {
			total, _ = strconv.Atoi(m[1])
		}
	}
	if total <= 0 {
		return 0, false
	}
	return total, true
}

var dayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// MonthNumber maps a lowercase month name to its 1-based number.
func MonthNumber(name string) (time.Month, bool) {
	lowered := strings.ToLower(name)
	for i, m := range monthNames {
		if m == lowered {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// IsDayName reports whether the lowercase token is a weekday name.
func IsDayName(name string) bool {
	lowered := strings.ToLower(name)
	for _, d := range dayNames {
		if d == lowered {
			return true
		}
	}
	return false
}

// IsDateHeader reports whether a line looks like a date header, i.e. it
// mentions both a weekday and a month name and is short enough not to be
// body copy.
func IsDateHeader(line string) bool {
	if len(line) >= 50 {
		return false
	}
	lowered := strings.ToLower(line)
	hasDay := false
	for _, d := range dayNames {
		if strings.Contains(lowered, d) {
			hasDay = true
			break
		}
	}
	if !hasDay {
		return false
	}
	for _, m := range monthNames {
		if strings.Contains(lowered, m) {
			return true
		}
	}
	return false
}

// Layouts that carry no year; the assumed year is applied afterwards.
var yearlessDateLayouts = []string{
	"Monday, January 2",
	"Monday, Jan 2",
	"Mon, January 2",
	"Mon, Jan 2",
	"January 2",
	"Jan 2",
	"1/2",
}

var fullDateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
}

// ParseDateHeader parses headers like "Thursday, January 28", "Wed, Jan 29",
// "Jan 28" or "1/28/2026" against an assumed year, rolling ambiguous results
// forward per ResolveYear. "Today" maps to the current date.
func ParseDateHeader(line string, assumedYear int, now time.Time) (time.Time, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(strings.ToLower(trimmed), "today") {
		return domain.NewDate(now.Year(), now.Month(), now.Day()), true
	}
	for _, layout := range yearlessDateLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		result := domain.NewDate(assumedYear, parsed.Month(), parsed.Day())
		return ResolveYear(result, now), true
	}
	for _, layout := range fullDateLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return domain.NewDate(parsed.Year(), parsed.Month(), parsed.Day()), true
		}
	}
	return time.Time{}, false
}

// ResolveYear handles year ambiguity for dates parsed without one: when the
// month lands more than six months before the current month, the listing is
// for next year.
func ResolveYear(date time.Time, now time.Time) time.Time {
	if int(date.Month()) < int(now.Month())-6 {
		return date.AddDate(1, 0, 0)
	}
	return date
}

var (
	loglineDeterminerARe  = regexp.MustCompile(`^a\s+[a-z]+(?:,\s+[a-z]+)*(?:\s+film\s+noir)?\s+(?:film|movie|story|tale|about)`)
	loglineDeterminerAnRe = regexp.MustCompile(`^an\s+[a-z]+(?:\s+film\s+noir)?\s+(?:film|movie|story|tale|about)`)
)

var loglineIndicators = []string{
	"about",
	"frisky",
	"feminine",
	"film noir",
	"tells the story",
	"follows",
	"explores",
	"chronicles",
	"depicts",
	"portrays",
	"many other things",
}

// IsLogline reports whether text reads like a film description rather than a
// title: determiner-plus-adjective openings, narrative verbs, trailing
// ellipsis, excessive length or multiple sentences.
func IsLogline(text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}
	lowered := strings.ToLower(text)

	if loglineDeterminerARe.MatchString(lowered) || loglineDeterminerAnRe.MatchString(lowered) {
		return true
	}
	for _, indicator := range loglineIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "…") || strings.HasSuffix(trimmed, "...") {
		return true
	}
	if len(text) > 60 {
		return true
	}
	if strings.Count(text, ".") > 1 || strings.Count(text, "…") > 0 {
		return true
	}
	return false
}

// StartsUppercase reports whether the first rune of a line is an uppercase
// letter, the minimal bar for a title candidate.
func StartsUppercase(line string) bool {
	for _, r := range line {
		return unicode.IsUpper(r)
	}
	return false
}

// ContainsAnyFold reports whether the lowercase form of line contains any of
// the given lowercase patterns.
func ContainsAnyFold(line string, patterns []string) bool {
	lowered := strings.ToLower(line)
	for _, p := range patterns {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
