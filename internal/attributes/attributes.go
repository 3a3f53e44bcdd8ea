// Package attributes normalizes free listing text into canonical screening
// tags (format and event type).
package attributes

import "strings"

// rule maps any of its trigger substrings to one canonical tag. Rules are
// evaluated in order and each tag is emitted at most once, so Extract output
// is stable for a given input.
type rule struct {
	tag      string
	triggers []string
}

var rules = []rule{
	{tag: "35mm", triggers: []string{"35mm"}},
	{tag: "70mm", triggers: []string{"70mm"}},
	{tag: "16mm", triggers: []string{"16mm"}},
	{tag: "Screening on film", triggers: []string{"screening on film"}},
	{tag: "35mm", triggers: []string{"screening on 35mm", "35mm / dcp"}},
	{tag: "16mm", triggers: []string{"screening on 16mm", "16mm / dcp"}},
	{tag: "Panel discussion", triggers: []string{"panel discussion"}},
	{tag: "Q&A", triggers: []string{"q&a", "q and a"}},
	{tag: "Director in person", triggers: []string{"director in person", "director in-person", "in person"}},
	{tag: "Live musical accompaniment", triggers: []string{"live musical accompaniment"}},
	{tag: "Double feature", triggers: []string{"double feature"}},
	{tag: "Premiere", triggers: []string{"premiere"}},
	{tag: "New Release", triggers: []string{"new release"}},
	{tag: "Spotlight on Women", triggers: []string{"spotlight on women"}},
	{tag: "Sing-along", triggers: []string{"sing-along", "sing along"}},
}

// Extract returns the canonical tags found in text, deduplicated in
// first-match order. It is a pure function: the same text always yields the
// same ordered result.
func Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lowered := strings.ToLower(text)

	var tags []string
	seen := make(map[string]struct{}, len(rules))
	emit := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, r := range rules {
		for _, trigger := range r.triggers {
			if strings.Contains(lowered, trigger) {
				emit(r.tag)
				break
			}
		}
	}

	// Bare "discussion" only counts when it was not part of a panel
	// discussion mention, and sorts ahead of Seminar.
	if strings.Contains(lowered, "discussion") {
		if _, panel := seen["Panel discussion"]; !panel {
			emit("Discussion")
		}
	}
	if strings.Contains(lowered, "seminar") {
		emit("Seminar")
	}

	return tags
}

// Has reports whether tag is present in an already-extracted list.
func Has(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Union merges tag lists preserving first-seen order.
func Union(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, tag := range list {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
