package attributes

import (
	"reflect"
	"testing"
)

func TestExtractFormats(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{name: "direct 35mm", text: "Presented in glorious 35mm!", want: []string{"35mm"}},
		{name: "70mm", text: "70mm presentation", want: []string{"70mm"}},
		{name: "screening on variant", text: "Screening on 35mm", want: []string{"35mm"}},
		{name: "generic film", text: "Screening on film", want: []string{"Screening on film"}},
		{name: "qa", text: "Followed by a Q&A with the cast", want: []string{"Q&A"}},
		{name: "director present", text: "Director in person!", want: []string{"Director in person"}},
		{name: "double", text: "DOUBLE FEATURE night", want: []string{"Double feature"}},
		{name: "nothing", text: "Just a plain blurb", want: nil},
		{name: "empty", text: "   ", want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractDeduplicatesInRuleOrder(t *testing.T) {
	got := Extract("35mm print, yes 35mm, plus a Q&A and another q and a")
	want := []string{"35mm", "Q&A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractBareDiscussion(t *testing.T) {
	got := Extract("with post-screening discussion")
	if !Has(got, "Discussion") {
		t.Fatalf("expected Discussion tag, got %v", got)
	}

	got = Extract("with panel discussion afterwards")
	if Has(got, "Discussion") {
		t.Fatalf("panel discussion must not add a bare Discussion tag, got %v", got)
	}
	if !Has(got, "Panel discussion") {
		t.Fatalf("expected Panel discussion, got %v", got)
	}
}

func TestExtractDiscussionSortsBeforeSeminar(t *testing.T) {
	got := Extract("seminar with discussion to follow")
	want := []string{"Discussion", "Seminar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractIsStable(t *testing.T) {
	text := "70mm premiere with Q&A and sing-along"
	first := Extract(text)
	second := Extract(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected stable output, got %v then %v", first, second)
	}
}

func TestUnionPreservesFirstSeenOrder(t *testing.T) {
	got := Union([]string{"35mm", "Q&A"}, []string{"Premiere", "35mm"}, []string{"Q&A"})
	want := []string{"35mm", "Q&A", "Premiere"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
