package scraper

// filmAccumulator holds the film currently being assembled by a line
// scanner. Keeping it as one record (instead of loose locals) makes each
// branch of the scan auditable on its own.
type filmAccumulator struct {
	title     string
	director  string
	year      int
	runtime   int
	detailURL string
	extras    []string

	// pendingHours marks that an hours-only runtime fragment ("2hrs") was
	// consumed and a minutes-only fragment on the next line should add to it.
	pendingHours bool
}

func (a *filmAccumulator) start(title, detailURL string) {
	*a = filmAccumulator{title: title, detailURL: detailURL}
}

func (a *filmAccumulator) addExtra(extra string) {
	for _, e := range a.extras {
		if e == extra {
			return
		}
	}
	a.extras = append(a.extras, extra)
}

func (a *filmAccumulator) active() bool {
	return a.title != ""
}
