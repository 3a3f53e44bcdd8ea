// Package quality screens raw parser candidates for plausibility before they
// enter the reconcile pipeline.
package quality

import (
	"errors"
	"strings"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
)

var ErrRejected = errors.New("screening failed plausibility checks")

const earliestPlausibleYear = 1880

// Validate normalizes one candidate. Implausible optional metadata is
// cleared rather than fatal; a candidate missing identity fields is
// rejected.
func Validate(s domain.Screening, now time.Time) (domain.Screening, error) {
	if strings.TrimSpace(s.Title) == "" {
		return s, errors.Join(ErrRejected, errors.New("empty title"))
	}
	if strings.TrimSpace(s.Venue) == "" {
		return s, errors.Join(ErrRejected, errors.New("empty venue"))
	}
	if s.Date.IsZero() {
		return s, errors.Join(ErrRejected, errors.New("missing date"))
	}

	if s.Year != 0 && (s.Year < earliestPlausibleYear || s.Year > now.Year()+1) {
		s.Year = 0
	}
	if s.RuntimeMinutes < 0 {
		s.RuntimeMinutes = 0
	}
	return s, nil
}
