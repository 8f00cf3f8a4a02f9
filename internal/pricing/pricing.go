// Package pricing computes the suggested contribution for a registration.
// The result is a suggestion only: the client may override it and the
// backend persists whatever non-negative amount was submitted.
package pricing

import "github.com/unmablr/meetreg/internal/domain/registration"

// Table is the per-person price table of one event variant, in whole rupees.
//
// The deployment-wide policy is the first-adult tier: the primary registrant
// always pays FirstAdult (zero when the cohort is in the variant's free
// tier), every additional adult pays AdditionalAdult, children pay Child,
// infants are free. Cohort-wide free pricing for all adults is intentionally
// not supported; a variant that wants it must model it with rates, not a
// second policy.
type Table struct {
	FirstAdult      int
	AdditionalAdult int
	Child           int
}

// Suggest returns the suggested total for the given attendee counts.
// freeTier waives the first-adult rate for eligible cohorts.
func Suggest(t Table, freeTier bool, att registration.Attendees) int {
	total := 0

	if freeTier {
		total += 0
	} else {
		total += t.FirstAdult
	}

	additionalAdults := att.Adults - 1
	if additionalAdults < 0 {
		additionalAdults = 0
	}
	total += additionalAdults * t.AdditionalAdult

	total += att.Children * t.Child

	// infants are always free

	return total
}
