// Package variant holds the per-deployment event configuration. The same
// Registration entity serves every event instance; what differs between
// instances (cohort labels, free tier, price table, which extension fields
// are required) lives here so validation and pricing stay configuration
// rather than per-event copies of the schema.
package variant

import (
	"fmt"

	"github.com/unmablr/meetreg/internal/domain/registration"
	"github.com/unmablr/meetreg/internal/pricing"
)

type Config struct {
	Tag        string
	EventName  string
	CodePrefix string

	// CohortLabel names the categorical field in user-facing messages
	// ("batch", "house color").
	CohortLabel string
	Cohorts     []string
	FreeCohorts map[string]bool

	Pricing pricing.Table

	// Field requirements that differ per event instance.
	RequiresPreferences      bool // food choice, arrival window, accommodation
	RequiresRegistrationType bool
	RequiresStateUT          bool
	UsesHouseColor           bool
	HouseColors              []string
}

// AlumniMeet is the batch-based alumni gathering: batches 1-32, the five
// youngest batches attend free.
var AlumniMeet = Config{
	Tag:         "alumni-meet",
	EventName:   "Back to Hills 4.0",
	CodePrefix:  "BTH4",
	CohortLabel: "batch",
	Cohorts:     batchCohorts(32),
	FreeCohorts: map[string]bool{
		"Batch 28": true,
		"Batch 29": true,
		"Batch 30": true,
		"Batch 31": true,
		"Batch 32": true,
	},
	Pricing:             pricing.Table{FirstAdult: 300, AdditionalAdult: 200, Child: 150},
	RequiresPreferences: true,
}

// OnamFest is the house-color community event: no free tier, registrants
// pick a registration category and a house color.
var OnamFest = Config{
	Tag:         "onam-fest",
	EventName:   "Onavesham 2.0",
	CodePrefix:  "ONV2",
	CohortLabel: "house color",
	Cohorts: []string{
		"red", "blue", "green", "yellow", "orange", "purple", "pink", "not-sure",
	},
	FreeCohorts:              map[string]bool{},
	Pricing:                  pricing.Table{FirstAdult: 300, AdditionalAdult: 200, Child: 150},
	RequiresRegistrationType: true,
	RequiresStateUT:          true,
	UsesHouseColor:           true,
	HouseColors: []string{
		"red", "blue", "green", "yellow", "orange", "purple", "pink", "not-sure",
	},
}

var registry = map[string]Config{
	AlumniMeet.Tag: AlumniMeet,
	OnamFest.Tag:   OnamFest,
}

// ByTag resolves the deployed variant from configuration.
func ByTag(tag string) (Config, error) {
	cfg, ok := registry[tag]
	if !ok {
		return Config{}, fmt.Errorf("unknown event variant %q", tag)
	}
	return cfg, nil
}

// HasCohort reports membership of the variant's cohort set.
func (c Config) HasCohort(cohort string) bool {
	for _, v := range c.Cohorts {
		if v == cohort {
			return true
		}
	}
	return false
}

// IsFreeCohort reports free-tier eligibility for pricing.
func (c Config) IsFreeCohort(cohort string) bool {
	return c.FreeCohorts[cohort]
}

// SuggestedAmount runs the price table for the given cohort and counts.
func (c Config) SuggestedAmount(cohort string, att registration.Attendees) int {
	return pricing.Suggest(c.Pricing, c.IsFreeCohort(cohort), att)
}

func batchCohorts(n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("Batch %d", i))
	}
	return out
}
