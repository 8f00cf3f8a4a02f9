package registration

// GroupCount is one bucket of a group-by aggregation.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// VerifiedCount is the verification-flag distribution bucket.
type VerifiedCount struct {
	Verified bool `json:"verified"`
	Count    int  `json:"count"`
}

// Totals are the headline numbers of the stats summary.
type Totals struct {
	TotalRegistrations int   `json:"totalRegistrations"`
	TotalAmount        int64 `json:"totalAmount"`
}

// Summary is the composed read-only statistics object served to the admin
// dashboard. Top-N breakdowns are capped by the aggregator; the cohort and
// house-color distributions are bounded by their enum cardinality.
type Summary struct {
	Totals
	PaymentStatusDistribution []GroupCount    `json:"paymentStatusDistribution"`
	VerificationStatus        []VerifiedCount `json:"verificationStatus"`
	Cohorts                   []GroupCount    `json:"cohorts"`
	RegistrationTypes         []GroupCount    `json:"registrationTypes,omitempty"`
	HouseColors               []GroupCount    `json:"houseColors,omitempty"`
	TopDistricts              []GroupCount    `json:"topDistricts,omitempty"`
}
