package registration

import "strings"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	MaxSearchLen = 100
)

// SortFields is the allow-list of sortable fields for the admin list.
var SortFields = map[string]bool{
	"createdAt":          true,
	"name":               true,
	"email":              true,
	"contributionAmount": true,
}

// ListQuery is the admin list/filter query after normalization.
type ListQuery struct {
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
	SortBy        string `form:"sortBy"`
	SortOrder     string `form:"sortOrder"`
	PaymentStatus string `form:"paymentStatus"`
	Verified      *bool  `form:"verified"`
	Search        string `form:"search"`
	Cohort        string `form:"cohort"`
}

// Normalize applies defaults and bounds, returning one message per rejected
// parameter. Out-of-range page/limit are errors rather than silently clamped
// so the client learns about the mistake.
func (q *ListQuery) Normalize() []string {
	var errs []string

	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Page < 1 {
		errs = append(errs, "page must be at least 1")
	}

	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		errs = append(errs, "limit must be between 1 and 100")
	}

	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	if !SortFields[q.SortBy] {
		errs = append(errs, "sortBy must be one of: createdAt, name, email, contributionAmount")
	}

	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		errs = append(errs, "sortOrder must be asc or desc")
	}

	if q.PaymentStatus != "" {
		valid := false
		for _, s := range PaymentStatuses {
			if q.PaymentStatus == s {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, "paymentStatus must be one of: pending, completed, failed")
		}
	}

	q.Search = strings.TrimSpace(q.Search)
	if len(q.Search) > MaxSearchLen {
		errs = append(errs, "search cannot exceed 100 characters")
	}

	return errs
}

// Offset converts page/limit into the store's skip value.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
