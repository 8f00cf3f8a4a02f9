package variant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/unmablr/meetreg/internal/domain/registration"
)

// Indian mobile numbering: 10 digits, first digit 6-9.
var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

// ValidateCreate applies the variant-dependent and conditional rules to a
// structurally bound create payload. It never stops at the first problem;
// the returned slice lists every violation in field order so the client can
// show all of them at once. Empty slice means valid.
func ValidateCreate(cfg Config, req registration.CreateRequest) []string {
	var errs []string

	if !mobilePattern.MatchString(strings.TrimSpace(req.WhatsappNumber)) {
		errs = append(errs, "please enter a valid 10-digit mobile number starting with 6-9")
	}

	if !cfg.HasCohort(req.Cohort) {
		errs = append(errs, fmt.Sprintf("%s must be one of the available options", cfg.CohortLabel))
	}

	errs = append(errs, validateAttendees(req.Attendees)...)

	if req.ContributionAmount != nil && *req.ContributionAmount < 0 {
		errs = append(errs, "contribution amount cannot be negative")
	}

	if cfg.RequiresPreferences {
		if req.FoodChoice == "" {
			errs = append(errs, "food choice is required")
		}
		if req.ExpectedArrivalTime == "" {
			errs = append(errs, "expected arrival time is required")
		}
		if req.OvernightAccommodation == "" {
			errs = append(errs, "overnight accommodation preference is required")
		}
	}

	if cfg.RequiresRegistrationType && len(req.RegistrationTypes) == 0 {
		errs = append(errs, "please select at least one registration category")
	}

	if cfg.RequiresStateUT && strings.TrimSpace(req.StateUT) == "" {
		errs = append(errs, "state/UT is required")
	}

	errs = append(errs, validateConditionals(
		req.StateUT, req.District, req.CulturalProgram, req.ProgramType)...)

	errs = append(errs, validateOptionalFormats(req.Pincode, req.YearOfPassing)...)

	for i, g := range req.Guests {
		errs = append(errs, validateGuest(i, g)...)
	}

	return errs
}

// ValidateUpdate applies the same field rules to whatever the partial update
// touches; absent fields are not validated.
func ValidateUpdate(cfg Config, req registration.UpdateRequest) []string {
	var errs []string

	if req.WhatsappNumber != nil && !mobilePattern.MatchString(strings.TrimSpace(*req.WhatsappNumber)) {
		errs = append(errs, "please enter a valid 10-digit mobile number starting with 6-9")
	}

	if req.Cohort != nil && !cfg.HasCohort(*req.Cohort) {
		errs = append(errs, fmt.Sprintf("%s must be one of the available options", cfg.CohortLabel))
	}

	if req.Attendees != nil {
		errs = append(errs, validateAttendees(*req.Attendees)...)
	}

	if req.ContributionAmount != nil && *req.ContributionAmount < 0 {
		errs = append(errs, "contribution amount cannot be negative")
	}

	if req.PaymentTransactionID != nil && strings.TrimSpace(*req.PaymentTransactionID) == "" {
		errs = append(errs, "payment transaction ID cannot be empty")
	}

	if req.StateUT != nil || req.District != nil {
		state := ""
		if req.StateUT != nil {
			state = *req.StateUT
		}
		district := ""
		if req.District != nil {
			district = *req.District
		}
		cultural := req.CulturalProgram != nil && *req.CulturalProgram
		program := ""
		if req.ProgramType != nil {
			program = *req.ProgramType
		}
		errs = append(errs, validateConditionals(state, district, cultural, program)...)
	} else if req.CulturalProgram != nil && *req.CulturalProgram {
		program := ""
		if req.ProgramType != nil {
			program = *req.ProgramType
		}
		if program == "" {
			errs = append(errs, "program type is required when cultural program is selected")
		}
	}

	pincode := ""
	if req.Pincode != nil {
		pincode = *req.Pincode
	}
	year := 0
	if req.YearOfPassing != nil {
		year = *req.YearOfPassing
	}
	errs = append(errs, validateOptionalFormats(pincode, year)...)

	if req.Guests != nil {
		for i, g := range *req.Guests {
			errs = append(errs, validateGuest(i, g)...)
		}
	}

	return errs
}

func validateAttendees(att registration.Attendees) []string {
	var errs []string
	if att.Adults < 0 {
		errs = append(errs, "number of adults cannot be negative")
	}
	if att.Children < 0 {
		errs = append(errs, "number of children cannot be negative")
	}
	if att.Infants < 0 {
		errs = append(errs, "number of infants cannot be negative")
	}
	return errs
}

// The two conditional-required rules, kept declarative and in one place.
func validateConditionals(stateUT, district string, culturalProgram bool, programType string) []string {
	var errs []string
	if strings.EqualFold(strings.TrimSpace(stateUT), "Kerala") && strings.TrimSpace(district) == "" {
		errs = append(errs, "district is required when State/UT is Kerala")
	}
	if culturalProgram && programType == "" {
		errs = append(errs, "program type is required when cultural program is selected")
	}
	return errs
}

func validateOptionalFormats(pincode string, yearOfPassing int) []string {
	var errs []string
	if pincode != "" && !pincodePattern.MatchString(pincode) {
		errs = append(errs, "please enter a valid 6-digit pincode")
	}
	if yearOfPassing != 0 {
		if yearOfPassing < 1990 || yearOfPassing > time.Now().Year()+1 {
			errs = append(errs, "year of passing must be between 1990 and next year")
		}
	}
	return errs
}

func validateGuest(i int, g registration.Guest) []string {
	var errs []string
	prefix := fmt.Sprintf("guest %d: ", i+1)

	if strings.TrimSpace(g.Name) == "" {
		errs = append(errs, prefix+"name is required")
	}
	switch g.Gender {
	case "male", "female", "other":
	default:
		errs = append(errs, prefix+"gender must be one of: male, female, other")
	}
	switch g.FoodChoice {
	case "veg", "non-veg":
	default:
		errs = append(errs, prefix+"food choice must be veg or non-veg")
	}
	switch g.AgeCategory {
	case "adult", "child", "infant":
	default:
		errs = append(errs, prefix+"age category must be one of: adult, child, infant")
	}
	return errs
}
