package registration

import "strings"

// CreateRequest is the public submission payload. Structural rules live in
// the binding tags; variant-specific rules (cohort membership, conditional
// requirements, mobile format) are applied by the variant validator so every
// violation is reported in one pass.
type CreateRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=100"`
	Email          string `json:"email" binding:"required,email"`
	WhatsappNumber string `json:"whatsappNumber" binding:"required"`
	Gender         string `json:"gender" binding:"required,oneof=male female other prefer-not-to-say"`
	Cohort         string `json:"cohort" binding:"required"`

	Attendees Attendees `json:"attendees"`
	Guests    []Guest   `json:"guests" binding:"omitempty,dive"`

	StateUT                string   `json:"stateUT"`
	District               string   `json:"district"`
	City                   string   `json:"city" binding:"omitempty,max=100"`
	Pincode                string   `json:"pincode"`
	HouseColor             string   `json:"houseColor"`
	YearOfPassing          int      `json:"yearOfPassing"`
	RegistrationTypes      []string `json:"registrationTypes" binding:"omitempty,dive,oneof=attendee sponsor donor volunteer alumni"`
	FoodChoice             string   `json:"foodChoice" binding:"omitempty,oneof=veg non-veg"`
	ExpectedArrivalTime    string   `json:"expectedArrivalTime" binding:"omitempty,oneof=8-11 11-14 14-17 17-20"`
	OvernightAccommodation string   `json:"overnightAccommodation" binding:"omitempty,oneof=yes no"`
	CulturalProgram        bool     `json:"culturalProgram"`
	ProgramType            string   `json:"programType" binding:"omitempty,oneof=classical-dance folk-dance music poetry skit other"`
	Notes                  string   `json:"notes" binding:"omitempty,max=500"`

	ContributionAmount   *int   `json:"contributionAmount" binding:"required"`
	PaymentTransactionID string `json:"paymentTransactionId" binding:"required"`
}

// Extension collects the variant-specific fields of a create payload.
func (req CreateRequest) Extension() Extension {
	return Extension{
		StateUT:                strings.TrimSpace(req.StateUT),
		District:               strings.TrimSpace(req.District),
		City:                   strings.TrimSpace(req.City),
		Pincode:                strings.TrimSpace(req.Pincode),
		HouseColor:             req.HouseColor,
		YearOfPassing:          req.YearOfPassing,
		RegistrationTypes:      req.RegistrationTypes,
		FoodChoice:             req.FoodChoice,
		ExpectedArrivalTime:    req.ExpectedArrivalTime,
		OvernightAccommodation: req.OvernightAccommodation,
		CulturalProgram:        req.CulturalProgram,
		ProgramType:            req.ProgramType,
		Notes:                  strings.TrimSpace(req.Notes),
	}
}

// UpdateRequest is the admin partial-update payload. Nil means "leave the
// field untouched"; the same field-level rules as create apply to whatever
// is present.
type UpdateRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=2,max=100"`
	Email          *string `json:"email" binding:"omitempty,email"`
	WhatsappNumber *string `json:"whatsappNumber"`
	Gender         *string `json:"gender" binding:"omitempty,oneof=male female other prefer-not-to-say"`
	Cohort         *string `json:"cohort"`

	Attendees *Attendees `json:"attendees"`
	Guests    *[]Guest   `json:"guests" binding:"omitempty,dive"`

	StateUT                *string   `json:"stateUT"`
	District               *string   `json:"district"`
	City                   *string   `json:"city" binding:"omitempty,max=100"`
	Pincode                *string   `json:"pincode"`
	HouseColor             *string   `json:"houseColor"`
	YearOfPassing          *int      `json:"yearOfPassing"`
	RegistrationTypes      *[]string `json:"registrationTypes" binding:"omitempty,dive,oneof=attendee sponsor donor volunteer alumni"`
	FoodChoice             *string   `json:"foodChoice" binding:"omitempty,oneof=veg non-veg"`
	ExpectedArrivalTime    *string   `json:"expectedArrivalTime" binding:"omitempty,oneof=8-11 11-14 14-17 17-20"`
	OvernightAccommodation *string   `json:"overnightAccommodation" binding:"omitempty,oneof=yes no"`
	CulturalProgram        *bool     `json:"culturalProgram"`
	ProgramType            *string   `json:"programType" binding:"omitempty,oneof=classical-dance folk-dance music poetry skit other"`
	Notes                  *string   `json:"notes" binding:"omitempty,max=500"`

	ContributionAmount   *int    `json:"contributionAmount"`
	PaymentStatus        *string `json:"paymentStatus" binding:"omitempty,oneof=pending completed failed"`
	PaymentTransactionID *string `json:"paymentTransactionId"`
	Verified             *bool   `json:"verified"`
}

// TouchesContact reports whether the update changes email or whatsapp number
// and therefore needs a duplicate-contact check.
func (req UpdateRequest) TouchesContact() bool {
	return req.Email != nil || req.WhatsappNumber != nil
}

// Apply merges the present fields of the update into reg. The caller is
// responsible for re-stamping UpdatedAt at persist time.
func (req UpdateRequest) Apply(reg *Registration) {
	if req.Name != nil {
		reg.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		reg.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.WhatsappNumber != nil {
		reg.WhatsappNumber = strings.TrimSpace(*req.WhatsappNumber)
	}
	if req.Gender != nil {
		reg.Gender = *req.Gender
	}
	if req.Cohort != nil {
		reg.Cohort = *req.Cohort
	}
	if req.Attendees != nil {
		reg.Attendees = *req.Attendees
	}
	if req.Guests != nil {
		reg.Guests = *req.Guests
	}
	if req.StateUT != nil {
		reg.Extension.StateUT = strings.TrimSpace(*req.StateUT)
	}
	if req.District != nil {
		reg.Extension.District = strings.TrimSpace(*req.District)
	}
	if req.City != nil {
		reg.Extension.City = strings.TrimSpace(*req.City)
	}
	if req.Pincode != nil {
		reg.Extension.Pincode = strings.TrimSpace(*req.Pincode)
	}
	if req.HouseColor != nil {
		reg.Extension.HouseColor = *req.HouseColor
	}
	if req.YearOfPassing != nil {
		reg.Extension.YearOfPassing = *req.YearOfPassing
	}
	if req.RegistrationTypes != nil {
		reg.Extension.RegistrationTypes = *req.RegistrationTypes
	}
	if req.FoodChoice != nil {
		reg.Extension.FoodChoice = *req.FoodChoice
	}
	if req.ExpectedArrivalTime != nil {
		reg.Extension.ExpectedArrivalTime = *req.ExpectedArrivalTime
	}
	if req.OvernightAccommodation != nil {
		reg.Extension.OvernightAccommodation = *req.OvernightAccommodation
	}
	if req.CulturalProgram != nil {
		reg.Extension.CulturalProgram = *req.CulturalProgram
	}
	if req.ProgramType != nil {
		reg.Extension.ProgramType = *req.ProgramType
	}
	if req.Notes != nil {
		reg.Extension.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.ContributionAmount != nil {
		reg.ContributionAmount = *req.ContributionAmount
	}
	if req.PaymentStatus != nil {
		reg.PaymentStatus = *req.PaymentStatus
	}
	if req.PaymentTransactionID != nil {
		reg.PaymentTransactionID = strings.TrimSpace(*req.PaymentTransactionID)
	}
	if req.Verified != nil {
		reg.Verified = *req.Verified
	}
}
