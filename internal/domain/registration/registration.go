package registration

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payment status values stored on a registration.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

var PaymentStatuses = []string{PaymentPending, PaymentCompleted, PaymentFailed}

// Guest is owned by its registration; it has no identity of its own and is
// only ever written as part of the owning registration's guest list.
type Guest struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	FoodChoice  string `json:"foodChoice"`
	AgeCategory string `json:"ageCategory"`
}

type Attendees struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

// Extension carries the event-variant specific fields. Which of these are
// required is decided by the active variant config, not by this type.
type Extension struct {
	StateUT                string   `json:"stateUT,omitempty"`
	District               string   `json:"district,omitempty"`
	City                   string   `json:"city,omitempty"`
	Pincode                string   `json:"pincode,omitempty"`
	HouseColor             string   `json:"houseColor,omitempty"`
	YearOfPassing          int      `json:"yearOfPassing,omitempty"`
	RegistrationTypes      []string `json:"registrationTypes,omitempty"`
	FoodChoice             string   `json:"foodChoice,omitempty"`
	ExpectedArrivalTime    string   `json:"expectedArrivalTime,omitempty"`
	OvernightAccommodation string   `json:"overnightAccommodation,omitempty"`
	CulturalProgram        bool     `json:"culturalProgram,omitempty"`
	ProgramType            string   `json:"programType,omitempty"`
	Notes                  string   `json:"notes,omitempty"`
}

type Registration struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	WhatsappNumber       string     `json:"whatsappNumber"`
	Gender               string     `json:"gender"`
	Cohort               string     `json:"cohort"`
	Attendees            Attendees  `json:"attendees"`
	Guests               []Guest    `json:"guests,omitempty"`
	Extension            Extension  `json:"extension"`
	ContributionAmount   int        `json:"contributionAmount"`
	PaymentStatus        string     `json:"paymentStatus"`
	PaymentTransactionID string     `json:"paymentTransactionId"`
	Verified             bool       `json:"verified"`
	VerificationDate     *time.Time `json:"verificationDate,omitempty"`
	VerifiedBy           string     `json:"verifiedBy,omitempty"`
	IsEmailSent          bool       `json:"isEmailSent"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

var (
	ErrNotFound             = errors.New("registration not found")
	ErrDuplicateContact     = errors.New("email or mobile number already registered")
	ErrDuplicateTransaction = errors.New("payment transaction id already used")
)

// ContactConflict carries the public-safe fields of an existing registration
// that collided on email or whatsapp number. Transaction ids are deliberately
// never echoed back.
type ContactConflict struct {
	Email          string    `json:"email"`
	WhatsappNumber string    `json:"whatsappNumber"`
	RegisteredAt   time.Time `json:"registrationDate"`
}

// Code derives the human-readable registration id: the variant prefix plus
// the last 8 characters of the uuid, uppercased.
func (r Registration) Code(prefix string) string {
	id := strings.ReplaceAll(r.ID, "-", "")
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return prefix + strings.ToUpper(id)
}

// TotalAttendees counts the primary party plus separately tracked guests.
func (r Registration) TotalAttendees() int {
	return r.Attendees.Adults + r.Attendees.Children + r.Attendees.Infants + len(r.Guests)
}

// displayLocation is the timezone registration dates are presented in. Falls
// back to IST's fixed offset when the tzdata is unavailable.
var displayLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}()

// DisplayDate renders a timestamp as DD-MM-YYYY in Asia/Kolkata, the format
// used in list responses and exports.
func DisplayDate(t time.Time) string {
	return t.In(displayLocation).Format("02-01-2006")
}

// NewFromCreateRequest builds a Registration from a validated create payload.
func NewFromCreateRequest(req CreateRequest) Registration {
	now := time.Now().UTC()

	amount := 0
	if req.ContributionAmount != nil {
		amount = *req.ContributionAmount
	}

	return Registration{
		ID:                   uuid.NewString(),
		Name:                 strings.TrimSpace(req.Name),
		Email:                strings.ToLower(strings.TrimSpace(req.Email)),
		WhatsappNumber:       strings.TrimSpace(req.WhatsappNumber),
		Gender:               req.Gender,
		Cohort:               req.Cohort,
		Attendees:            req.Attendees,
		Guests:               req.Guests,
		Extension:            req.Extension(),
		ContributionAmount:   amount,
		PaymentStatus:        PaymentPending,
		PaymentTransactionID: strings.TrimSpace(req.PaymentTransactionID),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
