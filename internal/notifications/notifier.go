package notifications

import (
	"context"
	"fmt"
)

// SendConfirmationInput is everything the confirmation message needs. The
// registration code is the derived human-readable id, not the uuid.
type SendConfirmationInput struct {
	Email            string
	Name             string
	WhatsappNumber   string
	RegistrationCode string
	EventName        string
}

// Notifier delivers the post-registration confirmation. A send failure is
// recorded on the registration (isEmailSent stays false) and retried by the
// sweep; it never rolls back the registration itself.
type Notifier interface {
	SendConfirmation(ctx context.Context, in SendConfirmationInput) error
}

func confirmationSubject() string {
	return "Registration Successful"
}

func confirmationBody(in SendConfirmationInput) string {
	return fmt.Sprintf(`Dear %s,

Thank you for registering for %s. Your registration has been successful.

Registration ID: %s
Name: %s
Email: %s
WhatsApp Number: %s

See you at the event!

Regards,
The %s Team
`, in.Name, in.EventName, in.RegistrationCode, in.Name, in.Email, in.WhatsappNumber, in.EventName)
}
