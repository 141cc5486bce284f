package dispatch

import (
	"fmt"

	"practice-management-api/internal/model"
)

// Body renders the plain-text body for a queued entry. Subjects were fixed at
// schedule time; bodies are rendered at send time from the same snapshot.
func Body(e *model.EmailScheduleEntry) string {
	switch e.EmailType {
	case model.EmailReminder24h:
		return fmt.Sprintf(
			"Hi %s,\n\nThis is a reminder that you have a session tomorrow.\n\nSee you then!\n",
			e.RecipientName)
	case model.EmailReminder1h:
		return fmt.Sprintf(
			"Hi %s,\n\nYour session starts in about an hour.\n",
			e.RecipientName)
	case model.EmailInvoiceDelivery:
		return fmt.Sprintf(
			"Hi %s,\n\nThank you for your session. Your invoice is attached to this email.\n",
			e.RecipientName)
	default:
		return fmt.Sprintf("Hi %s,\n\n%s\n", e.RecipientName, e.Subject)
	}
}
