package notify

import (
	"context"
	"fmt"

	"practice-management-api/internal/model"
	"practice-management-api/pkg/logging"
)

// Service sends the immediate booking emails: confirmation on create/approve,
// notice on cancellation. These bypass the scheduled queue.
type Service struct {
	sender EmailSender
	logger *logging.Logger
}

func NewService(sender EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sender: sender, logger: logger}
}

func (s *Service) SendBookingConfirmation(ctx context.Context, appt *model.Appointment, client *model.Client) error {
	if s.sender == nil {
		return nil
	}
	when := appt.StartTime.Format("Monday, January 2 at 15:04")
	body := fmt.Sprintf("Hi %s,\n\nYour session is booked for %s.\n", client.Name, when)
	if appt.Format == model.FormatOnline {
		body += "\nThis is an online session; your join link will be included in the reminder email.\n"
	}
	if !appt.Confirmed {
		body += "\nYour booking is awaiting approval; we will be in touch shortly.\n"
	}
	return s.sender.Send(ctx, EmailMessage{
		To:      client.Email,
		ToName:  client.Name,
		Subject: fmt.Sprintf("Booking confirmation - %s", when),
		Body:    body,
	})
}

func (s *Service) SendCancellation(ctx context.Context, appt *model.Appointment, client *model.Client) error {
	if s.sender == nil {
		return nil
	}
	when := appt.StartTime.Format("Monday, January 2 at 15:04")
	return s.sender.Send(ctx, EmailMessage{
		To:      client.Email,
		ToName:  client.Name,
		Subject: fmt.Sprintf("Session cancelled - %s", when),
		Body:    fmt.Sprintf("Hi %s,\n\nYour session on %s has been cancelled.\n", client.Name, when),
	})
}
