package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the clinician account that owns the calendar.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Client is a practice client. Approved gates booking; AutoInvoice drives
// invoice-delivery email scheduling. Rate is in cents.
type Client struct {
	ID          string
	Name        string
	Email       string
	Approved    bool
	AutoInvoice bool
	Rate        int
	CreatedAt   time.Time
}

// Format distinguishes video sessions from in-person ones.
type Format string

const (
	FormatOnline     Format = "ONLINE"
	FormatFaceToFace Format = "FACE_TO_FACE"
)

// AppointmentStatus is the attendance lifecycle of an appointment.
// CANCELLED is terminal and removes the appointment from conflict checks.
type AppointmentStatus string

const (
	StatusNotYetAttended AppointmentStatus = "NOT_YET_ATTENDED"
	StatusAttended       AppointmentStatus = "ATTENDED"
	StatusAbsent         AppointmentStatus = "ABSENT"
	StatusCancelled      AppointmentStatus = "CANCELLED"
)

// RecurringType is the step between instances of a series.
type RecurringType string

const (
	RecurringWeekly   RecurringType = "WEEKLY"
	RecurringBiweekly RecurringType = "BIWEEKLY"
	RecurringMonthly  RecurringType = "MONTHLY"
)

// Appointment is the aggregate root of the scheduling core.
// Invariant: EndTime > StartTime. Confirmed, non-cancelled appointments
// never overlap (single practitioner, one calendar).
type Appointment struct {
	ID            string
	ClientID      string
	StartTime     time.Time
	EndTime       time.Time
	Format        Format
	Status        AppointmentStatus
	Confirmed     bool
	IsRecurring   bool
	RecurringType RecurringType
	RecurrentID   *uuid.UUID
	HostJWT       string
	ClientJWT     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EmailType identifies what a scheduled email is for.
type EmailType string

const (
	EmailReminder24h     EmailType = "REMINDER_24H"
	EmailReminder1h      EmailType = "REMINDER_1H"
	EmailInvoiceDelivery EmailType = "INVOICE_DELIVERY"
)

// EmailStatus is the dispatch state of a queued email.
// SENT, FAILED and CANCELLED are terminal; this core never retries FAILED.
type EmailStatus string

const (
	EmailPending   EmailStatus = "PENDING"
	EmailSent      EmailStatus = "SENT"
	EmailFailed    EmailStatus = "FAILED"
	EmailCancelled EmailStatus = "CANCELLED"
)

// EmailScheduleEntry is a queued reminder or invoice email owned by one
// appointment. At most one PENDING entry may exist per (appointment, type).
type EmailScheduleEntry struct {
	ID             string
	AppointmentID  string
	EmailType      EmailType
	ScheduledFor   time.Time
	RecipientEmail string
	RecipientName  string
	Subject        string
	Status         EmailStatus
	SentAt         *time.Time
	ErrorMessage   string
	CreatedAt      time.Time
}

// WeeklyAvailabilityBlock is one open block of the recurring weekly template.
// Multiple blocks per weekday are allowed (split shifts).
type WeeklyAvailabilityBlock struct {
	ID        string
	Weekday   BusinessWeekday
	StartTime MinuteOfDay
	EndTime   MinuteOfDay
	IsActive  bool
}

// DateAvailabilityOverride replaces the weekly template for one calendar day.
// Nil StartTime and EndTime is the "closed" sentinel: the whole day has zero
// availability regardless of template.
type DateAvailabilityOverride struct {
	ID        string
	Date      time.Time // midnight, time-of-day stripped
	StartTime *MinuteOfDay
	EndTime   *MinuteOfDay
}

// Closed reports whether the override is the closed-day sentinel.
func (o DateAvailabilityOverride) Closed() bool {
	return o.StartTime == nil || o.EndTime == nil
}

// Slot is a bookable [Start,End) interval on a concrete day.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open interval overlap with [start,end).
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && s.End.After(start)
}

// Contains reports whether [start,end) fits entirely inside the slot.
func (s Slot) Contains(start, end time.Time) bool {
	return !start.Before(s.Start) && !end.After(s.End)
}
