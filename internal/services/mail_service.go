package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/pkg/mail"
	"github.com/slotline/booking-backend/pkg/validator"
)

var (
	// ErrNoRecipients indicates every requested recipient was rejected
	ErrNoRecipients = fmt.Errorf("no valid email recipients")
)

// MailSender delivers a single message. Satisfied by mail.Gateway.
type MailSender interface {
	Send(msg mail.Message) error
}

// MailService builds and sends transactional booking email. It implements
// BookingMailer for the booking service and backs the email function
// endpoints.
type MailService struct {
	gateway   MailSender
	users     *database.UserRepository
	services  *database.ServiceRepository
	validator *validator.EmailValidator
}

// NewMailService creates a new mail service
func NewMailService(
	gateway MailSender,
	users *database.UserRepository,
	services *database.ServiceRepository,
	emailValidator *validator.EmailValidator,
) *MailService {
	return &MailService{
		gateway:   gateway,
		users:     users,
		services:  services,
		validator: emailValidator,
	}
}

// SendBookingCreated mails the booking's customer and provider
func (s *MailService) SendBookingCreated(booking *models.Booking) error {
	recipients := s.bookingParticipants(booking)
	return s.sendCreated(booking, recipients)
}

// SendBookingStatusChanged mails the booking's customer and provider about
// a status transition
func (s *MailService) SendBookingStatusChanged(booking *models.Booking, oldStatus, newStatus models.BookingStatus) error {
	recipients := s.bookingParticipants(booking)
	return s.sendStatusChanged(booking, oldStatus, newStatus, recipients)
}

// NotifyBookingCreated mails an explicit recipient list about a booking.
// recipientIDs are user ids resolved to their addresses; customEmails are
// raw addresses. Backs the send-booking-created-email function endpoint.
func (s *MailService) NotifyBookingCreated(bookingID uuid.UUID, booking *models.Booking, recipientIDs, customEmails []string) error {
	recipients := s.resolveRecipients(recipientIDs, customEmails)
	return s.sendCreated(booking, recipients)
}

// NotifyBookingStatusChanged mails an explicit recipient list about a
// status transition. Backs the send-booking-status-email function endpoint.
func (s *MailService) NotifyBookingStatusChanged(booking *models.Booking, oldStatus, newStatus models.BookingStatus, recipientIDs, customEmails []string) error {
	recipients := s.resolveRecipients(recipientIDs, customEmails)
	return s.sendStatusChanged(booking, oldStatus, newStatus, recipients)
}

func (s *MailService) sendCreated(booking *models.Booking, recipients []string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	serviceName := s.serviceName(booking.ServiceID)

	subject := fmt.Sprintf("Booking confirmed: %s on %s",
		serviceName, booking.StartTime.Format("Mon, 2 Jan 2006"))

	body := fmt.Sprintf(
		"Your booking has been created.\n\n"+
			"Service: %s\n"+
			"When: %s to %s\n"+
			"Status: %s\n",
		serviceName,
		booking.StartTime.Format(time.RFC1123),
		booking.EndTime.Format("15:04 MST"),
		booking.Status,
	)
	if booking.Notes.Valid && booking.Notes.String != "" {
		body += fmt.Sprintf("Notes: %s\n", booking.Notes.String)
	}

	return s.gateway.Send(mail.Message{
		To:      recipients,
		Subject: subject,
		Body:    body,
	})
}

func (s *MailService) sendStatusChanged(booking *models.Booking, oldStatus, newStatus models.BookingStatus, recipients []string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	serviceName := s.serviceName(booking.ServiceID)

	subject := fmt.Sprintf("Booking %s: %s on %s",
		newStatus, serviceName, booking.StartTime.Format("Mon, 2 Jan 2006"))

	body := fmt.Sprintf(
		"Your booking status has changed from %s to %s.\n\n"+
			"Service: %s\n"+
			"When: %s to %s\n",
		oldStatus, newStatus,
		serviceName,
		booking.StartTime.Format(time.RFC1123),
		booking.EndTime.Format("15:04 MST"),
	)

	return s.gateway.Send(mail.Message{
		To:      recipients,
		Subject: subject,
		Body:    body,
	})
}

// bookingParticipants resolves the customer's and provider's addresses.
// Blocked slots have no customer to mail.
func (s *MailService) bookingParticipants(booking *models.Booking) []string {
	if booking.IsBlockedSlot() {
		return nil
	}

	ids := []string{booking.CustomerID.String()}
	if booking.ProviderID.Valid {
		ids = append(ids, booking.ProviderID.UUID.String())
	}

	return s.resolveRecipients(ids, nil)
}

// resolveRecipients turns user ids and raw addresses into a deduplicated,
// validated recipient list. Invalid entries are logged and skipped.
func (s *MailService) resolveRecipients(recipientIDs, customEmails []string) []string {
	candidates := make([]string, 0, len(recipientIDs)+len(customEmails))

	for _, id := range recipientIDs {
		userID, err := uuid.Parse(id)
		if err != nil {
			logrus.WithField("recipient_id", id).Warn("Skipping malformed recipient id")
			continue
		}
		user, err := s.users.GetUserByID(userID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"recipient_id": id,
				"error":        err.Error(),
			}).Warn("Skipping unknown recipient")
			continue
		}
		candidates = append(candidates, user.Email)
	}
	candidates = append(candidates, customEmails...)

	valid, rejected := s.validator.FilterValid(candidates)
	for email, err := range rejected {
		logrus.WithFields(logrus.Fields{
			"email": email,
			"error": err.Error(),
		}).Warn("Skipping invalid email recipient")
	}

	return dedupeEmails(valid)
}

func (s *MailService) serviceName(serviceID uuid.UUID) string {
	service, err := s.services.GetByID(serviceID)
	if err != nil {
		return "your appointment"
	}
	return service.Name
}

func dedupeEmails(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		key := strings.ToLower(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
