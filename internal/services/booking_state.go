package services

import (
	"fmt"
	"strings"

	"github.com/slotline/booking-backend/internal/models"
)

// BookingTransition defines a valid booking status change
type BookingTransition struct {
	From models.BookingStatus
	To   models.BookingStatus
}

// bookingTransitions is the authoritative lifecycle definition
var bookingTransitions = []BookingTransition{
	{From: models.BookingStatusPending, To: models.BookingStatusConfirmed},
	{From: models.BookingStatusPending, To: models.BookingStatusCancelled},
	{From: models.BookingStatusConfirmed, To: models.BookingStatusCompleted},
	{From: models.BookingStatusConfirmed, To: models.BookingStatusCancelled},
	// A cancelled booking can be reinstated while the slot is still free
	{From: models.BookingStatusCancelled, To: models.BookingStatusPending},
}

type bookingTransitionKey struct {
	From models.BookingStatus
	To   models.BookingStatus
}

var bookingTransitionMap = func() map[bookingTransitionKey]bool {
	m := make(map[bookingTransitionKey]bool)
	for _, t := range bookingTransitions {
		m[bookingTransitionKey{t.From, t.To}] = true
	}
	return m
}()

// CanTransitionBooking checks whether a booking may move between two statuses.
// Blocked slots never change status; they are created and deleted whole.
func CanTransitionBooking(from, to models.BookingStatus) error {
	if from == to {
		return nil
	}

	if bookingTransitionMap[bookingTransitionKey{From: from, To: to}] {
		return nil
	}

	return fmt.Errorf(
		"invalid status transition: %s -> %s (valid targets from %s: %s)",
		from, to, from, describeBookingTargets(from),
	)
}

// BookingTargetsFrom returns all valid next statuses from a given status
func BookingTargetsFrom(status models.BookingStatus) []models.BookingStatus {
	var targets []models.BookingStatus
	seen := map[models.BookingStatus]bool{}
	for _, t := range bookingTransitions {
		if t.From == status && !seen[t.To] {
			targets = append(targets, t.To)
			seen[t.To] = true
		}
	}
	return targets
}

func describeBookingTargets(status models.BookingStatus) string {
	targets := BookingTargetsFrom(status)
	if len(targets) == 0 {
		return "none (terminal status)"
	}
	parts := make([]string, 0, len(targets))
	for _, s := range targets {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ", ")
}
