package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		ObserveHTTP("GET", "/api/v1/bookings", "200", 0.042)
		IncBookingCreated()
		IncBookingTransition("confirmed")
		IncMail("sent")
		SetWSClients(3)
	})
}
