package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
)

func TestRenderCutoffReminder(t *testing.T) {
	rec := booking.Record{
		ID:           "bk-1",
		BookingNo:    "HBL-4471",
		CustomerName: "Acme Exports",
		Deadline:     time.Date(2026, time.March, 12, 12, 0, 0, 0, kolkata),
		Vessel:       "MV Thalassa",
		Voyage:       "012W",
		Origin:       "Nhava Sheva",
		Destination:  "Jebel Ali",
	}
	identity := dispatch.Identity{
		Name:      "mumbai",
		FromName:  "Harborline Mumbai",
		FromEmail: "ops.mumbai@harborline.test",
	}

	content, err := RenderCutoffReminder(rec, identity)
	if err != nil {
		t.Fatalf("RenderCutoffReminder: %v", err)
	}

	wantSubject := "!! Reminder for Pending SI !! Booking No: HBL-4471 // Vessel: MV Thalassa // Customer Name: Acme Exports"
	if content.Subject != wantSubject {
		t.Errorf("subject = %q, want %q", content.Subject, wantSubject)
	}

	for _, body := range []string{content.Plain, content.HTML} {
		for _, want := range []string{"HBL-4471", "12/03/2026 12:00", "MV Thalassa", "Harborline Mumbai"} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q:\n%s", want, body)
			}
		}
	}
	// Unset optional fields render as the placeholder instead of blanks.
	if !strings.Contains(content.Plain, "N/A") {
		t.Errorf("plain body should show N/A for missing volume:\n%s", content.Plain)
	}
}
