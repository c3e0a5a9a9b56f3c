package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"telegram-customer-calendar/internal/models"
)

const (
	productID       = "-//telegram-customer-calendar//TR"
	defaultDuration = 30 * time.Minute
)

// ExportICS renders appointments as an iCalendar document. Appointments whose
// date or time cannot be parsed are skipped.
func ExportICS(appts []models.Appointment, loc *time.Location, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, a := range appts {
		start, err := Instant(a.Date, a.Time, loc)
		if err != nil {
			continue
		}
		ev := cal.AddEvent(a.ID)
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(defaultDuration))
		ev.SetSummary(a.Customer)
		if a.Content != "" {
			ev.SetDescription(a.Content)
		}
		if a.Completed {
			ev.SetProperty(ical.ComponentPropertyStatus, "COMPLETED")
		}
	}
	return cal.Serialize()
}
