package report

import (
	"context"
	"time"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
)

// Source reads booking rows for the report jobs.
type Source interface {
	FetchCutoffRows(ctx context.Context) ([]booking.Row, error)
	FetchAllRows(ctx context.Context) ([]booking.Row, error)
	FetchVesselWatchRows(ctx context.Context) ([]booking.Row, error)
}

// Dispatcher is the delivery failover chain as the report jobs see it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (usedTransport string, detail string, err error)
}

// dailyGate sends a report at most once per civil day, at the configured
// local hour. The scheduler ticks more often than daily, so each job asks
// the gate whether this tick is its sending slot.
type dailyGate struct {
	hour     int
	lastSent string // "2006-01-02" of the last send
}

func (g *dailyGate) due(now time.Time) bool {
	if now.Hour() != g.hour {
		return false
	}
	return g.lastSent != now.Format("2006-01-02")
}

func (g *dailyGate) markSent(now time.Time) {
	g.lastSent = now.Format("2006-01-02")
}

func formatETD(etd time.Time) string {
	if etd.IsZero() {
		return "N/A"
	}
	return etd.Format("02/01/2006")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
