package reminder

import (
	"context"
	"time"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
	"github.com/harborline/freight-notifier/pkg/observability"
)

// Source supplies the current deadline-bearing booking rows. The engine
// pulls a fresh snapshot on every tick and keeps nothing between ticks.
type Source interface {
	FetchCutoffRows(ctx context.Context) ([]booking.Row, error)
}

// Dispatcher is the delivery failover chain as the engine sees it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (usedTransport string, detail string, err error)
}

// Firing is one (record, window) pair the tick decided to send.
type Firing struct {
	Record    booking.Record
	Window    Window
	Transport string
	Err       error
}

// TickReport summarizes one engine tick for logs and tests.
type TickReport struct {
	Evaluated int
	Dropped   int
	Skipped   int // deadline already passed or no window matched
	Fired     []Firing
}

// Engine scans the deadline snapshot once per scheduler tick and sends a
// reminder for every record that currently sits inside a reminder window.
// There is no sent-ledger: a record is re-evaluated from scratch each tick,
// so firing is best-effort and duplicates across ticks are tolerated.
type Engine struct {
	source     Source
	chain      Dispatcher
	identities *dispatch.Directory
	windows    []Window
	loc        *time.Location
	logger     *observability.Logger
}

func NewEngine(source Source, chain Dispatcher, identities *dispatch.Directory, windows []Window, loc *time.Location, logger *observability.Logger) *Engine {
	return &Engine{
		source:     source,
		chain:      chain,
		identities: identities,
		windows:    windows,
		loc:        loc,
		logger:     logger,
	}
}

// Run satisfies the scheduler job contract.
func (e *Engine) Run(ctx context.Context) error {
	report := e.RunTick(ctx, time.Now().In(e.loc))
	e.logger.Info("reminder tick finished",
		"evaluated", report.Evaluated, "dropped", report.Dropped,
		"skipped", report.Skipped, "fired", len(report.Fired))
	return nil
}

// RunTick evaluates every current record against the reminder windows at
// the given instant. Invalid rows are dropped and logged; a dispatch
// failure is logged and the tick moves on to the next record.
func (e *Engine) RunTick(ctx context.Context, now time.Time) TickReport {
	var report TickReport

	rows, err := e.source.FetchCutoffRows(ctx)
	if err != nil {
		e.logger.Error("failed to fetch deadline records", "error", err)
		return report
	}

	for _, row := range rows {
		report.Evaluated++

		rec, err := booking.Normalize(row, now, e.loc)
		if err != nil {
			report.Dropped++
			recordsDropped.Inc()
			e.logger.Warn("dropping invalid deadline record", "booking", row.ID, "error", err)
			continue
		}

		hoursRemaining := rec.Deadline.Sub(now).Hours()
		if hoursRemaining < 0 {
			// Deadline already passed; a late reminder is never sent.
			report.Skipped++
			continue
		}

		window, ok := Classify(hoursRemaining, e.windows)
		if !ok {
			report.Skipped++
			continue
		}

		firing := Firing{Record: rec, Window: window}
		firing.Transport, firing.Err = e.dispatchReminder(ctx, rec, window)
		report.Fired = append(report.Fired, firing)

		if firing.Err != nil {
			remindersFired.WithLabelValues(window.Name, "failure").Inc()
			e.logger.Error("reminder dispatch failed",
				"booking", rec.BookingNo, "window", window.Name, "error", firing.Err)
			continue
		}
		remindersFired.WithLabelValues(window.Name, "success").Inc()
		e.logger.Info("reminder sent",
			"booking", rec.BookingNo, "window", window.Name,
			"transport", firing.Transport, "hours_remaining", hoursRemaining)
	}

	return report
}

func (e *Engine) dispatchReminder(ctx context.Context, rec booking.Record, window Window) (string, error) {
	identity := e.identities.SelectByLocation(rec.LocationTag)

	content, err := RenderCutoffReminder(rec, identity)
	if err != nil {
		return "", err
	}

	used, _, err := e.chain.Dispatch(ctx, dispatch.Request{
		Identity:  identity,
		To:        rec.Primary,
		Cc:        rec.Copy,
		Subject:   content.Subject,
		PlainBody: content.Plain,
		HTMLBody:  content.HTML,
	})
	return used, err
}
