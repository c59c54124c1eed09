package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
	"github.com/harborline/freight-notifier/pkg/observability"
)

// PendingSIJob mails the documentation team a daily table of bookings whose
// SI cutoff falls inside the 24 hours after the reference instant (the
// configured local hour of the current day).
type PendingSIJob struct {
	source   Source
	chain    Dispatcher
	identity dispatch.Identity
	to       []string
	cc       []string
	loc      *time.Location
	logger   *observability.Logger
	gate     dailyGate
}

func NewPendingSIJob(source Source, chain Dispatcher, identity dispatch.Identity, to, cc []string, referenceHour int, loc *time.Location, logger *observability.Logger) *PendingSIJob {
	return &PendingSIJob{
		source:   source,
		chain:    chain,
		identity: identity,
		to:       to,
		cc:       cc,
		loc:      loc,
		logger:   logger,
		gate:     dailyGate{hour: referenceHour},
	}
}

func (j *PendingSIJob) Name() string { return "pending-si-report" }

func (j *PendingSIJob) Run(ctx context.Context) error {
	return j.RunAt(ctx, time.Now().In(j.loc))
}

func (j *PendingSIJob) RunAt(ctx context.Context, now time.Time) error {
	if !j.gate.due(now) {
		return nil
	}
	if len(j.to) == 0 {
		return nil
	}

	rows, err := j.source.FetchCutoffRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending SI bookings: %w", err)
	}

	reference := time.Date(now.Year(), now.Month(), now.Day(), j.gate.hour, 0, 0, 0, j.loc)
	due := j.selectDue(rows, reference, now)
	if len(due) == 0 {
		j.logger.Info("no SI cutoffs inside the lookahead, skipping report", "reference", reference.Format(time.RFC3339))
		j.gate.markSent(now)
		return nil
	}

	table := Table{
		Title: fmt.Sprintf("Pending SI — cutoffs before %s", reference.Add(24*time.Hour).Format("02/01/2006 15:04")),
		Intro: fmt.Sprintf("%d booking(s) need shipping instructions filed within the next 24 hours.", len(due)),
		Columns: []string{
			"Booking No", "Customer", "SI Cutoff", "Vessel", "Voyage", "POL", "FPOD", "ETD",
		},
		SenderName:  j.identity.FromName,
		SenderEmail: j.identity.FromEmail,
	}
	for _, row := range due {
		table.Rows = append(table.Rows, []string{
			row.BookingNo,
			booking.OrNA(row.CustomerName),
			row.CutoffRaw,
			booking.OrNA(row.Vessel),
			booking.OrNA(row.Voyage),
			booking.OrNA(row.Origin),
			booking.OrNA(row.Destination),
			formatETD(row.ETD),
		})
	}

	plain, html, err := RenderTable(table)
	if err != nil {
		return err
	}

	used, _, err := j.chain.Dispatch(ctx, dispatch.Request{
		Identity:  j.identity,
		To:        j.to,
		Cc:        j.cc,
		Subject:   fmt.Sprintf("Pending SI Report — %s", now.Format("02/01/2006")),
		PlainBody: plain,
		HTMLBody:  html,
	})
	if err != nil {
		return fmt.Errorf("failed to send pending SI report: %w", err)
	}

	j.gate.markSent(now)
	j.logger.Info("pending SI report sent", "bookings", len(due), "transport", used)
	return nil
}

// selectDue keeps the rows whose cutoff parses and lands inside
// (reference, reference+24h], sorted by ETD with unknown ETDs last.
func (j *PendingSIJob) selectDue(rows []booking.Row, reference, now time.Time) []booking.Row {
	horizon := reference.Add(24 * time.Hour)

	var due []booking.Row
	for _, row := range rows {
		deadline, err := booking.ParseCutoff(row.CutoffRaw, now, j.loc)
		if err != nil {
			j.logger.Warn("skipping booking with unparsable cutoff", "booking", row.ID, "cutoff", row.CutoffRaw)
			continue
		}
		if deadline.After(reference) && !deadline.After(horizon) {
			due = append(due, row)
		}
	}

	sort.SliceStable(due, func(a, b int) bool {
		ea, eb := due[a].ETD, due[b].ETD
		switch {
		case ea.IsZero():
			return false
		case eb.IsZero():
			return true
		default:
			return ea.Before(eb)
		}
	})
	return due
}
