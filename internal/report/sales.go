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

// SalesReportJob mails each salesperson a daily summary of their bookings
// with pending-SI and pending-BL flags. Bookings without salesperson
// addresses have nobody to report to and are skipped.
type SalesReportJob struct {
	source   Source
	chain    Dispatcher
	identity dispatch.Identity
	cc       []string
	loc      *time.Location
	logger   *observability.Logger
	gate     dailyGate
}

func NewSalesReportJob(source Source, chain Dispatcher, identity dispatch.Identity, cc []string, referenceHour int, loc *time.Location, logger *observability.Logger) *SalesReportJob {
	return &SalesReportJob{
		source:   source,
		chain:    chain,
		identity: identity,
		cc:       cc,
		loc:      loc,
		logger:   logger,
		gate:     dailyGate{hour: referenceHour},
	}
}

func (j *SalesReportJob) Name() string { return "sales-booking-report" }

func (j *SalesReportJob) Run(ctx context.Context) error {
	return j.RunAt(ctx, time.Now().In(j.loc))
}

func (j *SalesReportJob) RunAt(ctx context.Context, now time.Time) error {
	if !j.gate.due(now) {
		return nil
	}

	rows, err := j.source.FetchAllRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch bookings for sales report: %w", err)
	}

	groups := groupBySalesperson(rows)
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sent, failed int
	for _, key := range keys {
		group := groups[key]
		if err := j.sendOne(ctx, group, now); err != nil {
			failed++
			j.logger.Error("failed to send sales report", "salesperson", group.name, "error", err)
			continue
		}
		sent++
	}

	j.gate.markSent(now)
	j.logger.Info("sales booking reports finished", "sent", sent, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d sales reports failed", failed, sent+failed)
	}
	return nil
}

type salesGroup struct {
	name string
	to   []string
	rows []booking.Row
}

func groupBySalesperson(rows []booking.Row) map[string]*salesGroup {
	groups := make(map[string]*salesGroup)
	for _, row := range rows {
		to := booking.SplitEmails(row.SalesEmails)
		if len(to) == 0 {
			continue
		}
		key := row.SalesEmails
		g, ok := groups[key]
		if !ok {
			g = &salesGroup{name: booking.OrNA(row.SalesName), to: to}
			groups[key] = g
		}
		g.rows = append(g.rows, row)
	}
	return groups
}

func (j *SalesReportJob) sendOne(ctx context.Context, group *salesGroup, now time.Time) error {
	table := Table{
		Title: fmt.Sprintf("Daily Booking Summary for %s", group.name),
		Intro: fmt.Sprintf("You have %d booking(s) on the notifier's books.", len(group.rows)),
		Columns: []string{
			"Booking No", "Customer", "Vessel", "Voyage", "ETD", "Pending SI", "Pending BL",
		},
		SenderName:  j.identity.FromName,
		SenderEmail: j.identity.FromEmail,
	}
	for _, row := range group.rows {
		table.Rows = append(table.Rows, []string{
			row.BookingNo,
			booking.OrNA(row.CustomerName),
			booking.OrNA(row.Vessel),
			booking.OrNA(row.Voyage),
			formatETD(row.ETD),
			yesNo(!row.SIFiled),
			yesNo(!row.BLReleased),
		})
	}

	plain, html, err := RenderTable(table)
	if err != nil {
		return err
	}

	_, _, err = j.chain.Dispatch(ctx, dispatch.Request{
		Identity:  j.identity,
		To:        group.to,
		Cc:        j.cc,
		Subject:   fmt.Sprintf("Daily Booking Summary — %s", now.Format("02/01/2006")),
		PlainBody: plain,
		HTMLBody:  html,
	})
	return err
}
