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

// VesselUpdateJob mails watchlisted customers a daily schedule of their
// shipments. Only bookings carrying a reference number are reported, so a
// customer can reconcile the update against their own records.
type VesselUpdateJob struct {
	source     Source
	chain      Dispatcher
	identities *dispatch.Directory
	loc        *time.Location
	logger     *observability.Logger
	gate       dailyGate
}

func NewVesselUpdateJob(source Source, chain Dispatcher, identities *dispatch.Directory, referenceHour int, loc *time.Location, logger *observability.Logger) *VesselUpdateJob {
	return &VesselUpdateJob{
		source:     source,
		chain:      chain,
		identities: identities,
		loc:        loc,
		logger:     logger,
		gate:       dailyGate{hour: referenceHour},
	}
}

func (j *VesselUpdateJob) Name() string { return "vessel-update" }

func (j *VesselUpdateJob) Run(ctx context.Context) error {
	return j.RunAt(ctx, time.Now().In(j.loc))
}

func (j *VesselUpdateJob) RunAt(ctx context.Context, now time.Time) error {
	if !j.gate.due(now) {
		return nil
	}

	rows, err := j.source.FetchVesselWatchRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch vessel watch bookings: %w", err)
	}

	groups := groupByCustomer(rows)
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
			j.logger.Error("failed to send vessel update", "customer", group.name, "error", err)
			continue
		}
		sent++
	}

	j.gate.markSent(now)
	j.logger.Info("vessel updates finished", "sent", sent, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d vessel updates failed", failed, sent+failed)
	}
	return nil
}

type customerGroup struct {
	name string
	to   []string
	cc   []string
	rows []booking.Row
}

func groupByCustomer(rows []booking.Row) map[string]*customerGroup {
	groups := make(map[string]*customerGroup)
	for _, row := range rows {
		to := booking.SplitEmails(row.CustomerEmails)
		if len(to) == 0 {
			continue
		}
		key := row.CustomerEmails
		g, ok := groups[key]
		if !ok {
			g = &customerGroup{name: booking.OrNA(row.CustomerName), to: to}
			groups[key] = g
		}
		g.rows = append(g.rows, row)
		for _, cc := range booking.SplitEmails(row.SalesEmails) {
			if !contains(g.cc, cc) {
				g.cc = append(g.cc, cc)
			}
		}
	}
	return groups
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (j *VesselUpdateJob) sendOne(ctx context.Context, group *customerGroup, now time.Time) error {
	identity := j.identities.SelectByLocation(group.rows[0].LocationTag)

	table := Table{
		Title: fmt.Sprintf("Vessel Schedule Update for %s", group.name),
		Intro: "Current vessel details for your shipments on our watchlist.",
		Columns: []string{
			"Reference No", "Booking No", "Vessel", "Voyage", "ETD", "Container", "Line",
		},
		SenderName:  identity.FromName,
		SenderEmail: identity.FromEmail,
	}
	for _, row := range group.rows {
		table.Rows = append(table.Rows, []string{
			row.ReferenceNo,
			row.BookingNo,
			booking.OrNA(row.Vessel),
			booking.OrNA(row.Voyage),
			formatETD(row.ETD),
			booking.OrNA(row.ContainerNo),
			booking.OrNA(row.Line),
		})
	}

	plain, html, err := RenderTable(table)
	if err != nil {
		return err
	}

	_, _, err = j.chain.Dispatch(ctx, dispatch.Request{
		Identity:  identity,
		To:        group.to,
		Cc:        group.cc,
		Subject:   fmt.Sprintf("Vessel Schedule Update — %s", now.Format("02/01/2006")),
		PlainBody: plain,
		HTMLBody:  html,
	})
	return err
}
