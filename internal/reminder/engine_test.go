package reminder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
	"github.com/harborline/freight-notifier/pkg/observability"
)

var kolkata = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
	return loc
}()

type fakeSource struct {
	rows []booking.Row
	err  error
}

func (s *fakeSource) FetchCutoffRows(ctx context.Context) ([]booking.Row, error) {
	return s.rows, s.err
}

type fakeDispatcher struct {
	requests []dispatch.Request
	err      error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, req dispatch.Request) (string, string, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return "", d.err.Error(), d.err
	}
	return "smtp-primary", "smtp: accepted", nil
}

func testEngine(source Source, chain Dispatcher) *Engine {
	identities := dispatch.NewDirectory([]dispatch.Identity{
		{Name: "mumbai", FromName: "Harborline Mumbai", FromEmail: "ops.mumbai@harborline.test", MatchTags: []string{"mumbai"}},
		{Name: "mundra", FromName: "Harborline Mundra", FromEmail: "ops.mundra@harborline.test", MatchTags: []string{"mundra", "gujarat"}},
	})
	logger := observability.NewLogger("reminder-test", "test", "error")
	return NewEngine(source, chain, identities, testWindows, kolkata, logger)
}

// Tick instant for every test; cutoffs below are spelled relative to it.
var tickNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, kolkata)

func row(id, cutoff string) booking.Row {
	return booking.Row{
		ID:             id,
		BookingNo:      "HBL-" + id,
		CustomerName:   "Acme Exports",
		CutoffRaw:      cutoff,
		CustomerEmails: "buyer@acme.test",
		SalesEmails:    "sales@harborline.test",
		SalesName:      "R. Iyer",
		LocationTag:    "mumbai",
		Vessel:         "MV Thalassa",
		Voyage:         "012W",
	}
}

func firedNames(report TickReport) []string {
	var names []string
	for _, f := range report.Fired {
		names = append(names, fmt.Sprintf("%s/%s", f.Record.ID, f.Window.Name))
	}
	return names
}

func TestRunTickWindowBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		cutoff string // relative to tickNow = 10/03 12:00
		fired  string // window name, "" when the record must not fire
	}{
		{"exactly 48h", "12/03-1200 HRS", "48h"},
		{"48h lower bound 47.5h", "12/03-1130 HRS", "48h"},
		{"48h upper bound 48.5h", "12/03-1230 HRS", "48h"},
		{"exactly 24h", "11/03-1200 HRS", "24h"},
		{"just outside upper bound", "12/03-1231 HRS", ""},
		{"between windows", "12/03-0000 HRS", ""},
		{"deadline already passed", "09/03-1200 HRS", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &fakeDispatcher{}
			engine := testEngine(&fakeSource{rows: []booking.Row{row("bk-1", tt.cutoff)}}, chain)

			report := engine.RunTick(context.Background(), tickNow)

			if tt.fired == "" {
				if len(report.Fired) != 0 {
					t.Fatalf("expected no firing, got %v", firedNames(report))
				}
				if report.Skipped != 1 {
					t.Errorf("Skipped = %d, want 1", report.Skipped)
				}
				if len(chain.requests) != 0 {
					t.Errorf("dispatcher called %d times for a non-firing record", len(chain.requests))
				}
				return
			}
			if len(report.Fired) != 1 {
				t.Fatalf("Fired = %v, want one firing in window %q", firedNames(report), tt.fired)
			}
			if got := report.Fired[0].Window.Name; got != tt.fired {
				t.Errorf("fired window = %q, want %q", got, tt.fired)
			}
			if report.Fired[0].Err != nil {
				t.Errorf("unexpected dispatch error: %v", report.Fired[0].Err)
			}
		})
	}
}

func TestRunTickExact48hFiresOnlyFirstWindow(t *testing.T) {
	chain := &fakeDispatcher{}
	engine := testEngine(&fakeSource{rows: []booking.Row{row("bk-1", "12/03-1200 HRS")}}, chain)

	report := engine.RunTick(context.Background(), tickNow)

	if got := firedNames(report); len(got) != 1 || got[0] != "bk-1/48h" {
		t.Fatalf("fired = %v, want [bk-1/48h]", got)
	}
}

func TestRunTickDropsInvalidRows(t *testing.T) {
	missingSales := row("bk-2", "12/03-1200 HRS")
	missingSales.SalesEmails = ""
	unparsable := row("bk-3", "sometime next week")

	chain := &fakeDispatcher{}
	engine := testEngine(&fakeSource{rows: []booking.Row{
		row("bk-1", "12/03-1200 HRS"),
		missingSales,
		unparsable,
	}}, chain)

	report := engine.RunTick(context.Background(), tickNow)

	if report.Evaluated != 3 || report.Dropped != 2 {
		t.Errorf("evaluated/dropped = %d/%d, want 3/2", report.Evaluated, report.Dropped)
	}
	if got := firedNames(report); len(got) != 1 || got[0] != "bk-1/48h" {
		t.Errorf("fired = %v, want only the valid record", got)
	}
	if len(chain.requests) != 1 {
		t.Errorf("dispatcher called %d times, want 1", len(chain.requests))
	}
}

func TestRunTickDispatchFailureDoesNotAbortTick(t *testing.T) {
	chain := &fakeDispatcher{err: errors.New("all providers failed")}
	engine := testEngine(&fakeSource{rows: []booking.Row{
		row("bk-1", "12/03-1200 HRS"),
		row("bk-2", "11/03-1200 HRS"),
	}}, chain)

	report := engine.RunTick(context.Background(), tickNow)

	if len(report.Fired) != 2 {
		t.Fatalf("fired = %v, want both records attempted", firedNames(report))
	}
	for _, f := range report.Fired {
		if f.Err == nil {
			t.Errorf("firing %s/%s should carry the dispatch error", f.Record.ID, f.Window.Name)
		}
	}
	if len(chain.requests) != 2 {
		t.Errorf("dispatcher called %d times, want 2", len(chain.requests))
	}
}

func TestRunTickIsRepeatableWithinSameInstant(t *testing.T) {
	source := &fakeSource{rows: []booking.Row{
		row("bk-1", "12/03-1200 HRS"),
		row("bk-2", "11/03-1200 HRS"),
	}}
	engine := testEngine(source, &fakeDispatcher{})

	first := firedNames(engine.RunTick(context.Background(), tickNow))
	second := firedNames(engine.RunTick(context.Background(), tickNow))

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("fired sets = %v then %v, want two firings each", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("tick %d: fired %q then %q; no sent-ledger means identical ticks fire identically", i, first[i], second[i])
		}
	}
}

func TestRunTickFiresAgainOnNextTick(t *testing.T) {
	// Window 47.5..48.5 is an hour wide; with a half-hour cadence the same
	// record sits inside it on two consecutive ticks and fires both times.
	source := &fakeSource{rows: []booking.Row{row("bk-1", "12/03-1200 HRS")}}
	chain := &fakeDispatcher{}
	engine := testEngine(source, chain)

	// 48.0h remaining, then 47.5h remaining.
	engine.RunTick(context.Background(), tickNow)
	engine.RunTick(context.Background(), tickNow.Add(30*time.Minute))

	if len(chain.requests) != 2 {
		t.Fatalf("dispatcher called %d times across two ticks, want 2", len(chain.requests))
	}
}

func TestRunTickRequestUsesSelectedIdentity(t *testing.T) {
	r := row("bk-1", "12/03-1200 HRS")
	r.LocationTag = "GUJARAT-MUNDRA"

	chain := &fakeDispatcher{}
	engine := testEngine(&fakeSource{rows: []booking.Row{r}}, chain)
	engine.RunTick(context.Background(), tickNow)

	if len(chain.requests) != 1 {
		t.Fatalf("dispatcher called %d times, want 1", len(chain.requests))
	}
	req := chain.requests[0]
	if req.Identity.Name != "mundra" {
		t.Errorf("identity = %q, want location match %q", req.Identity.Name, "mundra")
	}
	if len(req.To) != 1 || req.To[0] != "buyer@acme.test" {
		t.Errorf("To = %v, want the customer recipients", req.To)
	}
	if len(req.Cc) != 1 || req.Cc[0] != "sales@harborline.test" {
		t.Errorf("Cc = %v, want the sales recipients", req.Cc)
	}
	if req.Subject == "" || req.HTMLBody == "" || req.PlainBody == "" {
		t.Error("request must carry subject, plain and HTML bodies")
	}
}

func TestRunTickFetchErrorReturnsEmptyReport(t *testing.T) {
	chain := &fakeDispatcher{}
	engine := testEngine(&fakeSource{err: errors.New("db down")}, chain)

	report := engine.RunTick(context.Background(), tickNow)

	if report.Evaluated != 0 || len(report.Fired) != 0 {
		t.Errorf("report = %+v, want empty on fetch error", report)
	}
	if len(chain.requests) != 0 {
		t.Errorf("dispatcher called %d times on fetch error", len(chain.requests))
	}
}
