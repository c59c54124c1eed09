package booking

import (
	"fmt"
	"strings"
	"time"
)

// Row is a booking as fetched from the store, before any normalization.
// Cutoff and recipient fields arrive as loosely-formatted text.
type Row struct {
	ID             string
	BookingNo      string
	CustomerName   string
	CutoffRaw      string // "dd/mm-HHMM HRS"
	CustomerEmails string // comma-separated
	SalesEmails    string // comma-separated
	SalesName      string
	LocationTag    string
	Volume         string
	Vessel         string
	Voyage         string
	Origin         string // port of loading
	Destination    string // final port of discharge
	ETD            time.Time
	ReferenceNo    string
	ContainerNo    string
	Line           string
	EquipmentType  string
	SIFiled        bool
	BLReleased     bool
}

// Record is a validated deadline record, rebuilt fresh on every tick and
// discarded afterwards. Nothing about it is persisted.
type Record struct {
	ID           string
	BookingNo    string
	CustomerName string
	Deadline     time.Time
	Primary      []string // customer recipients
	Copy         []string // salesperson observers
	LocationTag  string
	Volume       string
	Vessel       string
	Voyage       string
	Origin       string
	Destination  string
}

// ValidationError explains why a row was dropped from a tick.
type ValidationError struct {
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking %s: %s", e.ID, e.Reason)
}

// Normalize turns a raw row into a validated Record. Rows with a missing or
// unparsable cutoff, or without both recipient groups, are rejected; the
// caller logs and drops them without retrying.
func Normalize(row Row, now time.Time, loc *time.Location) (Record, error) {
	if row.CutoffRaw == "" {
		return Record{}, &ValidationError{ID: row.ID, Reason: "missing deadline"}
	}

	deadline, err := ParseCutoff(row.CutoffRaw, now, loc)
	if err != nil {
		return Record{}, &ValidationError{ID: row.ID, Reason: fmt.Sprintf("unparsable deadline %q: %v", row.CutoffRaw, err)}
	}

	primary := SplitEmails(row.CustomerEmails)
	if len(primary) == 0 {
		return Record{}, &ValidationError{ID: row.ID, Reason: "no customer recipients"}
	}
	copyTo := SplitEmails(row.SalesEmails)
	if len(copyTo) == 0 {
		return Record{}, &ValidationError{ID: row.ID, Reason: "no salesperson recipients"}
	}

	return Record{
		ID:           row.ID,
		BookingNo:    row.BookingNo,
		CustomerName: row.CustomerName,
		Deadline:     deadline,
		Primary:      primary,
		Copy:         copyTo,
		LocationTag:  row.LocationTag,
		Volume:       row.Volume,
		Vessel:       row.Vessel,
		Voyage:       row.Voyage,
		Origin:       row.Origin,
		Destination:  row.Destination,
	}, nil
}

// ParseCutoff interprets the booking store's "dd/mm-HHMM HRS" cutoff
// pattern in the given civil timezone. The year is taken from now, matching
// how the upstream system records cutoffs.
func ParseCutoff(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("expected dd/mm-HHMM HRS, got %q", raw)
	}

	datePart := strings.TrimSpace(parts[0])
	timePart := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[1]), "HRS"))

	dm := strings.SplitN(datePart, "/", 2)
	if len(dm) != 2 {
		return time.Time{}, fmt.Errorf("bad date part %q", datePart)
	}
	if len(timePart) != 4 {
		return time.Time{}, fmt.Errorf("bad time part %q", timePart)
	}

	stamp := fmt.Sprintf("%s/%s/%d %s:%s", dm[0], dm[1], now.Year(), timePart[:2], timePart[2:])
	t, err := time.ParseInLocation("02/01/2006 15:04", stamp, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// SplitEmails coerces a comma-separated address list into a clean slice.
func SplitEmails(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OrNA substitutes "N/A" for optional fields that arrived empty.
func OrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
