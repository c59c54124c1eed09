package booking

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"
)

//go:embed schema.sql
var schema string

// Repository reads booking rows from PostgreSQL. It is the production
// deadline record source; the notifier never writes booking data.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema applies the bookings schema. Safe to run on every start.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply bookings schema: %w", err)
	}
	return nil
}

const rowColumns = `
	id, booking_no, customer_name, si_cutoff, customer_emails,
	salesperson_emails, salesperson_name, location, volume, vessel, voyage,
	pol, fpod, COALESCE(etd, 'epoch'::timestamptz), reference_no,
	container_no, line, equipment_type, si_filed, bl_released
`

// FetchCutoffRows returns every booking that still has an unfiled SI and a
// recorded cutoff. Normalization and window classification happen per tick
// in the caller.
func (r *Repository) FetchCutoffRows(ctx context.Context) ([]Row, error) {
	query := `SELECT ` + rowColumns + `
		FROM bookings
		WHERE NOT si_filed AND si_cutoff <> ''
		ORDER BY created_at`
	return r.queryRows(ctx, query)
}

// FetchAllRows returns every booking, for the salesperson report.
func (r *Repository) FetchAllRows(ctx context.Context) ([]Row, error) {
	query := `SELECT ` + rowColumns + ` FROM bookings ORDER BY created_at`
	return r.queryRows(ctx, query)
}

// FetchVesselWatchRows returns bookings for customers on the vessel-update
// watchlist that carry a reference number.
func (r *Repository) FetchVesselWatchRows(ctx context.Context) ([]Row, error) {
	query := `SELECT ` + rowColumns + `
		FROM bookings
		WHERE vessel_watch AND reference_no <> ''
		ORDER BY etd NULLS LAST`
	return r.queryRows(ctx, query)
}

func (r *Repository) queryRows(ctx context.Context, query string) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var b Row
		var etd time.Time
		if err := rows.Scan(
			&b.ID, &b.BookingNo, &b.CustomerName, &b.CutoffRaw, &b.CustomerEmails,
			&b.SalesEmails, &b.SalesName, &b.LocationTag, &b.Volume, &b.Vessel, &b.Voyage,
			&b.Origin, &b.Destination, &etd, &b.ReferenceNo,
			&b.ContainerNo, &b.Line, &b.EquipmentType, &b.SIFiled, &b.BLReleased,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		if !etd.IsZero() && etd.Unix() != 0 {
			b.ETD = etd
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
