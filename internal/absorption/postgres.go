package absorption

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/perpintel/engine/internal/enums"
)

// Postgres implements Store against the absorption_events table,
// enforcing the unique partial index on
// (symbol, timeframe, cvd_direction) WHERE resolved_at IS NULL (§6.4).
type Postgres struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgres builds a Postgres-backed absorption Store.
func NewPostgres(db *sqlx.DB, timeout time.Duration) *Postgres {
	return &Postgres{db: db, timeout: timeout}
}

type eventRow struct {
	ID                    string         `db:"id"`
	Symbol                string         `db:"symbol"`
	Timeframe             string         `db:"timeframe"`
	CVDDirection          string         `db:"cvd_direction"`
	Status                string         `db:"status"`
	Location              sql.NullString `db:"location"`
	LocationPrice         sql.NullFloat64 `db:"location_price"`
	DetectedAtMs          int64          `db:"detected_at_ms"`
	DetectionPrice        float64        `db:"detection_price"`
	CandlesSinceDetection int            `db:"candles_since_detection"`
	ExtensionsUsed        int            `db:"extensions_used"`
	Resolution            sql.NullString `db:"resolution"`
	BiasImplication       sql.NullString `db:"bias_implication"`
	ConfidenceBonus       sql.NullFloat64 `db:"confidence_bonus"`
	ResolvedAtMs          sql.NullInt64  `db:"resolved_at_ms"`
}

func (r eventRow) toEvent() Event {
	ev := Event{
		ID:                    r.ID,
		Symbol:                r.Symbol,
		Timeframe:             r.Timeframe,
		CVDDirection:          r.CVDDirection,
		Status:                enums.AbsorptionStatus(r.Status),
		Location:              r.Location.String,
		LocationPrice:         r.LocationPrice.Float64,
		DetectedAtMs:          r.DetectedAtMs,
		DetectionPrice:        r.DetectionPrice,
		CandlesSinceDetection: r.CandlesSinceDetection,
		ExtensionsUsed:        r.ExtensionsUsed,
		Resolution:            enums.AbsorptionResolution(r.Resolution.String),
		BiasImplication:       enums.Bias(r.BiasImplication.String),
		ConfidenceBonus:       r.ConfidenceBonus.Float64,
	}
	if r.ResolvedAtMs.Valid {
		v := r.ResolvedAtMs.Int64
		ev.ResolvedAtMs = &v
	}
	return ev
}

// Open returns the currently unresolved event for the triple, if any.
func (p *Postgres) Open(ctx context.Context, symbol, timeframe, direction string) (*Event, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const query = `
		SELECT id, symbol, timeframe, cvd_direction, status, location, location_price,
		       detected_at_ms, detection_price, candles_since_detection, extensions_used,
		       resolution, bias_implication, confidence_bonus, resolved_at_ms
		FROM absorption_events
		WHERE symbol = $1 AND timeframe = $2 AND cvd_direction = $3 AND resolved_at_ms IS NULL`

	var row eventRow
	err := p.db.GetContext(ctx, &row, query, symbol, timeframe, direction)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load open absorption event: %w", err)
	}
	ev := row.toEvent()
	return &ev, nil
}

// Insert adds a new DETECTING event, relying on the unique partial
// index to make a duplicate insert a benign no-op (§5).
func (p *Postgres) Insert(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const query = `
		INSERT INTO absorption_events
		(symbol, timeframe, cvd_direction, status, location, location_price,
		 detected_at_ms, detection_price, candles_since_detection, extensions_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0)
		ON CONFLICT (symbol, timeframe, cvd_direction) WHERE resolved_at_ms IS NULL DO NOTHING`

	_, err := p.db.ExecContext(ctx, query, ev.Symbol, ev.Timeframe, ev.CVDDirection, ev.Status,
		ev.Location, ev.LocationPrice, ev.DetectedAtMs, ev.DetectionPrice)
	if err != nil {
		return fmt.Errorf("insert absorption event: %w", err)
	}
	return nil
}

// Update persists a resolution/expiry/invalidation transition.
func (p *Postgres) Update(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const query = `
		UPDATE absorption_events SET
			status = $2, candles_since_detection = $3, extensions_used = $4,
			resolution = $5, bias_implication = $6, confidence_bonus = $7,
			resolved_at_ms = $8
		WHERE id = $1`

	var resolvedAt sql.NullInt64
	if ev.ResolvedAtMs != nil {
		resolvedAt = sql.NullInt64{Int64: *ev.ResolvedAtMs, Valid: true}
	}

	_, err := p.db.ExecContext(ctx, query, ev.ID, ev.Status, ev.CandlesSinceDetection, ev.ExtensionsUsed,
		nullableString(string(ev.Resolution)), nullableString(string(ev.BiasImplication)), ev.ConfidenceBonus, resolvedAt)
	if err != nil {
		return fmt.Errorf("update absorption event: %w", err)
	}
	return nil
}

// Unresolved returns every event still in DETECTING status.
func (p *Postgres) Unresolved(ctx context.Context) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const query = `
		SELECT id, symbol, timeframe, cvd_direction, status, location, location_price,
		       detected_at_ms, detection_price, candles_since_detection, extensions_used,
		       resolution, bias_implication, confidence_bonus, resolved_at_ms
		FROM absorption_events
		WHERE resolved_at_ms IS NULL
		ORDER BY detected_at_ms ASC`

	var rows []eventRow
	if err := p.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query unresolved absorption events: %w", err)
	}

	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEvent())
	}
	return out, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
