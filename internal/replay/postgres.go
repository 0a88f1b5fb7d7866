package replay

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/perpintel/engine/internal/state"
)

// Postgres implements Store against the replay_states table, unique on
// (batch_id, as_of_ms) per §6.4.
type Postgres struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgres builds a Postgres-backed replay Store.
func NewPostgres(db *sqlx.DB, timeout time.Duration) *Postgres {
	return &Postgres{db: db, timeout: timeout}
}

type replayRow struct {
	Symbol        string `db:"symbol"`
	ConfigVersion int    `db:"config_version"`
}

// Exists answers the (symbol, asOfTimestamp, configVersion) dedup check.
func (p *Postgres) Exists(ctx context.Context, symbol string, asOfMs int64, configVersion int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const query = `
		SELECT symbol, config_version FROM replay_states
		WHERE symbol = $1 AND as_of_ms = $2 AND config_version = $3 AND failed = false
		LIMIT 1`

	var row replayRow
	err := p.db.GetContext(ctx, &row, query, symbol, asOfMs, configVersion)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check replay state dedup: %w", err)
	}
	return true, nil
}

// Save upserts one replay_states row, keyed on (batch_id, as_of_ms).
func (p *Postgres) Save(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("marshal market state: %w", err)
	}

	const query = `
		INSERT INTO replay_states
		(batch_id, as_of_ms, symbol, config_version, state, failed, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (batch_id, as_of_ms) DO UPDATE SET
			state = EXCLUDED.state, failed = EXCLUDED.failed, failure_reason = EXCLUDED.failure_reason`

	_, err = p.db.ExecContext(ctx, query, rec.BatchID, rec.AsOfMs, rec.Symbol, rec.ConfigVersion,
		stateJSON, rec.Failed, nullableString(rec.FailureReason))
	if err != nil {
		return fmt.Errorf("save replay state: %w", err)
	}
	return nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Results loads every non-failed state for a batch, ordered by as-of
// time, for scoreboard computation and API export.
func (p *Postgres) Results(ctx context.Context, batchID string) ([]state.MarketState, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	const query = `
		SELECT state FROM replay_states
		WHERE batch_id = $1 AND failed = false
		ORDER BY as_of_ms ASC`

	var raws [][]byte
	if err := p.db.SelectContext(ctx, &raws, query, batchID); err != nil {
		return nil, fmt.Errorf("load replay states: %w", err)
	}

	out := make([]state.MarketState, 0, len(raws))
	for _, raw := range raws {
		var ms state.MarketState
		if err := json.Unmarshal(raw, &ms); err != nil {
			return nil, fmt.Errorf("unmarshal market state: %w", err)
		}
		out = append(out, ms)
	}
	return out, nil
}
