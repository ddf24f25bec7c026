package layoutdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// Schema creates the layout table. Hosts usually run it from a migration.
const Schema = `CREATE TABLE IF NOT EXISTS dashboard_layouts (
	dashboard_id text PRIMARY KEY,
	layout jsonb NOT NULL,
	revision bigint NOT NULL DEFAULT 1,
	updated_at timestamptz NOT NULL
)`

// Store persists dashboard layouts in Postgres. It implements
// dashboard.LayoutRepository so self-hosted deployments can skip the REST
// backend.
type Store struct {
	Pool *pgxpool.Pool
}

var _ dashboard.LayoutRepository = (*Store)(nil)

// Open connects and pings the database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("layoutdb: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("layoutdb: ping: %w", err)
	}
	return &Store{Pool: pool}, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("layoutdb: migrate: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// SaveLayout upserts the full layout. Last write wins.
func (s *Store) SaveLayout(ctx context.Context, dashboardID string, items []dashboard.LayoutItem) error {
	payload, err := encodeLayout(dashboardID, items)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO dashboard_layouts (dashboard_id, layout, revision, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (dashboard_id)
		DO UPDATE SET layout = EXCLUDED.layout,
			revision = dashboard_layouts.revision + 1,
			updated_at = now()`,
		dashboardID, payload,
	)
	if err != nil {
		return fmt.Errorf("layoutdb: save %s: %w", dashboardID, err)
	}
	return nil
}

// LoadLayout returns the stored layout, or nil when none exists.
func (s *Store) LoadLayout(ctx context.Context, dashboardID string) ([]dashboard.LayoutItem, error) {
	var payload []byte
	err := s.Pool.QueryRow(ctx, `SELECT layout FROM dashboard_layouts WHERE dashboard_id=$1`, dashboardID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("layoutdb: load %s: %w", dashboardID, err)
	}
	return decodeLayout(payload)
}

// Revision reports how many times a layout has been written.
func (s *Store) Revision(ctx context.Context, dashboardID string) (int64, error) {
	var rev int64
	err := s.Pool.QueryRow(ctx, `SELECT revision FROM dashboard_layouts WHERE dashboard_id=$1`, dashboardID).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

func encodeLayout(dashboardID string, items []dashboard.LayoutItem) ([]byte, error) {
	if dashboardID == "" {
		return nil, errors.New("layoutdb: dashboard id is required")
	}
	if items == nil {
		items = []dashboard.LayoutItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("layoutdb: encode layout: %w", err)
	}
	return payload, nil
}

func decodeLayout(payload []byte) ([]dashboard.LayoutItem, error) {
	var items []dashboard.LayoutItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("layoutdb: decode layout: %w", err)
	}
	return items, nil
}
