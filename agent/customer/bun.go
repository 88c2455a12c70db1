package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

type BunConfig struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
}

type recordRow struct {
	bun.BaseModel `bun:"table:customer_records,alias:cr"`

	IdentityKey   string            `bun:"identity_key,pk"`
	BusinessID    string            `bun:"business_id,notnull"`
	Facts         map[string]string `bun:"facts,type:jsonb"`
	Version       int64             `bun:"version,notnull,default:0"`
	LastUpdatedAt time.Time         `bun:"last_updated_at,notnull"`
}

func (r *recordRow) toRecord() *Record {
	return (&Record{
		IdentityKey:   r.IdentityKey,
		BusinessID:    r.BusinessID,
		Facts:         r.Facts,
		Version:       r.Version,
		LastUpdatedAt: r.LastUpdatedAt,
	}).Clone()
}

// BunStore persists customer records in Postgres. Write conflicts are handled
// optimistically: an update guarded by the read version, one retry against the
// freshly read row, then last-write-wins.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(cfg BunConfig) (*BunStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
	))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &BunStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// EnsureSchema creates the customer_records table if needed.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*recordRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create customer_records table: %w", err)
	}
	return nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) Lookup(ctx context.Context, identityKey string) (*Record, error) {
	if strings.TrimSpace(identityKey) == "" {
		return nil, ErrInvalidKey
	}

	row := new(recordRow)
	err := s.db.NewSelect().
		Model(row).
		Where("cr.identity_key = ?", identityKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("lookup customer record: %w", err)
	}
	return row.toRecord(), nil
}

func (s *BunStore) Upsert(ctx context.Context, identityKey, businessID string, facts map[string]string, now time.Time) (*Record, error) {
	if strings.TrimSpace(identityKey) == "" {
		return nil, ErrInvalidKey
	}

	for attempt := 0; attempt < 2; attempt++ {
		rec, err := s.tryUpsert(ctx, identityKey, businessID, facts, now)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, contractx.ErrStoreConflict) {
			return nil, err
		}
	}

	// Two conflicts in a row: accept last-write-wins.
	return s.forceUpsert(ctx, identityKey, businessID, facts, now)
}

func (s *BunStore) tryUpsert(ctx context.Context, identityKey, businessID string, facts map[string]string, now time.Time) (*Record, error) {
	existing, err := s.Lookup(ctx, identityKey)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	if existing == nil {
		row := &recordRow{
			IdentityKey:   identityKey,
			BusinessID:    businessID,
			Facts:         mergeFacts(nil, facts),
			Version:       1,
			LastUpdatedAt: now.UTC(),
		}
		res, err := s.db.NewInsert().
			Model(row).
			On("CONFLICT (identity_key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("insert customer record: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Lost the race to another writer.
			return nil, fmt.Errorf("%w: key=%s", contractx.ErrStoreConflict, identityKey)
		}
		return row.toRecord(), nil
	}

	row := &recordRow{
		IdentityKey:   identityKey,
		BusinessID:    existing.BusinessID,
		Facts:         mergeFacts(existing.Clone().Facts, facts),
		Version:       existing.Version + 1,
		LastUpdatedAt: now.UTC(),
	}
	res, err := s.db.NewUpdate().
		Model(row).
		Where("cr.identity_key = ? AND cr.version = ?", identityKey, existing.Version).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update customer record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: key=%s version=%d", contractx.ErrStoreConflict, identityKey, existing.Version)
	}
	return row.toRecord(), nil
}

func (s *BunStore) forceUpsert(ctx context.Context, identityKey, businessID string, facts map[string]string, now time.Time) (*Record, error) {
	existing, err := s.Lookup(ctx, identityKey)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	merged := mergeFacts(nil, facts)
	version := int64(1)
	if existing != nil {
		merged = mergeFacts(existing.Clone().Facts, facts)
		version = existing.Version + 1
		businessID = existing.BusinessID
	}

	row := &recordRow{
		IdentityKey:   identityKey,
		BusinessID:    businessID,
		Facts:         merged,
		Version:       version,
		LastUpdatedAt: now.UTC(),
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (identity_key) DO UPDATE").
		Set("facts = EXCLUDED.facts").
		Set("version = EXCLUDED.version").
		Set("last_updated_at = EXCLUDED.last_updated_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("force upsert customer record: %w", err)
	}
	return row.toRecord(), nil
}

func (s *BunStore) List(ctx context.Context, businessID string) ([]*Record, error) {
	var rows []recordRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("cr.business_id = ?", businessID).
		Order("cr.identity_key ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customer records: %w", err)
	}

	out := make([]*Record, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toRecord())
	}
	return out, nil
}
