package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/animus-labs/animus-indexer/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// PostgresStore reads and publishes segments in the segments table.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		return nil
	}
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("segment store not initialized")
	}
	// Concurrent CREATE ... IF NOT EXISTS can collide on the catalog; the
	// loser sees a unique violation after the winner has created the table.
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (s *PostgresStore) AllDataSourceNames(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("segment store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT data_source FROM segments`)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan data source: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	return names, nil
}

func (s *PostgresStore) DataSources(ctx context.Context) ([]domain.DataSource, error) {
	segments, created, err := s.querySegments(ctx, segmentFilter{UsedOnly: true})
	if err != nil {
		return nil, err
	}
	return domain.GroupSegments(segments, created), nil
}

func (s *PostgresStore) DataSource(ctx context.Context, name string) (domain.DataSource, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.DataSource{}, errors.New("data source name is required")
	}
	segments, created, err := s.querySegments(ctx, segmentFilter{DataSource: name, UsedOnly: true})
	if err != nil {
		return domain.DataSource{}, err
	}
	grouped := domain.GroupSegments(segments, created)
	if len(grouped) == 0 {
		return domain.DataSource{}, ErrNotFound
	}
	return grouped[0], nil
}

// UsedSegmentsForInterval returns used segments overlapping interval, ordered
// by start time then identifier. An unknown dataset yields an empty slice.
func (s *PostgresStore) UsedSegmentsForInterval(ctx context.Context, dataSource string, interval domain.Interval) ([]domain.Segment, error) {
	dataSource = strings.TrimSpace(dataSource)
	if dataSource == "" {
		return nil, errors.New("data source name is required")
	}
	if err := interval.Validate(); err != nil {
		return nil, err
	}
	segments, _, err := s.querySegments(ctx, segmentFilter{DataSource: dataSource, Interval: &interval, UsedOnly: true})
	if err != nil {
		return nil, err
	}
	domain.SortSegments(segments)
	return segments, nil
}

// PublishSegments inserts segments as used. Identifiers already present are
// left untouched. It returns how many rows were inserted.
func (s *PostgresStore) PublishSegments(ctx context.Context, segments ...domain.Segment) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("segment store not initialized")
	}
	for i, seg := range segments {
		if err := seg.Validate(); err != nil {
			return 0, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	if len(segments) == 0 {
		return 0, nil
	}

	beginner, ok := s.db.(txBeginner)
	if !ok {
		return publishSegments(ctx, s.db, s.now().UTC(), segments)
	}
	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted, err := publishSegments(ctx, tx, s.now().UTC(), segments)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func publishSegments(ctx context.Context, db DB, createdAt time.Time, segments []domain.Segment) (int, error) {
	inserted := 0
	for _, seg := range segments {
		payload, err := json.Marshal(seg)
		if err != nil {
			return 0, fmt.Errorf("encode segment %s: %w", seg.Identifier(), err)
		}
		res, err := db.ExecContext(
			ctx,
			`INSERT INTO segments (
				id,
				data_source,
				created_date,
				start_time,
				end_time,
				partitioned,
				version,
				used,
				payload
			) VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE,$8)
			ON CONFLICT (id) DO NOTHING`,
			seg.Identifier(),
			seg.DataSource,
			createdAt,
			seg.Interval.Start.UTC(),
			seg.Interval.End.UTC(),
			seg.ShardSpec.Type != "" && seg.ShardSpec.Type != domain.ShardSpecNone,
			seg.Version,
			payload,
		)
		if err != nil {
			return 0, fmt.Errorf("insert segment %s: %w", seg.Identifier(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected for segment %s: %w", seg.Identifier(), err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

type segmentFilter struct {
	DataSource string
	Interval   *domain.Interval
	UsedOnly   bool
}

func buildSegmentQuery(filter segmentFilter) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 3)

	if filter.UsedOnly {
		clauses = append(clauses, "used = TRUE")
	}
	if name := strings.TrimSpace(filter.DataSource); name != "" {
		args = append(args, name)
		clauses = append(clauses, fmt.Sprintf("data_source = $%d", len(args)))
	}
	if filter.Interval != nil {
		args = append(args, filter.Interval.End.UTC())
		clauses = append(clauses, fmt.Sprintf("start_time < $%d", len(args)))
		args = append(args, filter.Interval.Start.UTC())
		clauses = append(clauses, fmt.Sprintf("end_time > $%d", len(args)))
	}

	query := `SELECT data_source, created_date, payload FROM segments`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY data_source, start_time, id"
	return query, args
}

// querySegments also reports the earliest created_date per dataset.
func (s *PostgresStore) querySegments(ctx context.Context, filter segmentFilter) ([]domain.Segment, map[string]time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil, errors.New("segment store not initialized")
	}
	query, args := buildSegmentQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segments := make([]domain.Segment, 0)
	created := make(map[string]time.Time)
	for rows.Next() {
		var (
			dataSource string
			createdAt  time.Time
			payload    []byte
		)
		if err := rows.Scan(&dataSource, &createdAt, &payload); err != nil {
			return nil, nil, fmt.Errorf("scan segment: %w", err)
		}
		seg, err := decodeSegment(payload)
		if err != nil {
			return nil, nil, err
		}
		if prev, ok := created[dataSource]; !ok || createdAt.Before(prev) {
			created[dataSource] = createdAt
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("list segments: %w", err)
	}
	return segments, created, nil
}

func decodeSegment(payload []byte) (domain.Segment, error) {
	var seg domain.Segment
	if err := json.Unmarshal(payload, &seg); err != nil {
		return domain.Segment{}, fmt.Errorf("decode segment payload: %w", err)
	}
	return seg, nil
}
