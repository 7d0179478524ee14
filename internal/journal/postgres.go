package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS activity_records (
	seq     BIGSERIAL PRIMARY KEY,
	id      TEXT NOT NULL UNIQUE,
	ts      TIMESTAMPTZ NOT NULL,
	sender  TEXT NOT NULL,
	peer    TEXT NOT NULL,
	content TEXT NOT NULL
)`

// PostgresSink stores records in the activity_records table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, url string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createRecordsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating activity_records: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Write(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO activity_records (id, ts, sender, peer, content) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Timestamp, rec.Sender.String(), rec.Peer, rec.Content)
	return err
}

func (s *PostgresSink) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ts, sender, peer, content FROM activity_records ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			rec    Record
			sender string
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &sender, &rec.Peer, &rec.Content); err != nil {
			return nil, err
		}
		if rec.Sender, err = ParseSender(sender); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
