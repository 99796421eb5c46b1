package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

const createHistoryTable = `
create table if not exists diagnosis_history (
  owner       text        not null,
  id          text        not null,
  recorded_at bigint      not null,
  record      jsonb       not null,
  updated_at  timestamptz not null default now(),
  primary key (owner, id)
);
create index if not exists diagnosis_history_owner_recorded_at
  on diagnosis_history (owner, recorded_at desc);
`

// PostgresHistoryStore keeps history in a single table keyed by owner and id.
type PostgresHistoryStore struct {
	db *pgxpool.Pool
}

func NewPostgresHistoryStore(db *pgxpool.Pool) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

// EnsureSchema creates the history table if it does not exist.
func (s *PostgresHistoryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createHistoryTable); err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	return nil
}

func (s *PostgresHistoryStore) Put(ctx context.Context, owner string, rec *domain.DiagnosisResult) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		insert into diagnosis_history (owner, id, recorded_at, record)
		values ($1, $2, $3, $4)
		on conflict (owner, id) do update
		set recorded_at = excluded.recorded_at,
		    record = excluded.record,
		    updated_at = now()
	`, owner, rec.ID, rec.Timestamp, data)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func (s *PostgresHistoryStore) GetAll(ctx context.Context, owner string) ([]*domain.DiagnosisResult, error) {
	rows, err := s.db.Query(ctx, `
		select record
		from diagnosis_history
		where owner = $1
		order by recorded_at desc, id desc
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	recs := []*domain.DiagnosisResult{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec domain.DiagnosisResult
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return recs, nil
}

func (s *PostgresHistoryStore) Clear(ctx context.Context, owner string) error {
	if _, err := s.db.Exec(ctx, `delete from diagnosis_history where owner = $1`, owner); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
