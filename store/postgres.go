package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/okieraised/go-faceauth-pipeline/store/migrations"
	"github.com/okieraised/go-faceauth-pipeline/utils"
	"github.com/pressly/goose/v3"
)

// PostgresStore persists the audit trail in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RunMigrations applies the embedded schema migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Append(ctx context.Context, record *config.AuthAttemptRecord) error {
	query :=
		`INSERT INTO auth_attempts
		 (id, identity_key, status, score, origin_ip, origin_agent, client_name, client_os, client_device, error_message, attempted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 `

	var score sql.NullFloat64
	if record.Score != nil {
		score = sql.NullFloat64{Float64: float64(*record.Score), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.IdentityKey, string(record.Status), score,
		record.OriginIP, record.OriginAgent, record.ClientName,
		record.ClientOS, record.ClientDevice, record.ErrorMessage,
		record.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (s *PostgresStore) History(ctx context.Context, identityKey string, limit int) ([]*config.AuthAttemptRecord, error) {
	query :=
		`SELECT id, identity_key, status, score, origin_ip, origin_agent, client_name, client_os, client_device, error_message, attempted_at
		 FROM auth_attempts
		 WHERE identity_key = $1
		 ORDER BY attempted_at DESC
		 LIMIT NULLIF($2, 0)
		 `

	if limit < 0 {
		limit = 0
	}

	rows, err := s.db.QueryContext(ctx, query, identityKey, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	records := make([]*config.AuthAttemptRecord, 0)
	for rows.Next() {
		record := &config.AuthAttemptRecord{}
		var status string
		var score sql.NullFloat64

		err := rows.Scan(&record.ID, &record.IdentityKey, &status, &score,
			&record.OriginIP, &record.OriginAgent, &record.ClientName,
			&record.ClientOS, &record.ClientDevice, &record.ErrorMessage,
			&record.AttemptedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		record.Status = config.AuthStatus(status)
		if score.Valid {
			record.Score = utils.RefPointer(float32(score.Float64))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return records, nil
}

func (s *PostgresStore) CountFailuresSince(ctx context.Context, identityKey string, since time.Time) (int, error) {
	query :=
		`SELECT COUNT(*) FROM auth_attempts
		 WHERE identity_key = $1 AND status = $2 AND attempted_at >= $3
		 `

	var count int
	err := s.db.QueryRowContext(ctx, query, identityKey, string(config.StatusFailed), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}
