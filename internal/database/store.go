// Package database persists flagged findings. The store doubles as a
// finding sink, so persistence is just another destination the monitor
// can emit to.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/config"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/logger"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS findings (
	id TEXT PRIMARY KEY,
	tool TEXT NOT NULL,
	type TEXT NOT NULL,
	severity TEXT NOT NULL,
	title TEXT NOT NULL,
	key_truncated TEXT NOT NULL,
	source_url TEXT,
	restriction_status TEXT NOT NULL,
	costs JSONB NOT NULL,
	abuse_scenarios JSONB,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity);
CREATE INDEX IF NOT EXISTS idx_findings_created_at ON findings(created_at);
`

// Store is a sqlx-backed findings store.
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewStore connects, configures the pool and ensures the schema exists.
func NewStore(cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	log = log.WithComponent("database")

	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Infow("Findings store initialized",
		"driver", cfg.Driver,
		"max_connections", cfg.MaxConnections,
	)

	return &Store{db: db, logger: log}, nil
}

// findingRow is the flat DB shape of a finding; the structured parts are
// stored as JSON documents.
type findingRow struct {
	ID                string    `db:"id"`
	Tool              string    `db:"tool"`
	Type              string    `db:"type"`
	Severity          string    `db:"severity"`
	Title             string    `db:"title"`
	KeyTruncated      string    `db:"key_truncated"`
	SourceURL         string    `db:"source_url"`
	RestrictionStatus string    `db:"restriction_status"`
	Costs             []byte    `db:"costs"`
	AbuseScenarios    []byte    `db:"abuse_scenarios"`
	Metadata          []byte    `db:"metadata"`
	CreatedAt         time.Time `db:"created_at"`
}

// Emit persists a finding; it satisfies the monitor's Sink interface.
func (s *Store) Emit(ctx context.Context, finding types.Finding) error {
	return s.SaveFinding(ctx, finding)
}

// SaveFinding inserts one finding.
func (s *Store) SaveFinding(ctx context.Context, finding types.Finding) error {
	start := time.Now()

	costsJSON, err := json.Marshal(finding.Costs)
	if err != nil {
		return fmt.Errorf("marshaling costs: %w", err)
	}
	scenariosJSON, err := json.Marshal(finding.AbuseScenarios)
	if err != nil {
		return fmt.Errorf("marshaling abuse scenarios: %w", err)
	}
	metadataJSON, err := json.Marshal(finding.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	query := `
		INSERT INTO findings (
			id, tool, type, severity, title, key_truncated, source_url,
			restriction_status, costs, abuse_scenarios, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		finding.ID,
		finding.Tool,
		finding.Type,
		string(finding.Severity),
		finding.Title,
		finding.KeyTruncated,
		finding.SourceURL,
		string(finding.RestrictionStatus),
		costsJSON,
		scenariosJSON,
		metadataJSON,
		finding.CreatedAt,
	)
	if err != nil {
		s.logger.LogError(ctx, err, "database.SaveFinding", "finding_id", finding.ID)
		return fmt.Errorf("failed to save finding: %w", err)
	}

	s.logger.LogDuration(ctx, "database.SaveFinding", start, "finding_id", finding.ID)
	return nil
}

// GetFindings returns findings ordered newest first.
func (s *Store) GetFindings(ctx context.Context, limit int) ([]types.Finding, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []findingRow
	query := `SELECT * FROM findings ORDER BY created_at DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	return s.toFindings(rows)
}

// GetFindingsBySeverity returns findings with the given severity, newest
// first.
func (s *Store) GetFindingsBySeverity(ctx context.Context, severity types.Severity) ([]types.Finding, error) {
	var rows []findingRow
	query := `SELECT * FROM findings WHERE severity = $1 ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &rows, query, string(severity)); err != nil {
		return nil, fmt.Errorf("failed to query findings by severity: %w", err)
	}
	return s.toFindings(rows)
}

func (s *Store) toFindings(rows []findingRow) ([]types.Finding, error) {
	findings := make([]types.Finding, 0, len(rows))
	for _, row := range rows {
		finding := types.Finding{
			ID:                row.ID,
			Tool:              row.Tool,
			Type:              row.Type,
			Severity:          types.Severity(row.Severity),
			Title:             row.Title,
			KeyTruncated:      row.KeyTruncated,
			SourceURL:         row.SourceURL,
			RestrictionStatus: types.RestrictionStatus(row.RestrictionStatus),
			CreatedAt:         row.CreatedAt,
		}
		if err := json.Unmarshal(row.Costs, &finding.Costs); err != nil {
			return nil, fmt.Errorf("unmarshaling costs for %s: %w", row.ID, err)
		}
		if len(row.AbuseScenarios) > 0 {
			if err := json.Unmarshal(row.AbuseScenarios, &finding.AbuseScenarios); err != nil {
				return nil, fmt.Errorf("unmarshaling scenarios for %s: %w", row.ID, err)
			}
		}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &finding.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for %s: %w", row.ID, err)
			}
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
