package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/model"
)

// PostgresMappingStore implements MappingStore for PostgreSQL.
//
// Schema (see scripts/schema.sql):
//
//	CREATE TABLE tenant_mappings (
//	    tenant_id     BIGINT PRIMARY KEY,
//	    group_id      BIGINT,
//	    collection_id BIGINT,
//	    dashboards    JSONB NOT NULL DEFAULT '{}',
//	    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresMappingStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresMappingStore creates a new PostgreSQL mapping store
func NewPostgresMappingStore(
	host string,
	port int,
	database, user, password string,
	maxConns, minConns int,
	logger *zap.Logger,
) (MappingStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d pool_min_conns=%d",
		host, port, database, user, password, maxConns, minConns,
	)

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresMappingStore{
		pool:   pool,
		logger: logger,
	}, nil
}

// GetMapping retrieves a tenant's mapping
func (s *PostgresMappingStore) GetMapping(ctx context.Context, tenantID int64) (*model.TenantMapping, error) {
	query := `
		SELECT tenant_id, group_id, collection_id, dashboards, created_at, updated_at
		FROM tenant_mappings
		WHERE tenant_id = $1
	`

	mapping, err := scanMapping(s.pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	return mapping, nil
}

// UpsertProvision records the tenant's group and collection ids. On conflict
// the ids are only filled where still NULL, so a collection id can never be
// replaced once set.
func (s *PostgresMappingStore) UpsertProvision(ctx context.Context, tenantID, groupID, collectionID int64) error {
	query := `
		INSERT INTO tenant_mappings (tenant_id, group_id, collection_id, dashboards, created_at, updated_at)
		VALUES ($1, $2, $3, '{}'::jsonb, NOW(), NOW())
		ON CONFLICT (tenant_id) DO UPDATE
		SET group_id      = COALESCE(tenant_mappings.group_id, EXCLUDED.group_id),
		    collection_id = COALESCE(tenant_mappings.collection_id, EXCLUDED.collection_id),
		    updated_at    = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, tenantID, groupID, collectionID); err != nil {
		return fmt.Errorf("failed to upsert provision: %w", err)
	}

	return nil
}

// SetDashboard records a module's dashboard id. The guard on the JSONB key
// makes the write a true insert-if-absent, so of two racing resolvers only
// the first one's id is kept.
func (s *PostgresMappingStore) SetDashboard(ctx context.Context, tenantID int64, module string, dashboardID int64) (int64, bool, error) {
	query := `
		INSERT INTO tenant_mappings (tenant_id, dashboards, created_at, updated_at)
		VALUES ($1, jsonb_build_object($2::text, $3::bigint), NOW(), NOW())
		ON CONFLICT (tenant_id) DO UPDATE
		SET dashboards = CASE
		        WHEN tenant_mappings.dashboards ? $2::text THEN tenant_mappings.dashboards
		        ELSE tenant_mappings.dashboards || jsonb_build_object($2::text, $3::bigint)
		    END,
		    updated_at = NOW()
		RETURNING (dashboards ->> $2::text)::bigint
	`

	var stored int64
	if err := s.pool.QueryRow(ctx, query, tenantID, module, dashboardID).Scan(&stored); err != nil {
		return 0, false, fmt.Errorf("failed to set dashboard: %w", err)
	}

	return stored, stored == dashboardID, nil
}

// DeleteMapping removes and returns a tenant's mapping
func (s *PostgresMappingStore) DeleteMapping(ctx context.Context, tenantID int64) (*model.TenantMapping, error) {
	query := `
		DELETE FROM tenant_mappings
		WHERE tenant_id = $1
		RETURNING tenant_id, group_id, collection_id, dashboards, created_at, updated_at
	`

	mapping, err := scanMapping(s.pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete mapping: %w", err)
	}

	s.logger.Info("Deleted tenant mapping", zap.Int64("tenant_id", tenantID))

	return mapping, nil
}

// ListMappings returns all tenant mappings
func (s *PostgresMappingStore) ListMappings(ctx context.Context) ([]*model.TenantMapping, error) {
	query := `
		SELECT tenant_id, group_id, collection_id, dashboards, created_at, updated_at
		FROM tenant_mappings
		ORDER BY tenant_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	mappings := make([]*model.TenantMapping, 0)
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}

	return mappings, rows.Err()
}

// CountMappings returns the number of tenant mappings
func (s *PostgresMappingStore) CountMappings(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenant_mappings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return count, nil
}

// Ping checks the database connection
func (s *PostgresMappingStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresMappingStore) Close() {
	s.pool.Close()
}

// scanMapping scans one tenant_mappings row
func scanMapping(row pgx.Row) (*model.TenantMapping, error) {
	var mapping model.TenantMapping
	var dashboards []byte

	if err := row.Scan(
		&mapping.TenantID,
		&mapping.GroupID,
		&mapping.CollectionID,
		&dashboards,
		&mapping.CreatedAt,
		&mapping.UpdatedAt,
	); err != nil {
		return nil, err
	}

	mapping.Dashboards = make(map[string]int64)
	if len(dashboards) > 0 {
		if err := json.Unmarshal(dashboards, &mapping.Dashboards); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dashboards: %w", err)
		}
	}

	return &mapping, nil
}
