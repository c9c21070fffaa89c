// Package postgres persists canonical heritage records into a
// PostGIS-enabled Postgres database with natural-key upsert semantics.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/nwheritage/heritage-data-etl/internal/domain"
)

// Store owns the database handle shared by the per-record-type loaders.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens a Postgres connection from the DSN and verifies it with a
// ping. A missing or unreachable database is a setup failure, surfaced before
// any processing starts.
func NewStore(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing database DSN: set DATABASE_URL")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Buildings returns the listed-building loader.
func (s *Store) Buildings() *BuildingStore {
	return &BuildingStore{store: s}
}

// Areas returns the conservation-area loader.
func (s *Store) Areas() *AreaStore {
	return &AreaStore{store: s}
}

// upsertBuildingSQL refreshes every mutable column on conflict so
// re-ingestion updates rather than duplicates. The original list date is kept
// on update; amendments change amended_date only.
const upsertBuildingSQL = `
INSERT INTO listed_buildings (
	list_entry_number, name, grade, address_line_1, address_line_2,
	town, postcode, borough, location, list_date, amended_date,
	legacy_uid, documentation_url, data_source
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8,
	ST_SetSRID(ST_MakePoint($9, $10), 4326),
	$11::date, $12::date, $13, $14, $15
)
ON CONFLICT (list_entry_number) DO UPDATE SET
	name = EXCLUDED.name,
	grade = EXCLUDED.grade,
	address_line_1 = EXCLUDED.address_line_1,
	address_line_2 = EXCLUDED.address_line_2,
	town = EXCLUDED.town,
	postcode = EXCLUDED.postcode,
	borough = EXCLUDED.borough,
	location = EXCLUDED.location,
	amended_date = EXCLUDED.amended_date,
	legacy_uid = EXCLUDED.legacy_uid,
	documentation_url = EXCLUDED.documentation_url,
	data_source = EXCLUDED.data_source,
	updated_at = NOW()`

// upsertAreaSQL conflicts on the (borough, reference) natural key.
// Restrictions travel as a delimited string and are split server-side to stay
// portable across database/sql drivers.
const upsertAreaSQL = `
INSERT INTO conservation_areas (
	name, reference, borough, designation_date, boundary,
	area_hectares, description, character_appraisal_url, management_plan_url,
	has_article_4, article_4_restrictions, article_4_date, data_source
) VALUES (
	$1, $2, $3, $4::date,
	ST_GeomFromText($5, 4326),
	$6, $7, $8, $9, $10,
	string_to_array($11::text, ','),
	$12::date, $13
)
ON CONFLICT (borough, reference) DO UPDATE SET
	name = EXCLUDED.name,
	designation_date = EXCLUDED.designation_date,
	boundary = EXCLUDED.boundary,
	area_hectares = EXCLUDED.area_hectares,
	description = EXCLUDED.description,
	character_appraisal_url = EXCLUDED.character_appraisal_url,
	management_plan_url = EXCLUDED.management_plan_url,
	has_article_4 = EXCLUDED.has_article_4,
	article_4_restrictions = EXCLUDED.article_4_restrictions,
	article_4_date = EXCLUDED.article_4_date,
	data_source = EXCLUDED.data_source,
	updated_at = NOW()`

// BuildingStore upserts listed buildings keyed on list_entry_number.
// It implements pipeline.Loader.
type BuildingStore struct {
	store *Store
}

// LoadBatch upserts a batch of buildings inside one transaction.
func (b *BuildingStore) LoadBatch(ctx context.Context, records []domain.ListedBuilding) error {
	return b.store.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, upsertBuildingSQL, buildingArgs(rec)...); err != nil {
				return fmt.Errorf("upsert listed building %s: %w", rec.ListEntryNumber, err)
			}
		}
		return nil
	})
}

// Load upserts a single building.
func (b *BuildingStore) Load(ctx context.Context, rec domain.ListedBuilding) error {
	if _, err := b.store.db.ExecContext(ctx, upsertBuildingSQL, buildingArgs(rec)...); err != nil {
		return fmt.Errorf("upsert listed building %s: %w", rec.ListEntryNumber, err)
	}
	return nil
}

// AreaStore upserts conservation areas keyed on (borough, reference).
// It implements pipeline.Loader.
type AreaStore struct {
	store *Store
}

// LoadBatch upserts a batch of conservation areas inside one transaction.
func (a *AreaStore) LoadBatch(ctx context.Context, records []domain.ConservationArea) error {
	return a.store.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, upsertAreaSQL, areaArgs(rec)...); err != nil {
				return fmt.Errorf("upsert conservation area %q: %w", rec.Name, err)
			}
		}
		return nil
	})
}

// Load upserts a single conservation area.
func (a *AreaStore) Load(ctx context.Context, rec domain.ConservationArea) error {
	if _, err := a.store.db.ExecContext(ctx, upsertAreaSQL, areaArgs(rec)...); err != nil {
		return fmt.Errorf("upsert conservation area %q: %w", rec.Name, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func buildingArgs(rec domain.ListedBuilding) []any {
	return []any{
		rec.ListEntryNumber,
		rec.Name,
		string(rec.Grade),
		rec.AddressLine1,
		rec.AddressLine2,
		rec.Town,
		rec.Postcode,
		rec.Borough,
		rec.Lng,
		rec.Lat,
		rec.ListDate,
		rec.AmendedDate,
		rec.LegacyUID,
		rec.DocumentationURL,
		rec.DataSource,
	}
}

func areaArgs(rec domain.ConservationArea) []any {
	var restrictions *string
	if len(rec.Article4Restrictions) > 0 {
		joined := strings.Join(rec.Article4Restrictions, ",")
		restrictions = &joined
	}
	return []any{
		rec.Name,
		rec.Reference,
		rec.Borough,
		rec.DesignationDate,
		rec.BoundaryWKT,
		rec.AreaHectares,
		rec.Description,
		rec.CharacterAppraisalURL,
		rec.ManagementPlanURL,
		rec.HasArticle4,
		restrictions,
		rec.Article4Date,
		rec.DataSource,
	}
}
