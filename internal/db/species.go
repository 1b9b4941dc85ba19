package db

import (
	"context"
	"fmt"
	"strings"

	"camtrap/internal/models"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

// ProtectionLevels maps each name to its protection level. Names may be
// common or scientific; unlisted names map to "unknown".
func (db *DB) ProtectionLevels(ctx context.Context, names []string) (map[string]string, error) {
	levels := make(map[string]string, len(names))
	if len(names) == 0 {
		return levels, nil
	}

	ctx, span := db.span(ctx, "ProtectionLevels", attribute.Int("names", len(names)))
	query, args, err := sqlx.In(`
		SELECT species_name, scientific_name, protection_level
		FROM protected_species
		WHERE species_name IN (?) OR scientific_name IN (?)
	`, names, names)
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("failed to build species query: %w", err)
	}

	var found []models.Species
	err = db.SelectContext(ctx, &found, db.Rebind(query), args...)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query protection levels: %w", err)
	}

	byName := make(map[string]string, len(found)*2)
	for _, s := range found {
		if s.ScientificName != "" {
			byName[s.ScientificName] = s.ProtectionLevel
		}
	}
	// common names win over scientific ones
	for _, s := range found {
		byName[s.SpeciesName] = s.ProtectionLevel
	}

	for _, n := range names {
		if l, ok := byName[n]; ok {
			levels[n] = l
		} else {
			levels[n] = models.UnknownProtectionLevel
		}
	}
	return levels, nil
}

// UpsertSpecies inserts or updates species by common name
func (db *DB) UpsertSpecies(ctx context.Context, species []models.Species) (int, error) {
	ctx, span := db.span(ctx, "UpsertSpecies", attribute.Int("species", len(species)))
	var err error
	defer func() { endSpan(span, err) }()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range species {
		name := strings.TrimSpace(s.SpeciesName)
		if name == "" || s.ProtectionLevel == "" {
			err = fmt.Errorf("%w: species needs a name and a protection level", ErrInvalidQuery)
			return 0, err
		}
		if _, err = tx.ExecContext(ctx, db.dialect.upsert, name, strings.TrimSpace(s.ScientificName), s.ProtectionLevel); err != nil {
			return 0, fmt.Errorf("failed to upsert %s: %w", name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(species), nil
}

// CountSpecies returns the number of rows in protected_species
func (db *DB) CountSpecies(ctx context.Context) (int64, error) {
	var n int64
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM protected_species"); err != nil {
		return 0, fmt.Errorf("failed to count species: %w", err)
	}
	return n, nil
}
