package db

import (
	"fmt"
	"strings"
)

// Dialect captures the SQL that differs between SQLite and MySQL
type Dialect struct {
	Name       string
	intType    string
	schemaFile string
	upsert     string
}

var (
	sqliteDialect = Dialect{
		Name:       "sqlite",
		intType:    "INTEGER",
		schemaFile: "schema.sql",
		upsert: `INSERT INTO protected_species (species_name, scientific_name, protection_level)
			VALUES (?, ?, ?)
			ON CONFLICT(species_name) DO UPDATE SET
				scientific_name = excluded.scientific_name,
				protection_level = excluded.protection_level`,
	}
	mysqlDialect = Dialect{
		Name:       "mysql",
		intType:    "SIGNED",
		schemaFile: "schema_mysql.sql",
		upsert: `INSERT INTO protected_species (species_name, scientific_name, protection_level)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE
				scientific_name = VALUES(scientific_name),
				protection_level = VALUES(protection_level)`,
	}
)

func dialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return sqliteDialect, nil
	case "mysql":
		return mysqlDialect, nil
	}
	return Dialect{}, fmt.Errorf("unsupported driver %q", driver)
}

// IntCast casts expr to an integer
func (d Dialect) IntCast(expr string) string {
	return fmt.Sprintf("CAST(%s AS %s)", expr, d.intType)
}

// Concat joins SQL expressions into one string expression
func (d Dialect) Concat(parts ...string) string {
	if d.Name == "mysql" {
		return "CONCAT(" + strings.Join(parts, ", ") + ")"
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

// signedCoord returns an expression that reads a stored coordinate as a
// signed decimal: the neg prefix negates, the pos prefix is dropped.
func signedCoord(col string, pos, neg byte) string {
	c := "TRIM(" + col + ")"
	head := "UPPER(SUBSTR(" + c + ", 1, 1))"
	tail := "CAST(TRIM(SUBSTR(" + c + ", 2)) AS DECIMAL(10,6))"
	return fmt.Sprintf("(CASE WHEN %s = '%c' THEN -%s WHEN %s = '%c' THEN %s ELSE CAST(%s AS DECIMAL(10,6)) END)",
		head, neg, tail, head, pos, tail, c)
}

var (
	lngExpr = signedCoord("longitude", 'E', 'W')
	latExpr = signedCoord("latitude", 'N', 'S')
)

// hasCoords restricts a query to rows with both coordinates present
const hasCoords = `longitude IS NOT NULL AND latitude IS NOT NULL
		AND longitude != '' AND latitude != ''`
