package db

import (
	"fmt"
	"strings"
)

// Filter narrows detection queries by animal and date range.
// Dates are YYYY-MM-DD (YYYYMMDD is accepted too).
type Filter struct {
	Animal    string
	StartDate string
	EndDate   string
}

// apply appends the filter conditions to a query that already has a WHERE clause
func (f Filter) apply(query string, args []interface{}) (string, []interface{}, error) {
	if animalSet(f.Animal) {
		query += " AND animal = ?"
		args = append(args, f.Animal)
	}
	if f.StartDate != "" {
		d, err := storedDate(f.StartDate)
		if err != nil {
			return "", nil, err
		}
		query += " AND date >= ?"
		args = append(args, d)
	}
	if f.EndDate != "" {
		d, err := storedDate(f.EndDate)
		if err != nil {
			return "", nil, err
		}
		query += " AND date <= ?"
		args = append(args, d)
	}
	return query, args, nil
}

// animalSet reports whether an animal filter is active; "all" means none
func animalSet(animal string) bool {
	return animal != "" && animal != "all"
}

// storedDate converts YYYY-MM-DD into the YYYYMMDD form image_info stores
func storedDate(s string) (string, error) {
	d := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if len(d) != 8 {
		return "", fmt.Errorf("%w: bad date %q", ErrInvalidQuery, s)
	}
	for _, c := range d {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("%w: bad date %q", ErrInvalidQuery, s)
		}
	}
	return d, nil
}
