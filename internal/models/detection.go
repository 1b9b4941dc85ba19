package models

import (
	"database/sql"
)

// Detection is one annotated camera-trap image or video (a row of image_info)
type Detection struct {
	ID         int64          `db:"id" json:"id"`
	Object     string         `db:"object" json:"object"`
	Animal     string         `db:"animal" json:"animal"`
	Count      sql.NullInt64  `db:"count" json:"count"`
	Behavior   sql.NullString `db:"behavior" json:"behavior"`
	Status     sql.NullString `db:"status" json:"status"`
	Percentage sql.NullInt64  `db:"percentage" json:"percentage"`
	Confidence sql.NullInt64  `db:"confidence" json:"confidence"`
	ImageID    sql.NullString `db:"image_id" json:"image_id"`
	SensorID   sql.NullString `db:"sensor_id" json:"sensor_id"`
	Location   sql.NullString `db:"location" json:"location"`
	Longitude  sql.NullString `db:"longitude" json:"longitude"` // may carry an E/W prefix
	Latitude   sql.NullString `db:"latitude" json:"latitude"`   // may carry an N/S prefix
	Time       sql.NullString `db:"time" json:"time"`           // HHMM or HH:MM
	Date       sql.NullString `db:"date" json:"date"`           // YYYYMMDD
	Caption    sql.NullString `db:"caption" json:"caption"`
	MediaType  sql.NullString `db:"type" json:"type"`
	Path       sql.NullString `db:"path" json:"path"`
}

// Species is an entry of the protected wildlife list
type Species struct {
	SpeciesName     string `db:"species_name" json:"species_name" yaml:"species_name"`
	ScientificName  string `db:"scientific_name" json:"scientific_name" yaml:"scientific_name"`
	ProtectionLevel string `db:"protection_level" json:"protection_level" yaml:"protection_level"`
}

// UnknownProtectionLevel is reported for animals missing from the species list
const UnknownProtectionLevel = "unknown"

// DefaultMediaType applies when a detection has no type
const DefaultMediaType = "image"
