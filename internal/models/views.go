package models

// MapPoint is an aggregated monitoring point for the distribution map
type MapPoint struct {
	Name        string    `json:"name"`
	Value       int64     `json:"value"`
	AnimalTypes []string  `json:"animal_types"`
	Coord       []float64 `json:"coord"` // [lng, lat]
}

// DetailRecord is one detection in a location popup
type DetailRecord struct {
	AnimalType      string  `json:"animal_type"`
	Caption         string  `json:"caption"`
	Time            string  `json:"time"`
	Date            string  `json:"date"`
	Location        string  `json:"location"`
	Longitude       string  `json:"longitude"`
	Latitude        string  `json:"latitude"`
	Coordinates     *string `json:"coordinates"`
	MediaPath       *string `json:"media_path"`
	MediaType       string  `json:"media_type"`
	Count           int64   `json:"count"`
	ProtectionLevel string  `json:"protection_level"`
}

// LatestMedia is the newest media seen for one animal at a location
type LatestMedia struct {
	LatestMedia     *string `json:"latest_media"`
	LatestMediaType string  `json:"latest_media_type"`
	LatestCaption   string  `json:"latest_caption"`
	LatestTime      string  `json:"latest_time"`
	LatestDate      string  `json:"latest_date"`
	ProtectionLevel string  `json:"protection_level"`
}

// DetailSummary totals a location detail result
type DetailSummary struct {
	Records    int   `json:"records"`
	TotalCount int64 `json:"total_count"`
}

// LocationDetail is the payload of the map popup
type LocationDetail struct {
	Details          []DetailRecord         `json:"details"`
	LatestByAnimal   map[string]LatestMedia `json:"latest_by_animal"`
	ProtectionLevels map[string]string      `json:"protection_levels"`
	Summary          DetailSummary          `json:"summary"`
}

// HeatmapCell is the count of one animal at one camera
type HeatmapCell struct {
	SensorID      string  `json:"sensor_id"`
	Location      string  `json:"location"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	AnimalType    string  `json:"animal_type,omitempty"`
	Animal        string  `json:"animal,omitempty"`
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgPercentage float64 `json:"avg_percentage"`
	Intensity     int64   `json:"intensity"`
}

// SensorLocation is a camera and its detection total
type SensorLocation struct {
	SensorID        string  `json:"sensor_id"`
	Location        string  `json:"location"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	TotalDetections int64   `json:"total_detections"`
}

// AnimalStat summarizes one animal across all cameras
type AnimalStat struct {
	AnimalName    string  `db:"animal_name" json:"animal_name"`
	Count         int64   `db:"count" json:"count"`
	SensorCount   int64   `db:"sensor_count" json:"sensor_count"`
	AvgConfidence float64 `db:"avg_confidence" json:"avg_confidence"`
}

// PointDetection is a detection shown in a heatmap point popup
type PointDetection struct {
	AnimalType string  `json:"animal_type"`
	Animal     string  `json:"animal"`
	Caption    string  `json:"caption"`
	ImagePath  string  `json:"image_path"`
	Confidence float64 `json:"confidence"`
	Percentage float64 `json:"percentage"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	TotalCount int64   `json:"total_count"`
}

// PointDetails is the payload of the heatmap point popup
type PointDetails struct {
	SensorID   string           `json:"sensor_id"`
	Location   string           `json:"location"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	Caption    string           `json:"caption"`
	Detections []PointDetection `json:"detections"`
}

// AnimalCount is a chart bar: an animal and its summed count
type AnimalCount struct {
	Animal string `db:"animal" json:"animal"`
	Count  int64  `db:"total_count" json:"count"`
}

// LocationCount is a chart bar: a location and its summed count
type LocationCount struct {
	Location string `db:"location" json:"location"`
	Count    int64  `db:"total_count" json:"count"`
}

// SeriesPoint is one quarter of the time-series chart
type SeriesPoint struct {
	Date       string  `json:"date"` // e.g. 2021-Q1
	Count      int64   `json:"count"`
	Confidence float64 `json:"confidence"`
	Percentage float64 `json:"percentage"`
}
