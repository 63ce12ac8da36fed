package models

import "time"

// Study is the study-level record of a DICOMDIR. Only the date is kept.
type Study struct {
	Date time.Time `json:"date" yaml:"date"`
}

// Series groups the images that follow a SERIES record.
type Series struct {
	ID       string     `json:"id" yaml:"id"`
	Modality string     `json:"modality" yaml:"modality"`
	Images   []ImageRef `json:"images" yaml:"images"`
}

// ImageRef is the referenced file id of an IMAGE record, as authored:
// backslash separated and relative to the DICOMDIR.
type ImageRef struct {
	ID string `json:"id" yaml:"id"`
}

// Ingest is one completed ingest of a dropped directory.
type Ingest struct {
	ID          string
	Source      string
	StudyDate   time.Time
	SeriesCount int
	ImageCount  int
	CreatedAt   time.Time
}
