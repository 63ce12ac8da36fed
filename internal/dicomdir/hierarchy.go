package dicomdir

import (
	"strings"
	"time"

	"ikh/dicomdir/internal/models"
)

// Hierarchy is the decoded content of a DICOMDIR.
type Hierarchy struct {
	// Study is nil when no STUDY record carries a usable date.
	Study *models.Study `json:"study" yaml:"study"`
	// Series holds each SERIES record with the IMAGE records that follow it.
	Series []models.Series `json:"series" yaml:"series"`
	// Images holds every IMAGE record in order, grouped or not.
	Images []models.ImageRef `json:"images" yaml:"images"`
}

// BuildHierarchy decodes the study, series and image views of store. Each
// view is computed by its own pass over the records.
func BuildHierarchy(store AttributeStore) (*Hierarchy, error) {
	study, err := readStudy(store)
	if err != nil {
		return nil, err
	}
	series, err := readSeries(store)
	if err != nil {
		return nil, err
	}
	images, err := readImages(store)
	if err != nil {
		return nil, err
	}
	return &Hierarchy{Study: study, Series: series, Images: images}, nil
}

// readStudy keeps the first STUDY record with a usable date.
func readStudy(store AttributeStore) (*models.Study, error) {
	var study *models.Study
	err := ReadRecords(store, Handlers{
		OnStudy: func(record AttributeStore) {
			if study != nil {
				return
			}
			raw, ok := record.Value(TagStudyDate)
			if !ok {
				return
			}
			date, ok := parseDate(raw)
			if !ok {
				return
			}
			study = &models.Study{Date: date}
		},
	})
	return study, err
}

func readImages(store AttributeStore) ([]models.ImageRef, error) {
	images := []models.ImageRef{}
	err := ReadRecords(store, Handlers{
		OnImage: func(record AttributeStore) {
			images = append(images, imageRef(record))
		},
	})
	return images, err
}

// readSeries groups IMAGE records under the most recent SERIES record.
// Images before the first SERIES record belong to no series.
func readSeries(store AttributeStore) ([]models.Series, error) {
	series := []models.Series{}
	current := -1
	err := ReadRecords(store, Handlers{
		OnSeries: func(record AttributeStore) {
			id, _ := record.Value(TagSeriesNumber)
			modality, _ := record.Value(TagModality)
			series = append(series, models.Series{
				ID:       strings.TrimSpace(id),
				Modality: strings.TrimSpace(modality),
				Images:   []models.ImageRef{},
			})
			current = len(series) - 1
		},
		OnImage: func(record AttributeStore) {
			if current < 0 {
				return
			}
			series[current].Images = append(series[current].Images, imageRef(record))
		},
	})
	return series, err
}

func imageRef(record AttributeStore) models.ImageRef {
	id, _ := record.Value(TagReferencedFileID)
	return models.ImageRef{ID: id}
}

var dateLayouts = []string{"20060102", "2006.01.02"}

// parseDate parses a DA value. The pre-3.0 dotted form is accepted too.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
