package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ikh/dicomdir/internal/dicomdir"
	"ikh/dicomdir/internal/models"
)

// IngestPayload is the body posted when a drop has been ingested.
type IngestPayload struct {
	IngestID  string          `json:"ingest_id"`
	Source    string          `json:"source"`
	StudyDate string          `json:"study_date,omitempty"`
	Series    []models.Series `json:"series"`
	Files     []string        `json:"files"`
}

// NewIngestPayload describes d. Files lists manifest ids in manifest order.
func NewIngestPayload(ingestID, source string, d *dicomdir.Dicomdir) IngestPayload {
	p := IngestPayload{
		IngestID: ingestID,
		Source:   source,
		Series:   d.Series,
		Files:    make([]string, 0, len(d.Files)),
	}
	if d.Study != nil {
		p.StudyDate = d.Study.Date.Format("2006-01-02")
	}
	for _, f := range d.Files {
		p.Files = append(p.Files, f.ID)
	}
	return p
}

func NotifyIngest(ctx context.Context, apiUrl string, payload IngestPayload) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiUrl, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	return nil
}
