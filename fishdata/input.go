package fishdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sanfish/models"
)

// Timestamp decodes RFC 3339 timestamps as well as bare YYYY-MM-DD dates,
// which is what date pickers submit for catch_date.
type Timestamp struct{ time.Time }

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) { return json.Marshal(t.Time) }

func (t *Timestamp) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// DiseaseInput is one entry of a disease batch.
type DiseaseInput struct {
	DiseaseName     string               `json:"disease_name"`
	DiseaseCode     string               `json:"disease_code,omitempty"`
	Severity        models.Severity      `json:"severity,omitempty"`
	DetectedDate    *Timestamp           `json:"detected_date,omitempty"`
	DetectionMethod string               `json:"detection_method,omitempty"`
	Symptoms        []string             `json:"symptoms,omitempty"`
	Treatment       map[string]any       `json:"treatment,omitempty"`
	Status          models.DiseaseStatus `json:"status,omitempty"`
	Images          []string             `json:"images,omitempty"`
	LabResults      map[string]any       `json:"lab_results,omitempty"`
}

// CreateInput is the canonical create-with-all-data payload. Ownership fields
// are deliberately absent: they come from the Actor.
type CreateInput struct {
	SpeciesID      string                          `json:"species_id"`
	FishName       string                          `json:"fish_name,omitempty"`
	CommonName     string                          `json:"common_name,omitempty"`
	ScientificName string                          `json:"scientific_name,omitempty"`
	CatchDate      *Timestamp                      `json:"catch_date"`
	CatchDetails   *models.CatchDetails            `json:"catch_details,omitempty"`
	Physical       *models.PhysicalCharacteristics `json:"physical_characteristics,omitempty"`
	Location       *models.Location                `json:"location"`
	Images         []string                        `json:"images,omitempty"`
	Tags           []string                        `json:"tags,omitempty"`
	Metadata       map[string]any                  `json:"metadata,omitempty"`
	Notes          string                          `json:"notes,omitempty"`
	Status         models.FishStatus               `json:"status,omitempty"`
	Diseases       []DiseaseInput                  `json:"diseases,omitempty"`
}

// Patch lists the fields UpdateFishRecord may change. A nil field is left
// untouched; a non-nil Diseases (even empty) replaces the whole disease set.
type Patch struct {
	SpeciesID      *string                         `json:"species_id,omitempty"`
	FishName       *string                         `json:"fish_name,omitempty"`
	CommonName     *string                         `json:"common_name,omitempty"`
	ScientificName *string                         `json:"scientific_name,omitempty"`
	CatchDate      *Timestamp                      `json:"catch_date,omitempty"`
	CatchDetails   *models.CatchDetails            `json:"catch_details,omitempty"`
	Physical       *models.PhysicalCharacteristics `json:"physical_characteristics,omitempty"`
	Location       *models.Location                `json:"location,omitempty"`
	Notes          *string                         `json:"notes,omitempty"`
	Tags           *[]string                       `json:"tags,omitempty"`
	Metadata       *map[string]any                 `json:"metadata,omitempty"`
	Status         *models.FishStatus              `json:"status,omitempty"`
	Images         *[]string                       `json:"images,omitempty"`
	Diseases       *[]DiseaseInput                 `json:"diseases,omitempty"`
	// Version, when set, must equal the stored version.
	Version *int64 `json:"version,omitempty"`
}

type AnalysisInput struct {
	AnalysisType   models.AnalysisType   `json:"analysis_type"`
	TestName       string                `json:"test_name"`
	TestCode       string                `json:"test_code,omitempty"`
	Value          *float64              `json:"value"`
	Unit           string                `json:"unit"`
	ReferenceRange models.ReferenceRange `json:"reference_range"`
	ResultStatus   models.ResultStatus   `json:"result_status,omitempty"`
	Laboratory     models.Laboratory     `json:"laboratory"`
	SampleDate     *Timestamp            `json:"sample_date,omitempty"`
	AnalysisDate   *Timestamp            `json:"analysis_date,omitempty"`
	Methodology    string                `json:"methodology,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	Attachments    []string              `json:"attachments,omitempty"`
}

type AnalysisPatch struct {
	AnalysisType   *models.AnalysisType   `json:"analysis_type,omitempty"`
	TestName       *string                `json:"test_name,omitempty"`
	TestCode       *string                `json:"test_code,omitempty"`
	Value          *float64               `json:"value,omitempty"`
	Unit           *string                `json:"unit,omitempty"`
	ReferenceRange *models.ReferenceRange `json:"reference_range,omitempty"`
	ResultStatus   *models.ResultStatus   `json:"result_status,omitempty"`
	Laboratory     *models.Laboratory     `json:"laboratory,omitempty"`
	SampleDate     *Timestamp             `json:"sample_date,omitempty"`
	AnalysisDate   *Timestamp             `json:"analysis_date,omitempty"`
	Methodology    *string                `json:"methodology,omitempty"`
	Notes          *string                `json:"notes,omitempty"`
	Attachments    *[]string              `json:"attachments,omitempty"`
}

type SpeciesInput struct {
	ScientificName     *string         `json:"scientific_name,omitempty"`
	CommonName         *string         `json:"common_name,omitempty"`
	Family             *string         `json:"family,omitempty"`
	Genus              *string         `json:"genus,omitempty"`
	Species            *string         `json:"species,omitempty"`
	Aliases            *[]string       `json:"aliases,omitempty"`
	Characteristics    *map[string]any `json:"characteristics,omitempty"`
	TypicalLocations   *[]string       `json:"typical_locations,omitempty"`
	KnownDiseases      *[]string       `json:"known_diseases,omitempty"`
	ConservationStatus *map[string]any `json:"conservation_status,omitempty"`
}

// ListQuery filters fish record listings; zero values mean "any".
type ListQuery struct {
	SpeciesID string
	Status    models.FishStatus
	Country   string
	Region    string
	Page      int
	Limit     int
}

type SpeciesQuery struct {
	Family string
	Genus  string
	Search string
	Page   int
	Limit  int
}
