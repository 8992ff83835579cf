package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type DiseaseStatus string

const (
	DiseaseStatusActive     DiseaseStatus = "active"
	DiseaseStatusTreated    DiseaseStatus = "treated"
	DiseaseStatusMonitoring DiseaseStatus = "monitoring"
)

func (s DiseaseStatus) Valid() bool {
	switch s {
	case DiseaseStatusActive, DiseaseStatusTreated, DiseaseStatusMonitoring:
		return true
	}
	return false
}

// Disease is one detected disease on a fish record ("fish_diseases").
// FishRecordID is set at creation and never reassigned.
type Disease struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"              json:"id"`
	FishRecordID    primitive.ObjectID `bson:"fish_data_id"               json:"fish_data_id"`
	DiseaseName     string             `bson:"disease_name"               json:"disease_name"`
	DiseaseCode     string             `bson:"disease_code,omitempty"     json:"disease_code,omitempty"`
	Severity        Severity           `bson:"severity"                   json:"severity"`
	DetectedDate    time.Time          `bson:"detected_date"              json:"detected_date"`
	DetectionMethod string             `bson:"detection_method,omitempty" json:"detection_method,omitempty"`
	Symptoms        []string           `bson:"symptoms"                   json:"symptoms"`
	Treatment       map[string]any     `bson:"treatment"                  json:"treatment"`
	Status          DiseaseStatus      `bson:"status"                     json:"status"`
	Images          []string           `bson:"images"                     json:"images"`
	LabResults      map[string]any     `bson:"lab_results"                json:"lab_results"`
	CreatedAt       time.Time          `bson:"createdAt"                  json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"                  json:"updatedAt"`
}
