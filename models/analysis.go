package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AnalysisType string

const (
	AnalysisChemical        AnalysisType = "chemical"
	AnalysisBiological      AnalysisType = "biological"
	AnalysisPhysical        AnalysisType = "physical"
	AnalysisMicrobiological AnalysisType = "microbiological"
	AnalysisGenetic         AnalysisType = "genetic"
)

func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisChemical, AnalysisBiological, AnalysisPhysical, AnalysisMicrobiological, AnalysisGenetic:
		return true
	}
	return false
}

type ResultStatus string

const (
	ResultNormal      ResultStatus = "normal"
	ResultElevated    ResultStatus = "elevated"
	ResultCritical    ResultStatus = "critical"
	ResultBelowNormal ResultStatus = "below_normal"
)

func (s ResultStatus) Valid() bool {
	switch s {
	case ResultNormal, ResultElevated, ResultCritical, ResultBelowNormal:
		return true
	}
	return false
}

// Analysis is a lab result attached to a fish record ("fish_analyses").
// The parent's AnalysisIDs is the authoritative index to it.
type Analysis struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"         json:"id"`
	FishRecordID   primitive.ObjectID `bson:"fish_data_id"          json:"fish_data_id"`
	AnalysisType   AnalysisType       `bson:"analysis_type"         json:"analysis_type"`
	TestName       string             `bson:"test_name"             json:"test_name"`
	TestCode       string             `bson:"test_code,omitempty"   json:"test_code,omitempty"`
	Value          float64            `bson:"value"                 json:"value"`
	Unit           string             `bson:"unit"                  json:"unit"`
	ReferenceRange ReferenceRange     `bson:"reference_range"       json:"reference_range"`
	ResultStatus   ResultStatus       `bson:"result_status"         json:"result_status"`
	Laboratory     Laboratory         `bson:"laboratory"            json:"laboratory"`
	SampleDate     *time.Time         `bson:"sample_date,omitempty" json:"sample_date,omitempty"`
	AnalysisDate   *time.Time         `bson:"analysis_date,omitempty" json:"analysis_date,omitempty"`
	Methodology    string             `bson:"methodology,omitempty" json:"methodology,omitempty"`
	Notes          string             `bson:"notes,omitempty"       json:"notes,omitempty"`
	Attachments    []string           `bson:"attachments"           json:"attachments"`
	RecordedBy     primitive.ObjectID `bson:"recorded_by"           json:"recorded_by"`
	CreatedAt      time.Time          `bson:"createdAt"             json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"             json:"updatedAt"`
}

type ReferenceRange struct {
	Min      *float64 `bson:"min,omitempty"      json:"min,omitempty"`
	Max      *float64 `bson:"max,omitempty"      json:"max,omitempty"`
	Standard string   `bson:"standard,omitempty" json:"standard,omitempty"` // WHO, FDA, EU ...
}

type Laboratory struct {
	Name          string `bson:"name,omitempty"          json:"name,omitempty"`
	Accreditation string `bson:"accreditation,omitempty" json:"accreditation,omitempty"`
	ReportNumber  string `bson:"report_number,omitempty" json:"report_number,omitempty"`
}
