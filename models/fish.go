package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FishStatus string

const (
	FishStatusActive   FishStatus = "active"
	FishStatusDraft    FishStatus = "draft"
	FishStatusPending  FishStatus = "pending"
	FishStatusArchived FishStatus = "archived"
	FishStatusDeleted  FishStatus = "deleted"
)

func (s FishStatus) Valid() bool {
	switch s {
	case FishStatusActive, FishStatusDraft, FishStatusPending, FishStatusArchived, FishStatusDeleted:
		return true
	}
	return false
}

type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexUnknown:
		return true
	}
	return false
}

type LocationType string

const (
	LocationOcean   LocationType = "ocean"
	LocationRiver   LocationType = "river"
	LocationLake    LocationType = "lake"
	LocationFarm    LocationType = "farm"
	LocationCoastal LocationType = "coastal"
	LocationDeepSea LocationType = "deep_sea"
)

func (t LocationType) Valid() bool {
	switch t {
	case LocationOcean, LocationRiver, LocationLake, LocationFarm, LocationCoastal, LocationDeepSea:
		return true
	}
	return false
}

// FishRecord is one logged catch ("fish_data"). Diseases and analyses live in
// their own collections; DiseaseIDs/AnalysisIDs are the forward references and
// must match the children's fish_data_id back-references.
type FishRecord struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"     json:"id"`
	OwnerID         primitive.ObjectID   `bson:"user_id"           json:"user_id"`
	SubmittedBy     primitive.ObjectID   `bson:"submitted_by"      json:"submitted_by"`
	SubmittedByRole Role                 `bson:"submitted_by_role" json:"submitted_by_role"` // snapshot, never re-read from users
	SpeciesID       primitive.ObjectID   `bson:"species_id"        json:"species_id"`
	DiseaseIDs      []primitive.ObjectID `bson:"disease_ids"       json:"disease_ids"`
	AnalysisIDs     []primitive.ObjectID `bson:"analysis_ids"      json:"analysis_ids"`

	FishName       string `bson:"fish_name,omitempty"       json:"fish_name,omitempty"`
	CommonName     string `bson:"common_name,omitempty"     json:"common_name,omitempty"`
	ScientificName string `bson:"scientific_name,omitempty" json:"scientific_name,omitempty"`

	CatchDate      time.Time                `bson:"catch_date"                         json:"catch_date"`
	SubmissionDate time.Time                `bson:"submission_date"                    json:"submission_date"`
	CatchDetails   *CatchDetails            `bson:"catch_details,omitempty"            json:"catch_details,omitempty"`
	Physical       *PhysicalCharacteristics `bson:"physical_characteristics,omitempty" json:"physical_characteristics,omitempty"`
	Location       Location                 `bson:"location"                           json:"location"`

	Images   []string       `bson:"images"           json:"images"`
	Metadata map[string]any `bson:"metadata"         json:"metadata"`
	Tags     []string       `bson:"tags"             json:"tags"`
	Status   FishStatus     `bson:"status"           json:"status"`
	Notes    string         `bson:"notes,omitempty"  json:"notes,omitempty"`

	// Version is checked and incremented on every write of the parent document.
	Version   int64     `bson:"version"   json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Injected-only (NOT stored in Mongo):
	Species   *Species     `bson:"-" json:"species,omitempty"`
	Diseases  []Disease    `bson:"-" json:"diseases,omitempty"`
	Analyses  []Analysis   `bson:"-" json:"analyses,omitempty"`
	Owner     *UserSummary `bson:"-" json:"owner,omitempty"`
	Submitter *UserSummary `bson:"-" json:"submitter,omitempty"`
}

type CatchDetails struct {
	FishingMethod     string   `bson:"fishing_method,omitempty"     json:"fishing_method,omitempty"`
	Depth             *float64 `bson:"depth,omitempty"              json:"depth,omitempty"` // m
	TimeOfDay         string   `bson:"time_of_day,omitempty"        json:"time_of_day,omitempty"`
	WeatherConditions string   `bson:"weather_conditions,omitempty" json:"weather_conditions,omitempty"`
	WaterTemperature  *float64 `bson:"water_temperature,omitempty"  json:"water_temperature,omitempty"` // °C
	Salinity          *float64 `bson:"salinity,omitempty"           json:"salinity,omitempty"`          // ppt
}

type PhysicalCharacteristics struct {
	Length          *float64 `bson:"length,omitempty"           json:"length,omitempty"` // cm
	Weight          *float64 `bson:"weight,omitempty"           json:"weight,omitempty"` // g
	Age             *float64 `bson:"age,omitempty"              json:"age,omitempty"`    // years
	Sex             Sex      `bson:"sex,omitempty"              json:"sex,omitempty"`
	ColorPattern    string   `bson:"color_pattern,omitempty"    json:"color_pattern,omitempty"`
	BodyCondition   string   `bson:"body_condition,omitempty"   json:"body_condition,omitempty"`
	ScalesCondition string   `bson:"scales_condition,omitempty" json:"scales_condition,omitempty"`
	FinsCondition   string   `bson:"fins_condition,omitempty"   json:"fins_condition,omitempty"`
}

type Location struct {
	LocationName      string             `bson:"location_name,omitempty"      json:"location_name,omitempty"`
	Coordinates       *Coordinates       `bson:"coordinates,omitempty"        json:"coordinates,omitempty"`
	LocationType      LocationType       `bson:"location_type"                json:"location_type"`
	WaterConditions   *WaterConditions   `bson:"water_conditions,omitempty"   json:"water_conditions,omitempty"`
	EnvironmentalData *EnvironmentalData `bson:"environmental_data,omitempty" json:"environmental_data,omitempty"`
	Region            string             `bson:"region,omitempty"             json:"region,omitempty"`
	Country           string             `bson:"country,omitempty"            json:"country,omitempty"`
	RecordedAt        time.Time          `bson:"recorded_at"                  json:"recorded_at"`
}

type Coordinates struct {
	Latitude  *float64 `bson:"latitude,omitempty"  json:"latitude,omitempty"`  // [-90, 90]
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"` // [-180, 180]
}

type WaterConditions struct {
	Temperature     *float64 `bson:"temperature,omitempty"      json:"temperature,omitempty"`
	Salinity        *float64 `bson:"salinity,omitempty"         json:"salinity,omitempty"`
	PH              *float64 `bson:"pH,omitempty"               json:"pH,omitempty"`
	DissolvedOxygen *float64 `bson:"dissolved_oxygen,omitempty" json:"dissolved_oxygen,omitempty"` // mg/L
	Turbidity       string   `bson:"turbidity,omitempty"        json:"turbidity,omitempty"`
}

type EnvironmentalData struct {
	Depth        *float64 `bson:"depth,omitempty"         json:"depth,omitempty"`
	CurrentSpeed *float64 `bson:"current_speed,omitempty" json:"current_speed,omitempty"` // knots
	WaveHeight   *float64 `bson:"wave_height,omitempty"   json:"wave_height,omitempty"`
	BottomType   string   `bson:"bottom_type,omitempty"   json:"bottom_type,omitempty"`
	Vegetation   string   `bson:"vegetation,omitempty"    json:"vegetation,omitempty"`
}
