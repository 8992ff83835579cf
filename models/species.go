package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Species is reference data in the "fish_species" collection.
// scientific_name carries a unique index.
type Species struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"       json:"id"`
	ScientificName     string             `bson:"scientific_name"     json:"scientific_name"`
	CommonName         string             `bson:"common_name,omitempty" json:"common_name,omitempty"`
	Family             string             `bson:"family,omitempty"    json:"family,omitempty"`
	Genus              string             `bson:"genus,omitempty"     json:"genus,omitempty"`
	Species            string             `bson:"species,omitempty"   json:"species,omitempty"`
	Aliases            []string           `bson:"aliases"             json:"aliases"`
	Characteristics    map[string]any     `bson:"characteristics"     json:"characteristics"`
	TypicalLocations   []string           `bson:"typical_locations"   json:"typical_locations"`
	KnownDiseases      []string           `bson:"known_diseases"      json:"known_diseases"`
	ConservationStatus map[string]any     `bson:"conservation_status" json:"conservation_status"`
	CreatedAt          time.Time          `bson:"createdAt"           json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"           json:"updatedAt"`
}
