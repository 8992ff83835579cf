// Package store persists fish records, their disease and analysis
// sub-records, species reference data and read-only user accounts.
//
// Every multi-document write goes through Store.RunInTransaction: the callback
// receives a Tx bound to one unit of work, and either all of its writes become
// visible or none do.
package store

import (
	"context"
	"errors"

	"sanfish/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrDuplicate       = errors.New("store: duplicate key")
	ErrVersionConflict = errors.New("store: version conflict")
	ErrTransient       = errors.New("store: transient failure")
)

// Store opens units of work over the backing database.
type Store interface {
	// RunInTransaction runs fn inside one transaction. A non-nil error from fn
	// (or from commit) leaves the store exactly as it was before the call.
	// fn may be invoked more than once when the backend retries a transient
	// transaction failure.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View runs fn against a read-only view.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close(ctx context.Context) error
}

// Tx exposes the collections inside a unit of work.
type Tx interface {
	FindUser(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)

	FindSpecies(ctx context.Context, id primitive.ObjectID) (models.Species, error)
	ListSpecies(ctx context.Context, f SpeciesFilter) ([]models.Species, int64, error)
	InsertSpecies(ctx context.Context, sp *models.Species) error
	ReplaceSpecies(ctx context.Context, sp *models.Species) error
	DeleteSpecies(ctx context.Context, id primitive.ObjectID) error
	TopFamilies(ctx context.Context, limit int) ([]Bucket, int64, error)

	InsertFish(ctx context.Context, rec *models.FishRecord) error
	FindFish(ctx context.Context, id primitive.ObjectID) (models.FishRecord, error)
	ListFish(ctx context.Context, f FishFilter) ([]models.FishRecord, int64, error)
	CountFish(ctx context.Context, f FishFilter) (int64, error)
	// ReplaceFish overwrites the stored record when its version still equals
	// rec.Version, then bumps rec.Version. A stale version yields ErrVersionConflict.
	ReplaceFish(ctx context.Context, rec *models.FishRecord) error
	DeleteFish(ctx context.Context, id primitive.ObjectID) error
	FishStats(ctx context.Context, owner *primitive.ObjectID) (FishStats, error)

	InsertDiseases(ctx context.Context, ds []models.Disease) error
	FindDisease(ctx context.Context, id primitive.ObjectID) (models.Disease, error)
	ListDiseasesByFish(ctx context.Context, fishID primitive.ObjectID) ([]models.Disease, error)
	DeleteDisease(ctx context.Context, id primitive.ObjectID) error
	DeleteDiseasesByFish(ctx context.Context, fishID primitive.ObjectID) (int64, error)
	CountDiseases(ctx context.Context, owner *primitive.ObjectID) (int64, error)

	InsertAnalysis(ctx context.Context, a *models.Analysis) error
	FindAnalysis(ctx context.Context, id primitive.ObjectID) (models.Analysis, error)
	ListAnalysesByFish(ctx context.Context, fishID primitive.ObjectID) ([]models.Analysis, error)
	ReplaceAnalysis(ctx context.Context, a *models.Analysis) error
	DeleteAnalysis(ctx context.Context, id primitive.ObjectID) error
	DeleteAnalysesByFish(ctx context.Context, fishID primitive.ObjectID) (int64, error)
}

// FishFilter narrows fish record listings. A nil OwnerID means every owner.
type FishFilter struct {
	OwnerID   *primitive.ObjectID
	SpeciesID *primitive.ObjectID
	Status    models.FishStatus
	Country   string
	Region    string
	Skip      int64
	Limit     int64
}

// SpeciesFilter fields match case-insensitively as substrings.
type SpeciesFilter struct {
	Family string
	Genus  string
	Search string // scientific_name, common_name or family
	Skip   int64
	Limit  int64
}

type Bucket struct {
	Key   string `bson:"_id"   json:"_id"`
	Count int64  `bson:"count" json:"count"`
}

type FishStats struct {
	Total             int64               `json:"total"`
	ByStatus          []Bucket            `json:"byStatus"`
	ByLocationType    []Bucket            `json:"byLocationType"`
	ByCountry         []Bucket            `json:"byCountry"`
	RecentSubmissions []models.FishRecord `json:"recentSubmissions"`
}
