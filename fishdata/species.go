package fishdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sanfish/models"
	"sanfish/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type SpeciesList struct {
	Species []models.Species `json:"data"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	Pages   int              `json:"pages"`
}

type SpeciesSummary struct {
	TotalSpecies int64          `json:"total_species"`
	TopFamilies  []store.Bucket `json:"top_families"`
}

const topFamilies = 10

// FindSpecies resolves a species reference.
func (s *Service) FindSpecies(ctx context.Context, speciesID string) (models.Species, error) {
	id, err := parseID(speciesID, "species id")
	if err != nil {
		return models.Species{}, err
	}
	var sp models.Species
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		sp, err = tx.FindSpecies(ctx, id)
		return fromStore(err, "species")
	})
	return sp, err
}

func (s *Service) ListSpecies(ctx context.Context, q SpeciesQuery) (SpeciesList, error) {
	page, limit, skip := pageBounds(q.Page, q.Limit)
	f := store.SpeciesFilter{
		Family: strings.TrimSpace(q.Family),
		Genus:  strings.TrimSpace(q.Genus),
		Search: strings.TrimSpace(q.Search),
		Skip:   skip,
		Limit:  int64(limit),
	}
	out := SpeciesList{Page: page, Limit: limit}
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out.Species, out.Total, err = tx.ListSpecies(ctx, f)
		return fromStore(err, "species")
	})
	if err != nil {
		return SpeciesList{}, err
	}
	if out.Species == nil {
		out.Species = []models.Species{}
	}
	out.Pages = pages(out.Total, limit)
	return out, nil
}

func (s *Service) CreateSpecies(ctx context.Context, in SpeciesInput) (sp models.Species, err error) {
	defer func(start time.Time) { s.metrics.observe("create_species", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	if in.ScientificName == nil || strings.TrimSpace(*in.ScientificName) == "" {
		return sp, validationf("scientific_name is required")
	}
	applySpecies(&sp, in)
	err = s.write(ctx, "create_species", func(ctx context.Context, tx store.Tx) error {
		sp.ID = primitive.NilObjectID
		return speciesWriteErr(tx.InsertSpecies(ctx, &sp))
	})
	if err != nil {
		return models.Species{}, err
	}
	s.log.Info("species created", zap.String("species_id", sp.ID.Hex()), zap.String("scientific_name", sp.ScientificName))
	return sp, nil
}

func (s *Service) UpdateSpecies(ctx context.Context, speciesID string, in SpeciesInput) (sp models.Species, err error) {
	defer func(start time.Time) { s.metrics.observe("update_species", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(speciesID, "species id")
	if err != nil {
		return sp, err
	}
	if in.ScientificName != nil && strings.TrimSpace(*in.ScientificName) == "" {
		return sp, validationf("scientific_name cannot be empty")
	}
	err = s.write(ctx, "update_species", func(ctx context.Context, tx store.Tx) error {
		var err error
		if sp, err = tx.FindSpecies(ctx, id); err != nil {
			return fromStore(err, "species")
		}
		applySpecies(&sp, in)
		return speciesWriteErr(tx.ReplaceSpecies(ctx, &sp))
	})
	if err != nil {
		return models.Species{}, err
	}
	s.log.Info("species updated", zap.String("species_id", speciesID))
	return sp, nil
}

// DeleteSpecies refuses to remove a species that fish records still reference.
func (s *Service) DeleteSpecies(ctx context.Context, actor Actor, speciesID string) (err error) {
	defer func(start time.Time) { s.metrics.observe("delete_species", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(speciesID, "species id")
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return &Error{Kind: ErrForbidden, Message: "only admins can delete species"}
	}
	err = s.write(ctx, "delete_species", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.FindSpecies(ctx, id); err != nil {
			return fromStore(err, "species")
		}
		n, err := tx.CountFish(ctx, store.FishFilter{SpeciesID: &id})
		if err != nil {
			return fromStore(err, "fish records")
		}
		if n > 0 {
			return &Error{Kind: ErrConflict, Message: fmt.Sprintf("species is used by %d fish records, delete those first", n)}
		}
		return fromStore(tx.DeleteSpecies(ctx, id), "species")
	})
	if err == nil {
		s.log.Info("species deleted", zap.String("species_id", speciesID))
	}
	return err
}

func (s *Service) SpeciesStats(ctx context.Context) (SpeciesSummary, error) {
	var out SpeciesSummary
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out.TopFamilies, out.TotalSpecies, err = tx.TopFamilies(ctx, topFamilies)
		return fromStore(err, "species statistics")
	})
	if out.TopFamilies == nil {
		out.TopFamilies = []store.Bucket{}
	}
	return out, err
}

func speciesWriteErr(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return &Error{Kind: ErrConflict, Message: "a species with this scientific_name already exists", Err: err}
	}
	return fromStore(err, "species")
}

func applySpecies(sp *models.Species, in SpeciesInput) {
	if in.ScientificName != nil {
		sp.ScientificName = strings.TrimSpace(*in.ScientificName)
	}
	if in.CommonName != nil {
		sp.CommonName = strings.TrimSpace(*in.CommonName)
	}
	if in.Family != nil {
		sp.Family = strings.TrimSpace(*in.Family)
	}
	if in.Genus != nil {
		sp.Genus = strings.TrimSpace(*in.Genus)
	}
	if in.Species != nil {
		sp.Species = strings.TrimSpace(*in.Species)
	}
	if in.Aliases != nil {
		sp.Aliases = *in.Aliases
	}
	if in.Characteristics != nil {
		sp.Characteristics = *in.Characteristics
	}
	if in.TypicalLocations != nil {
		sp.TypicalLocations = *in.TypicalLocations
	}
	if in.KnownDiseases != nil {
		sp.KnownDiseases = *in.KnownDiseases
	}
	if in.ConservationStatus != nil {
		sp.ConservationStatus = *in.ConservationStatus
	}
	sp.Aliases = nonNilStrings(sp.Aliases)
	sp.TypicalLocations = nonNilStrings(sp.TypicalLocations)
	sp.KnownDiseases = nonNilStrings(sp.KnownDiseases)
	sp.Characteristics = nonNilMap(sp.Characteristics)
	sp.ConservationStatus = nonNilMap(sp.ConservationStatus)
}
