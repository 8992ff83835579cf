package fishdata

import (
	"context"
	"errors"
	"strings"
	"time"

	"sanfish/images"
	"sanfish/models"
	"sanfish/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreateResult is returned by CreateWithDiseases.
type CreateResult struct {
	Record        models.FishRecord    `json:"fish_data"`
	DiseasesCount int                  `json:"diseases_count"`
	DiseaseIDs    []primitive.ObjectID `json:"disease_ids"`
}

// DeleteResult counts the rows removed by Delete.
type DeleteResult struct {
	Fish     int   `json:"fish"`
	Diseases int64 `json:"diseases"`
	Analyses int64 `json:"analyses"`
}

type ListResult struct {
	Records []models.FishRecord `json:"data"`
	Total   int64               `json:"total"`
	Page    int                 `json:"page"`
	Limit   int                 `json:"limit"`
	Pages   int                 `json:"pages"`
}

type Stats struct {
	store.FishStats
	TotalDiseases int64 `json:"totalDiseases"`
}

func buildDiseases(fishID primitive.ObjectID, in []DiseaseInput, now time.Time) []models.Disease {
	out := make([]models.Disease, len(in))
	for i, d := range in {
		severity := d.Severity
		if severity == "" {
			severity = models.SeverityMedium
		}
		status := d.Status
		if status == "" {
			status = models.DiseaseStatusActive
		}
		detected := now
		if t := d.DetectedDate.ptr(); t != nil {
			detected = *t
		}
		out[i] = models.Disease{
			FishRecordID:    fishID,
			DiseaseName:     strings.TrimSpace(d.DiseaseName),
			DiseaseCode:     strings.TrimSpace(d.DiseaseCode),
			Severity:        severity,
			DetectedDate:    detected,
			DetectionMethod: strings.TrimSpace(d.DetectionMethod),
			Symptoms:        nonNilStrings(d.Symptoms),
			Treatment:       nonNilMap(d.Treatment),
			Status:          status,
			Images:          nonNilStrings(d.Images),
			LabResults:      nonNilMap(d.LabResults),
		}
	}
	return out
}

func diseaseIDs(ds []models.Disease) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	return ids
}

// CreateWithDiseases creates a fish record together with its initial disease
// batch. Either the record and every disease are stored, or nothing is.
func (s *Service) CreateWithDiseases(ctx context.Context, actor Actor, in CreateInput) (res CreateResult, err error) {
	defer func(start time.Time) { s.metrics.observe("create", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	speciesID, err := validateCreate(in)
	if err != nil {
		return res, err
	}
	now := s.now().UTC()
	status := in.Status
	if status == "" {
		status = models.FishStatusActive
	}

	var rec models.FishRecord
	var created []models.Disease
	err = s.write(ctx, "create", func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.FindSpecies(ctx, speciesID); err != nil {
			return fromStore(err, "species")
		}

		rec = models.FishRecord{
			OwnerID:         actor.ID,
			SubmittedBy:     actor.ID,
			SubmittedByRole: actor.Role,
			SpeciesID:       speciesID,
			DiseaseIDs:      []primitive.ObjectID{},
			AnalysisIDs:     []primitive.ObjectID{},
			FishName:        strings.TrimSpace(in.FishName),
			CommonName:      strings.TrimSpace(in.CommonName),
			ScientificName:  strings.TrimSpace(in.ScientificName),
			CatchDate:       *in.CatchDate.ptr(),
			SubmissionDate:  now,
			CatchDetails:    in.CatchDetails,
			Physical:        in.Physical,
			Location:        normalizeLocation(*in.Location, now),
			Images:          nonNilStrings(in.Images),
			Metadata:        nonNilMap(in.Metadata),
			Tags:            normalizeTags(in.Tags),
			Status:          status,
			Notes:           strings.TrimSpace(in.Notes),
		}
		if err := tx.InsertFish(ctx, &rec); err != nil {
			return fromStore(err, "fish record")
		}

		created = nil
		if len(in.Diseases) == 0 {
			return nil
		}
		created = buildDiseases(rec.ID, in.Diseases, now)
		if err := tx.InsertDiseases(ctx, created); err != nil {
			return fromStore(err, "diseases")
		}
		rec.DiseaseIDs = diseaseIDs(created)
		return fromStore(tx.ReplaceFish(ctx, &rec), "fish record")
	})
	if err != nil {
		return res, err
	}
	s.log.Info("fish record created",
		zap.String("fish_id", rec.ID.Hex()),
		zap.String("owner_id", actor.ID.Hex()),
		zap.Int("diseases", len(created)))

	res = CreateResult{Record: rec, DiseasesCount: len(created), DiseaseIDs: diseaseIDs(created)}
	// The write is committed; a failed hydration still returns the stored record.
	if herr := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		return s.hydrate(ctx, tx, &res.Record, false)
	}); herr != nil {
		s.log.Warn("hydrate created record", zap.String("fish_id", rec.ID.Hex()), zap.Error(herr))
	}
	return res, nil
}

// AppendDiseases adds a disease batch to an existing record.
func (s *Service) AppendDiseases(ctx context.Context, actor Actor, fishID string, in []DiseaseInput) (out []models.Disease, err error) {
	defer func(start time.Time) { s.metrics.observe("append_diseases", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(fishID, "fish record id")
	if err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, validationf("at least one disease is required")
	}
	if err := validateDiseases(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	err = s.write(ctx, "append_diseases", func(ctx context.Context, tx store.Tx) error {
		rec, err := s.findFish(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.permissiveAppend {
			if err := s.authorize(actor, rec, ActionAppendDiseases); err != nil {
				return err
			}
		}
		out = buildDiseases(rec.ID, in, now)
		if err := tx.InsertDiseases(ctx, out); err != nil {
			return fromStore(err, "diseases")
		}
		rec.DiseaseIDs = append(rec.DiseaseIDs, diseaseIDs(out)...)
		return fromStore(tx.ReplaceFish(ctx, &rec), "fish record")
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("diseases appended", zap.String("fish_id", fishID), zap.Int("count", len(out)))
	return out, nil
}

// Update applies the allow-listed fields present in p. A non-nil p.Diseases
// deletes every existing disease of the record and creates the new set. Stored
// images dropped by a non-nil p.Images are removed after commit.
func (s *Service) Update(ctx context.Context, actor Actor, fishID string, p Patch) (rec models.FishRecord, err error) {
	defer func(start time.Time) { s.metrics.observe("update", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(fishID, "fish record id")
	if err != nil {
		return rec, err
	}
	speciesID, err := validatePatch(p)
	if err != nil {
		return rec, err
	}
	now := s.now().UTC()
	var dropped []string
	err = s.write(ctx, "update", func(ctx context.Context, tx store.Tx) error {
		var err error
		rec, err = s.findFish(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(actor, rec, ActionUpdate); err != nil {
			return err
		}
		dropped = nil
		if p.Images != nil {
			dropped = missingFrom(rec.Images, *p.Images)
		}
		if p.Version != nil && *p.Version != rec.Version {
			return &Error{Kind: ErrConflict, Message: "fish record was modified since it was loaded, reload and retry"}
		}
		if speciesID != nil {
			if _, err := tx.FindSpecies(ctx, *speciesID); err != nil {
				return fromStore(err, "species")
			}
			rec.SpeciesID = *speciesID
		}
		applyPatch(&rec, p, now)

		if p.Diseases != nil {
			if _, err := tx.DeleteDiseasesByFish(ctx, rec.ID); err != nil {
				return fromStore(err, "diseases")
			}
			rec.DiseaseIDs = []primitive.ObjectID{}
			if len(*p.Diseases) > 0 {
				created := buildDiseases(rec.ID, *p.Diseases, now)
				if err := tx.InsertDiseases(ctx, created); err != nil {
					return fromStore(err, "diseases")
				}
				rec.DiseaseIDs = diseaseIDs(created)
			}
		}
		return fromStore(tx.ReplaceFish(ctx, &rec), "fish record")
	})
	if err != nil {
		return models.FishRecord{}, err
	}
	s.log.Info("fish record updated", zap.String("fish_id", fishID), zap.Int64("version", rec.Version))
	s.removeImages(ctx, fishID, dropped)

	if herr := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		return s.hydrate(ctx, tx, &rec, false)
	}); herr != nil {
		s.log.Warn("hydrate updated record", zap.String("fish_id", fishID), zap.Error(herr))
	}
	return rec, nil
}

func applyPatch(rec *models.FishRecord, p Patch, now time.Time) {
	if p.FishName != nil {
		rec.FishName = strings.TrimSpace(*p.FishName)
	}
	if p.CommonName != nil {
		rec.CommonName = strings.TrimSpace(*p.CommonName)
	}
	if p.ScientificName != nil {
		rec.ScientificName = strings.TrimSpace(*p.ScientificName)
	}
	if t := p.CatchDate.ptr(); t != nil {
		rec.CatchDate = *t
	}
	if p.CatchDetails != nil {
		rec.CatchDetails = p.CatchDetails
	}
	if p.Physical != nil {
		rec.Physical = p.Physical
	}
	if p.Location != nil {
		rec.Location = normalizeLocation(*p.Location, now)
	}
	if p.Notes != nil {
		rec.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Tags != nil {
		rec.Tags = normalizeTags(*p.Tags)
	}
	if p.Metadata != nil {
		rec.Metadata = nonNilMap(*p.Metadata)
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Images != nil {
		rec.Images = nonNilStrings(*p.Images)
	}
}

// Delete hard-deletes a record with its diseases and analyses. Stored image
// files are removed after commit; failures there are logged only.
func (s *Service) Delete(ctx context.Context, actor Actor, fishID string) (res DeleteResult, err error) {
	defer func(start time.Time) { s.metrics.observe("delete", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(fishID, "fish record id")
	if err != nil {
		return res, err
	}
	var imgs []string
	err = s.write(ctx, "delete", func(ctx context.Context, tx store.Tx) error {
		rec, err := s.findFish(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(actor, rec, ActionDelete); err != nil {
			return err
		}
		imgs = rec.Images
		res = DeleteResult{Fish: 1}
		if res.Diseases, err = tx.DeleteDiseasesByFish(ctx, id); err != nil {
			return fromStore(err, "diseases")
		}
		if res.Analyses, err = tx.DeleteAnalysesByFish(ctx, id); err != nil {
			return fromStore(err, "analyses")
		}
		return fromStore(tx.DeleteFish(ctx, id), "fish record")
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.log.Info("fish record deleted",
		zap.String("fish_id", fishID),
		zap.Int64("diseases", res.Diseases),
		zap.Int64("analyses", res.Analyses))
	s.removeImages(ctx, fishID, imgs)
	return res, nil
}

// missingFrom returns the refs of old that next no longer carries.
func missingFrom(old, next []string) []string {
	keep := make(map[string]struct{}, len(next))
	for _, ref := range next {
		keep[ref] = struct{}{}
	}
	var out []string
	for _, ref := range old {
		if _, ok := keep[ref]; !ok {
			out = append(out, ref)
		}
	}
	return out
}

func (s *Service) removeImages(ctx context.Context, fishID string, refs []string) {
	if s.images == nil {
		return
	}
	for _, ref := range refs {
		if ref == "" || images.IsInline(ref) {
			continue
		}
		if err := s.images.Delete(ctx, ref); err != nil {
			if errors.Is(err, images.ErrNotManaged) {
				continue
			}
			s.log.Warn("delete image", zap.String("fish_id", fishID), zap.String("ref", ref), zap.Error(err))
		}
	}
}

// Get returns one hydrated record including its analyses.
func (s *Service) Get(ctx context.Context, actor Actor, fishID string) (rec models.FishRecord, err error) {
	id, err := parseID(fishID, "fish record id")
	if err != nil {
		return rec, err
	}
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if rec, err = s.findFish(ctx, tx, id); err != nil {
			return err
		}
		if err := s.authorize(actor, rec, ActionView); err != nil {
			return err
		}
		return s.hydrate(ctx, tx, &rec, true)
	})
	if err != nil {
		return models.FishRecord{}, err
	}
	return rec, nil
}

// List returns a page of records. Non-admins only ever match their own.
func (s *Service) List(ctx context.Context, actor Actor, q ListQuery) (ListResult, error) {
	page, limit, skip := pageBounds(q.Page, q.Limit)
	f := store.FishFilter{
		OwnerID: OwnerScope(actor),
		Status:  q.Status,
		Country: strings.TrimSpace(q.Country),
		Region:  strings.TrimSpace(q.Region),
		Skip:    skip,
		Limit:   int64(limit),
	}
	if q.SpeciesID != "" {
		id, err := parseID(q.SpeciesID, "species_id")
		if err != nil {
			return ListResult{}, err
		}
		f.SpeciesID = &id
	}
	if err := validateStatus(q.Status); err != nil {
		return ListResult{}, err
	}

	res := ListResult{Page: page, Limit: limit}
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		recs, total, err := tx.ListFish(ctx, f)
		if err != nil {
			return fromStore(err, "fish records")
		}
		for i := range recs {
			if err := s.hydrate(ctx, tx, &recs[i], true); err != nil {
				return err
			}
		}
		res.Records, res.Total = recs, total
		return nil
	})
	if err != nil {
		return ListResult{}, err
	}
	if res.Records == nil {
		res.Records = []models.FishRecord{}
	}
	res.Pages = pages(res.Total, limit)
	return res, nil
}

// Stats summarizes the records visible to the actor.
func (s *Service) Stats(ctx context.Context, actor Actor) (Stats, error) {
	var out Stats
	owner := OwnerScope(actor)
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		st, err := tx.FishStats(ctx, owner)
		if err != nil {
			return fromStore(err, "statistics")
		}
		n, err := tx.CountDiseases(ctx, owner)
		if err != nil {
			return fromStore(err, "statistics")
		}
		out = Stats{FishStats: st, TotalDiseases: n}
		return nil
	})
	return out, err
}
