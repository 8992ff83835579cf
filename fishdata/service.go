// Package fishdata coordinates writes to fish records and their disease and
// analysis sub-records. Every multi-document change runs as one store
// transaction, and every read or write of a record passes the owner-or-admin
// access gate.
package fishdata

import (
	"context"
	"errors"
	"time"

	"sanfish/images"
	"sanfish/models"
	"sanfish/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type Service struct {
	store   store.Store
	images  images.Store
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time

	// permissiveAppend skips the access gate on AppendDiseases.
	permissiveAppend bool
}

type Option func(*Service)

// WithImages enables best-effort removal of stored images on delete and when
// an update drops them.
func WithImages(st images.Store) Option { return func(s *Service) { s.images = st } }

func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithPermissiveAppend lets any authenticated user append diseases to any
// record, matching the legacy behavior.
func WithPermissiveAppend(on bool) Option { return func(s *Service) { s.permissiveAppend = on } }

func NewService(st store.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: st, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// write runs fn as one unit of work and logs rollbacks with their cause.
// Public write methods pass a context.WithoutCancel context so a client
// disconnect or request deadline never cuts a unit of work short.
func (s *Service) write(ctx context.Context, op string, fn func(ctx context.Context, tx store.Tx) error) error {
	err := s.store.RunInTransaction(ctx, fn)
	if err != nil {
		level := s.log.Warn
		if KindOf(err) == ErrValidation || KindOf(err) == ErrForbidden || KindOf(err) == ErrNotFound {
			level = s.log.Debug
		}
		level("transaction rolled back", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (s *Service) findFish(ctx context.Context, tx store.Tx, id primitive.ObjectID) (models.FishRecord, error) {
	rec, err := tx.FindFish(ctx, id)
	if err != nil {
		return rec, fromStore(err, "fish record")
	}
	return rec, nil
}

// hydrate resolves species, diseases, owner and submitter, plus analyses when
// withAnalyses is set. Missing references are left empty rather than failing
// the read.
func (s *Service) hydrate(ctx context.Context, tx store.Tx, rec *models.FishRecord, withAnalyses bool) error {
	if sp, err := tx.FindSpecies(ctx, rec.SpeciesID); err == nil {
		rec.Species = &sp
	} else if !errors.Is(err, store.ErrNotFound) {
		return fromStore(err, "species")
	}

	diseases, err := tx.ListDiseasesByFish(ctx, rec.ID)
	if err != nil {
		return fromStore(err, "diseases")
	}
	rec.Diseases = orderDiseases(diseases, rec.DiseaseIDs)

	if withAnalyses {
		analyses, err := tx.ListAnalysesByFish(ctx, rec.ID)
		if err != nil {
			return fromStore(err, "analyses")
		}
		rec.Analyses = analyses
	}

	users, err := tx.FindUsers(ctx, []primitive.ObjectID{rec.OwnerID, rec.SubmittedBy})
	if err != nil {
		return fromStore(err, "users")
	}
	if u, ok := users[rec.OwnerID]; ok {
		rec.Owner = u.Summary()
	}
	if u, ok := users[rec.SubmittedBy]; ok {
		rec.Submitter = u.Summary()
	}
	return nil
}

// orderDiseases returns the diseases in disease_ids order.
func orderDiseases(ds []models.Disease, order []primitive.ObjectID) []models.Disease {
	byID := make(map[primitive.ObjectID]models.Disease, len(ds))
	for _, d := range ds {
		byID[d.ID] = d
	}
	out := make([]models.Disease, 0, len(order))
	for _, id := range order {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

func pageBounds(page, limit int) (int, int, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, int64((page - 1) * limit)
}

func pages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
