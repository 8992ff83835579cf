package fishdata

import (
	"context"
	"time"

	"sanfish/models"
	"sanfish/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ListDiseases returns the diseases of a record in disease_ids order.
func (s *Service) ListDiseases(ctx context.Context, actor Actor, fishID string) ([]models.Disease, error) {
	id, err := parseID(fishID, "fish record id")
	if err != nil {
		return nil, err
	}
	var out []models.Disease
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := s.findFish(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(actor, rec, ActionView); err != nil {
			return err
		}
		ds, err := tx.ListDiseasesByFish(ctx, id)
		if err != nil {
			return fromStore(err, "diseases")
		}
		out = orderDiseases(ds, rec.DiseaseIDs)
		return nil
	})
	return out, err
}

// DeleteDisease removes one disease and pulls it from its parent's
// disease_ids in the same unit of work.
func (s *Service) DeleteDisease(ctx context.Context, actor Actor, diseaseID string) (err error) {
	defer func(start time.Time) { s.metrics.observe("delete_disease", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(diseaseID, "disease id")
	if err != nil {
		return err
	}
	err = s.write(ctx, "delete_disease", func(ctx context.Context, tx store.Tx) error {
		d, err := tx.FindDisease(ctx, id)
		if err != nil {
			return fromStore(err, "disease")
		}
		rec, err := s.findFish(ctx, tx, d.FishRecordID)
		if err != nil {
			return err
		}
		if err := s.authorize(actor, rec, ActionManageDiseases); err != nil {
			return err
		}
		if err := tx.DeleteDisease(ctx, id); err != nil {
			return fromStore(err, "disease")
		}
		rec.DiseaseIDs = without(rec.DiseaseIDs, id)
		return fromStore(tx.ReplaceFish(ctx, &rec), "fish record")
	})
	if err == nil {
		s.log.Info("disease deleted", zap.String("disease_id", diseaseID))
	}
	return err
}

func without(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
