package fishdata

import (
	"context"
	"strings"
	"time"

	"sanfish/models"
	"sanfish/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AddAnalysis records a lab analysis against a fish record and links it from
// the record's analysis_ids.
func (s *Service) AddAnalysis(ctx context.Context, actor Actor, fishID string, in AnalysisInput) (a models.Analysis, err error) {
	defer func(start time.Time) { s.metrics.observe("add_analysis", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(fishID, "fish record id")
	if err != nil {
		return a, err
	}
	if err := validateAnalysis(in); err != nil {
		return a, err
	}
	status := in.ResultStatus
	if status == "" {
		status = models.ResultNormal
	}
	err = s.write(ctx, "add_analysis", func(ctx context.Context, tx store.Tx) error {
		rec, err := s.findFish(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(actor, rec, ActionManageAnalyses); err != nil {
			return err
		}
		a = models.Analysis{
			FishRecordID:   rec.ID,
			AnalysisType:   in.AnalysisType,
			TestName:       strings.TrimSpace(in.TestName),
			TestCode:       strings.TrimSpace(in.TestCode),
			Value:          *in.Value,
			Unit:           strings.TrimSpace(in.Unit),
			ReferenceRange: in.ReferenceRange,
			ResultStatus:   status,
			Laboratory:     in.Laboratory,
			SampleDate:     in.SampleDate.ptr(),
			AnalysisDate:   in.AnalysisDate.ptr(),
			Methodology:    strings.TrimSpace(in.Methodology),
			Notes:          strings.TrimSpace(in.Notes),
			Attachments:    nonNilStrings(in.Attachments),
			RecordedBy:     actor.ID,
		}
		if err := tx.InsertAnalysis(ctx, &a); err != nil {
			return fromStore(err, "analysis")
		}
		rec.AnalysisIDs = append(rec.AnalysisIDs, a.ID)
		return fromStore(tx.ReplaceFish(ctx, &rec), "fish record")
	})
	if err != nil {
		return models.Analysis{}, err
	}
	s.log.Info("analysis added", zap.String("fish_id", fishID), zap.String("analysis_id", a.ID.Hex()))
	return a, nil
}

// ListAnalyses returns a record's analyses, newest first.
func (s *Service) ListAnalyses(ctx context.Context, actor Actor, fishID string) ([]models.Analysis, error) {
	id, err := parseID(fishID, "fish record id")
	if err != nil {
		return nil, err
	}
	var out []models.Analysis
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := s.findFish(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(actor, rec, ActionView); err != nil {
			return err
		}
		if out, err = tx.ListAnalysesByFish(ctx, id); err != nil {
			return fromStore(err, "analyses")
		}
		return nil
	})
	if out == nil && err == nil {
		out = []models.Analysis{}
	}
	return out, err
}

// analysisWithParent loads an analysis and gates on its parent record.
func (s *Service) analysisWithParent(ctx context.Context, tx store.Tx, actor Actor, id primitive.ObjectID, action Action) (models.Analysis, models.FishRecord, error) {
	a, err := tx.FindAnalysis(ctx, id)
	if err != nil {
		return a, models.FishRecord{}, fromStore(err, "analysis")
	}
	rec, err := s.findFish(ctx, tx, a.FishRecordID)
	if err != nil {
		return a, rec, err
	}
	return a, rec, s.authorize(actor, rec, action)
}

func (s *Service) GetAnalysis(ctx context.Context, actor Actor, analysisID string) (models.Analysis, error) {
	id, err := parseID(analysisID, "analysis id")
	if err != nil {
		return models.Analysis{}, err
	}
	var a models.Analysis
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		a, _, err = s.analysisWithParent(ctx, tx, actor, id, ActionView)
		return err
	})
	if err != nil {
		return models.Analysis{}, err
	}
	return a, nil
}

func (s *Service) UpdateAnalysis(ctx context.Context, actor Actor, analysisID string, p AnalysisPatch) (a models.Analysis, err error) {
	defer func(start time.Time) { s.metrics.observe("update_analysis", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(analysisID, "analysis id")
	if err != nil {
		return a, err
	}
	if err := validateAnalysisPatch(p); err != nil {
		return a, err
	}
	err = s.write(ctx, "update_analysis", func(ctx context.Context, tx store.Tx) error {
		var err error
		if a, _, err = s.analysisWithParent(ctx, tx, actor, id, ActionManageAnalyses); err != nil {
			return err
		}
		applyAnalysisPatch(&a, p)
		return fromStore(tx.ReplaceAnalysis(ctx, &a), "analysis")
	})
	if err != nil {
		return models.Analysis{}, err
	}
	s.log.Info("analysis updated", zap.String("analysis_id", analysisID))
	return a, nil
}

func applyAnalysisPatch(a *models.Analysis, p AnalysisPatch) {
	if p.AnalysisType != nil {
		a.AnalysisType = *p.AnalysisType
	}
	if p.TestName != nil {
		a.TestName = strings.TrimSpace(*p.TestName)
	}
	if p.TestCode != nil {
		a.TestCode = strings.TrimSpace(*p.TestCode)
	}
	if p.Value != nil {
		a.Value = *p.Value
	}
	if p.Unit != nil {
		a.Unit = strings.TrimSpace(*p.Unit)
	}
	if p.ReferenceRange != nil {
		a.ReferenceRange = *p.ReferenceRange
	}
	if p.ResultStatus != nil {
		a.ResultStatus = *p.ResultStatus
	}
	if p.Laboratory != nil {
		a.Laboratory = *p.Laboratory
	}
	if t := p.SampleDate.ptr(); t != nil {
		a.SampleDate = t
	}
	if t := p.AnalysisDate.ptr(); t != nil {
		a.AnalysisDate = t
	}
	if p.Methodology != nil {
		a.Methodology = strings.TrimSpace(*p.Methodology)
	}
	if p.Notes != nil {
		a.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Attachments != nil {
		a.Attachments = nonNilStrings(*p.Attachments)
	}
}

// DeleteAnalysis removes an analysis and pulls it from analysis_ids.
func (s *Service) DeleteAnalysis(ctx context.Context, actor Actor, analysisID string) (err error) {
	defer func(start time.Time) { s.metrics.observe("delete_analysis", start, err) }(time.Now())
	ctx = context.WithoutCancel(ctx)

	id, err := parseID(analysisID, "analysis id")
	if err != nil {
		return err
	}
	err = s.write(ctx, "delete_analysis", func(ctx context.Context, tx store.Tx) error {
		_, rec, err := s.analysisWithParent(ctx, tx, actor, id, ActionManageAnalyses)
		if err != nil {
			return err
		}
		if err := tx.DeleteAnalysis(ctx, id); err != nil {
			return fromStore(err, "analysis")
		}
		rec.AnalysisIDs = without(rec.AnalysisIDs, id)
		return fromStore(tx.ReplaceFish(ctx, &rec), "fish record")
	})
	if err == nil {
		s.log.Info("analysis deleted", zap.String("analysis_id", analysisID))
	}
	return err
}
