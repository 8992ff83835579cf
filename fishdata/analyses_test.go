package fishdata

import (
	"context"
	"testing"

	"sanfish/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validAnalysis() AnalysisInput {
	v := 7.4
	return AnalysisInput{
		AnalysisType: models.AnalysisChemical,
		TestName:     "pH",
		Value:        &v,
		Unit:         "pH",
		Laboratory:   models.Laboratory{Name: "Marmara Lab"},
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID))
	require.NoError(t, err)
	fishID := res.Record.ID.Hex()

	first, err := f.svc.AddAnalysis(ctx, f.partner, fishID, validAnalysis())
	require.NoError(t, err)
	assert.Equal(t, models.ResultNormal, first.ResultStatus)
	assert.Equal(t, f.partner.ID, first.RecordedBy)
	assert.Equal(t, res.Record.ID, first.FishRecordID)

	second, err := f.svc.AddAnalysis(ctx, f.admin, fishID, validAnalysis())
	require.NoError(t, err)

	list, err := f.svc.ListAnalyses(ctx, f.partner, fishID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	rec, err := f.svc.Get(ctx, f.partner, fishID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{first.ID, second.ID}, rec.AnalysisIDs)
	assert.Len(t, rec.Analyses, 2)

	status := models.ResultElevated
	value := 8.9
	updated, err := f.svc.UpdateAnalysis(ctx, f.partner, first.ID.Hex(), AnalysisPatch{ResultStatus: &status, Value: &value})
	require.NoError(t, err)
	assert.Equal(t, models.ResultElevated, updated.ResultStatus)
	assert.Equal(t, 8.9, updated.Value)
	assert.Equal(t, "pH", updated.TestName)

	got, err := f.svc.GetAnalysis(ctx, f.partner, first.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 8.9, got.Value)

	require.NoError(t, f.svc.DeleteAnalysis(ctx, f.partner, first.ID.Hex()))
	rec, err = f.svc.Get(ctx, f.partner, fishID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{second.ID}, rec.AnalysisIDs)

	_, err = f.svc.GetAnalysis(ctx, f.partner, first.ID.Hex())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAnalysisAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID))
	require.NoError(t, err)
	fishID := res.Record.ID.Hex()
	a, err := f.svc.AddAnalysis(ctx, f.partner, fishID, validAnalysis())
	require.NoError(t, err)

	_, err = f.svc.AddAnalysis(ctx, f.other, fishID, validAnalysis())
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.ListAnalyses(ctx, f.other, fishID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.GetAnalysis(ctx, f.other, a.ID.Hex())
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, f.svc.DeleteAnalysis(ctx, f.other, a.ID.Hex()), ErrForbidden)

	notes := "tampered"
	_, err = f.svc.UpdateAnalysis(ctx, f.other, a.ID.Hex(), AnalysisPatch{Notes: &notes})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAddAnalysisValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID))
	require.NoError(t, err)

	in := validAnalysis()
	in.Value = nil
	_, err = f.svc.AddAnalysis(ctx, f.partner, res.Record.ID.Hex(), in)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "analysis_type, test_name, value and unit are required", Message(err))

	in = validAnalysis()
	in.AnalysisType = "astrology"
	_, err = f.svc.AddAnalysis(ctx, f.partner, res.Record.ID.Hex(), in)
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.AddAnalysis(ctx, f.partner, primitive.NewObjectID().Hex(), validAnalysis())
	require.ErrorIs(t, err, ErrNotFound)
}
