package fishdata

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"sanfish/images"
	"sanfish/models"
	"sanfish/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	mem     *store.MemoryStore
	svc     *Service
	metrics *Metrics
	images  *recordingImages

	admin   Actor
	partner Actor
	other   Actor
	species models.Species
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil, opts...)
}

// newFixtureWithStore lets a test put a wrapper in front of the memory store.
func newFixtureWithStore(t *testing.T, wrap func(store.Store) store.Store, opts ...Option) *fixture {
	t.Helper()
	mem := store.NewMemoryStore(func() time.Time { return testNow })
	f := &fixture{mem: mem, images: &recordingImages{}}

	admin := mem.PutUser(models.User{Mail: "admin@example.com", Role: models.RoleAdmin, IsActive: true, FirstName: "Ada"})
	partner := mem.PutUser(models.User{Mail: "partner@example.com", Role: models.RolePartner, IsActive: true, FirstName: "Pia"})
	other := mem.PutUser(models.User{Mail: "dev@example.com", Role: models.RoleDeveloper, IsActive: true, FirstName: "Dev"})
	f.admin = Actor{ID: admin.ID, Role: admin.Role}
	f.partner = Actor{ID: partner.ID, Role: partner.Role}
	f.other = Actor{ID: other.ID, Role: other.Role}

	var st store.Store = mem
	if wrap != nil {
		st = wrap(mem)
	}
	f.metrics = NewMetrics(prometheus.NewRegistry())
	all := append([]Option{WithClock(func() time.Time { return testNow }), WithMetrics(f.metrics), WithImages(f.images)}, opts...)
	f.svc = NewService(st, zap.NewNop(), all...)

	sp, err := f.svc.CreateSpecies(context.Background(), SpeciesInput{
		ScientificName: strPtr("Dicentrarchus labrax"),
		CommonName:     strPtr("European seabass"),
		Family:         strPtr("Moronidae"),
	})
	require.NoError(t, err)
	f.species = sp
	return f
}

func strPtr(s string) *string { return &s }

func validCreate(speciesID primitive.ObjectID, diseases ...string) CreateInput {
	in := CreateInput{
		SpeciesID: speciesID.Hex(),
		FishName:  "seabass #1",
		CatchDate: &Timestamp{Time: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		Location:  &models.Location{Country: "TR", Region: "Marmara"},
		Tags:      []string{"net", " net ", "", "spring"},
	}
	for _, name := range diseases {
		in.Diseases = append(in.Diseases, DiseaseInput{DiseaseName: name})
	}
	return in
}

// countRows reads the raw collections, bypassing the access gate.
func (f *fixture) countRows(t *testing.T) (fish, diseases int64) {
	t.Helper()
	require.NoError(t, f.mem.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		if fish, err = tx.CountFish(ctx, store.FishFilter{}); err != nil {
			return err
		}
		diseases, err = tx.CountDiseases(ctx, nil)
		return err
	}))
	return fish, diseases
}

type recordingImages struct {
	deleted []string
}

func (r *recordingImages) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", errors.New("not used")
}

func (r *recordingImages) Delete(_ context.Context, ref string) error {
	if !strings.HasPrefix(ref, "/uploads/") {
		return images.ErrNotManaged
	}
	r.deleted = append(r.deleted, ref)
	return nil
}

// faultyStore injects failures into the Tx handed to write callbacks.
type faultyStore struct {
	store.Store
	wrap func(store.Tx) store.Tx
}

func (s faultyStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.Store.RunInTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, s.wrap(tx))
	})
}

type faultyTx struct {
	store.Tx
	insertDiseases error
	replaceFish    error
}

func (tx faultyTx) InsertDiseases(ctx context.Context, ds []models.Disease) error {
	if tx.insertDiseases != nil {
		return tx.insertDiseases
	}
	return tx.Tx.InsertDiseases(ctx, ds)
}

func (tx faultyTx) ReplaceFish(ctx context.Context, rec *models.FishRecord) error {
	if tx.replaceFish != nil {
		return tx.replaceFish
	}
	return tx.Tx.ReplaceFish(ctx, rec)
}

func withFault(ft faultyTx) func(store.Store) store.Store {
	return func(st store.Store) store.Store {
		return faultyStore{Store: st, wrap: func(tx store.Tx) store.Tx {
			ft.Tx = tx
			return ft
		}}
	}
}

func TestCreateWithDiseases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "fin rot", "ich"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.DiseasesCount)
	require.Len(t, res.DiseaseIDs, 2)

	rec := res.Record
	assert.Equal(t, res.DiseaseIDs, rec.DiseaseIDs)
	assert.Equal(t, f.partner.ID, rec.OwnerID)
	assert.Equal(t, f.partner.ID, rec.SubmittedBy)
	assert.Equal(t, models.RolePartner, rec.SubmittedByRole)
	assert.Equal(t, models.FishStatusActive, rec.Status)
	assert.Equal(t, models.LocationOcean, rec.Location.LocationType)
	assert.Equal(t, testNow, rec.Location.RecordedAt)
	assert.Equal(t, []string{"net", "spring"}, rec.Tags)
	require.NotNil(t, rec.Species)
	assert.Equal(t, "Dicentrarchus labrax", rec.Species.ScientificName)
	require.NotNil(t, rec.Owner)
	assert.Equal(t, "partner@example.com", rec.Owner.Mail)

	require.Len(t, rec.Diseases, 2)
	assert.Equal(t, "fin rot", rec.Diseases[0].DiseaseName)
	assert.Equal(t, "ich", rec.Diseases[1].DiseaseName)
	for _, d := range rec.Diseases {
		assert.Equal(t, rec.ID, d.FishRecordID)
		assert.Equal(t, models.SeverityMedium, d.Severity)
		assert.Equal(t, models.DiseaseStatusActive, d.Status)
		assert.Equal(t, testNow, d.DetectedDate)
	}
}

func TestCreateWithDiseasesWithoutDiseases(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CreateWithDiseases(context.Background(), f.partner, validCreate(f.species.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, res.DiseasesCount)
	assert.Empty(t, res.DiseaseIDs)
	assert.NotNil(t, res.Record.DiseaseIDs)
	assert.Empty(t, res.Record.DiseaseIDs)
}

func TestCreateWithDiseasesValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
		msg    string
	}{
		{"missing species", func(in *CreateInput) { in.SpeciesID = "" }, "species_id is required"},
		{"malformed species", func(in *CreateInput) { in.SpeciesID = "nope" }, "invalid species_id format"},
		{"missing catch date", func(in *CreateInput) { in.CatchDate = nil }, "catch_date is required"},
		{"missing location", func(in *CreateInput) { in.Location = nil }, "location is required"},
		{"bad latitude", func(in *CreateInput) {
			lat := 91.0
			in.Location.Coordinates = &models.Coordinates{Latitude: &lat}
		}, "invalid latitude"},
		{"second disease unnamed", func(in *CreateInput) {
			in.Diseases = []DiseaseInput{{DiseaseName: "ich"}, {DiseaseName: "  "}}
		}, "disease #2: disease_name is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreate(f.species.ID)
			tc.mutate(&in)
			_, err := f.svc.CreateWithDiseases(ctx, f.partner, in)
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, Message(err), tc.msg)
		})
	}

	fish, diseases := f.countRows(t)
	assert.Zero(t, fish)
	assert.Zero(t, diseases)
}

func TestCreateWithDiseasesUnknownSpecies(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateWithDiseases(context.Background(), f.partner, validCreate(primitive.NewObjectID(), "ich"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "species not found", Message(err))

	fish, diseases := f.countRows(t)
	assert.Zero(t, fish)
	assert.Zero(t, diseases)
}

func TestCreateWithDiseasesRollsBack(t *testing.T) {
	cases := []struct {
		name  string
		fault faultyTx
		kind  error
	}{
		{"disease insert fails", faultyTx{insertDiseases: store.ErrTransient}, ErrTransient},
		{"parent update fails", faultyTx{replaceFish: errors.New("write concern timeout")}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixtureWithStore(t, withFault(tc.fault))

			_, err := f.svc.CreateWithDiseases(context.Background(), f.partner, validCreate(f.species.ID, "ich", "fin rot"))
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))

			fish, diseases := f.countRows(t)
			assert.Zero(t, fish)
			assert.Zero(t, diseases)
		})
	}
}

func TestAppendDiseases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "ich"))
	require.NoError(t, err)
	id := res.Record.ID.Hex()

	added, err := f.svc.AppendDiseases(ctx, f.partner, id, []DiseaseInput{
		{DiseaseName: "fin rot", Severity: models.SeverityHigh},
		{DiseaseName: "lice"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, models.SeverityHigh, added[0].Severity)

	got, err := f.svc.Get(ctx, f.partner, id)
	require.NoError(t, err)
	require.Len(t, got.DiseaseIDs, 3)
	assert.Equal(t, res.DiseaseIDs[0], got.DiseaseIDs[0])
	assert.Equal(t, added[0].ID, got.DiseaseIDs[1])
	assert.Equal(t, added[1].ID, got.DiseaseIDs[2])

	_, err = f.svc.AppendDiseases(ctx, f.other, id, []DiseaseInput{{DiseaseName: "x"}})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.AppendDiseases(ctx, f.admin, id, []DiseaseInput{{DiseaseName: "x"}})
	require.NoError(t, err)

	_, err = f.svc.AppendDiseases(ctx, f.partner, id, nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.AppendDiseases(ctx, f.partner, primitive.NewObjectID().Hex(), []DiseaseInput{{DiseaseName: "x"}})
	require.ErrorIs(t, err, ErrNotFound)

	_, diseases := f.countRows(t)
	assert.EqualValues(t, 4, diseases)
}

func TestAppendDiseasesPermissive(t *testing.T) {
	f := newFixture(t, WithPermissiveAppend(true))
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID))
	require.NoError(t, err)

	added, err := f.svc.AppendDiseases(ctx, f.other, res.Record.ID.Hex(), []DiseaseInput{{DiseaseName: "ich"}})
	require.NoError(t, err)
	require.Len(t, added, 1)
}

func TestAppendDiseasesRollsBack(t *testing.T) {
	f := newFixtureWithStore(t, withFault(faultyTx{replaceFish: store.ErrVersionConflict}))
	ctx := context.Background()

	// Seed through the unwrapped store; the faulty one rejects every parent write.
	seed := NewService(f.mem, zap.NewNop(), WithClock(func() time.Time { return testNow }))
	res, err := seed.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "ich"))
	require.NoError(t, err)

	_, err = f.svc.AppendDiseases(ctx, f.partner, res.Record.ID.Hex(), []DiseaseInput{{DiseaseName: "lice"}})
	require.ErrorIs(t, err, ErrConflict)

	_, diseases := f.countRows(t)
	assert.EqualValues(t, 1, diseases)
}

func TestUpdateReplacesDiseases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "ich", "fin rot"))
	require.NoError(t, err)
	id := res.Record.ID.Hex()

	replacement := []DiseaseInput{{DiseaseName: "lice", Severity: models.SeverityLow}}
	notes := "re-examined"
	rec, err := f.svc.Update(ctx, f.partner, id, Patch{Notes: &notes, Diseases: &replacement})
	require.NoError(t, err)
	assert.Equal(t, "re-examined", rec.Notes)
	require.Len(t, rec.Diseases, 1)
	assert.Equal(t, "lice", rec.Diseases[0].DiseaseName)
	assert.Equal(t, []primitive.ObjectID{rec.Diseases[0].ID}, rec.DiseaseIDs)

	require.NoError(t, f.mem.View(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, old := range res.DiseaseIDs {
			_, err := tx.FindDisease(ctx, old)
			assert.ErrorIs(t, err, store.ErrNotFound)
		}
		return nil
	}))

	empty := []DiseaseInput{}
	rec, err = f.svc.Update(ctx, f.partner, id, Patch{Diseases: &empty})
	require.NoError(t, err)
	assert.Empty(t, rec.DiseaseIDs)
	_, diseases := f.countRows(t)
	assert.Zero(t, diseases)
}

func TestUpdateKeepsDiseasesWhenAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "ich"))
	require.NoError(t, err)

	status := models.FishStatusArchived
	rec, err := f.svc.Update(ctx, f.partner, res.Record.ID.Hex(), Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.FishStatusArchived, rec.Status)
	assert.Equal(t, res.DiseaseIDs, rec.DiseaseIDs)
}

func TestUpdateAccessAndConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID))
	require.NoError(t, err)
	id := res.Record.ID.Hex()
	notes := "x"

	_, err = f.svc.Update(ctx, f.other, id, Patch{Notes: &notes})
	require.ErrorIs(t, err, ErrForbidden)

	stale := res.Record.Version - 1
	_, err = f.svc.Update(ctx, f.partner, id, Patch{Notes: &notes, Version: &stale})
	require.ErrorIs(t, err, ErrConflict)

	current := res.Record.Version
	rec, err := f.svc.Update(ctx, f.admin, id, Patch{Notes: &notes, Version: &current})
	require.NoError(t, err)
	assert.Equal(t, current+1, rec.Version)

	missing := primitive.NewObjectID().Hex()
	_, err = f.svc.Update(ctx, f.partner, id, Patch{SpeciesID: &missing})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Update(ctx, f.partner, primitive.NewObjectID().Hex(), Patch{Notes: &notes})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateKeepsSubmitterRoleSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID))
	require.NoError(t, err)

	// The partner is promoted after submitting.
	f.mem.PutUser(models.User{ID: f.partner.ID, Mail: "partner@example.com", Role: models.RoleAdmin, IsActive: true})
	notes := "promoted"
	rec, err := f.svc.Update(ctx, Actor{ID: f.partner.ID, Role: models.RoleAdmin}, res.Record.ID.Hex(), Patch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.RolePartner, rec.SubmittedByRole)
	assert.Equal(t, models.RoleAdmin, rec.Submitter.Role)
}

func TestUpdateRemovesDroppedImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validCreate(f.species.ID)
	in.Images = []string{"/uploads/a.jpg", "/uploads/b.jpg", "https://elsewhere.example/c.jpg"}
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, in)
	require.NoError(t, err)
	id := res.Record.ID.Hex()

	notes := "no image change"
	_, err = f.svc.Update(ctx, f.partner, id, Patch{Notes: &notes})
	require.NoError(t, err)
	assert.Empty(t, f.images.deleted)

	next := []string{"/uploads/b.jpg", "/uploads/new.jpg"}
	rec, err := f.svc.Update(ctx, f.partner, id, Patch{Images: &next})
	require.NoError(t, err)
	assert.Equal(t, next, rec.Images)
	assert.Equal(t, []string{"/uploads/a.jpg"}, f.images.deleted)
}

func TestWritesCompleteAfterRequestCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "ich"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.DiseasesCount)
	fish, diseases := f.countRows(t)
	assert.EqualValues(t, 1, fish)
	assert.EqualValues(t, 1, diseases)

	deadline, stop := context.WithDeadline(context.Background(), testNow.Add(-time.Hour))
	defer stop()
	_, err = f.svc.Delete(deadline, f.partner, res.Record.ID.Hex())
	require.NoError(t, err)
	fish, diseases = f.countRows(t)
	assert.Zero(t, fish)
	assert.Zero(t, diseases)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validCreate(f.species.ID, "ich", "fin rot")
	in.Images = []string{"/uploads/a.jpg", "data:image/png;base64,AAAA", "https://elsewhere.example/b.jpg"}
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, in)
	require.NoError(t, err)
	id := res.Record.ID.Hex()

	_, err = f.svc.AddAnalysis(ctx, f.partner, id, validAnalysis())
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, f.other, id)
	require.ErrorIs(t, err, ErrForbidden)

	out, err := f.svc.Delete(ctx, f.partner, id)
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{Fish: 1, Diseases: 2, Analyses: 1}, out)
	assert.Equal(t, []string{"/uploads/a.jpg"}, f.images.deleted)

	_, err = f.svc.Get(ctx, f.admin, id)
	require.ErrorIs(t, err, ErrNotFound)
	fish, diseases := f.countRows(t)
	assert.Zero(t, fish)
	assert.Zero(t, diseases)

	_, err = f.svc.Delete(ctx, f.partner, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDisease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "ich", "fin rot"))
	require.NoError(t, err)
	first := res.DiseaseIDs[0].Hex()

	require.ErrorIs(t, f.svc.DeleteDisease(ctx, f.other, first), ErrForbidden)
	require.NoError(t, f.svc.DeleteDisease(ctx, f.partner, first))
	require.ErrorIs(t, f.svc.DeleteDisease(ctx, f.partner, first), ErrNotFound)

	ds, err := f.svc.ListDiseases(ctx, f.partner, res.Record.ID.Hex())
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "fin rot", ds[0].DiseaseName)

	rec, err := f.svc.Get(ctx, f.partner, res.Record.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{res.DiseaseIDs[1]}, rec.DiseaseIDs)
}

func TestGetAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID))
	require.NoError(t, err)
	id := res.Record.ID.Hex()

	_, err = f.svc.Get(ctx, f.other, id)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Get(ctx, f.admin, id)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, f.partner, "not-an-id")
	require.ErrorIs(t, err, ErrValidation)
}

func TestListScopesByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		in := validCreate(f.species.ID)
		in.CatchDate = &Timestamp{Time: testNow.AddDate(0, 0, -i)}
		_, err := f.svc.CreateWithDiseases(ctx, f.partner, in)
		require.NoError(t, err)
	}
	draft := validCreate(f.species.ID)
	draft.Status = models.FishStatusDraft
	_, err := f.svc.CreateWithDiseases(ctx, f.other, draft)
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, f.partner, ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, mine.Total)
	assert.Equal(t, 2, mine.Pages)
	require.Len(t, mine.Records, 2)
	assert.True(t, mine.Records[0].CatchDate.After(mine.Records[1].CatchDate))
	for _, r := range mine.Records {
		assert.Equal(t, f.partner.ID, r.OwnerID)
	}

	all, err := f.svc.List(ctx, f.admin, ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, all.Total)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 10, all.Limit)

	drafts, err := f.svc.List(ctx, f.admin, ListQuery{Status: models.FishStatusDraft})
	require.NoError(t, err)
	assert.EqualValues(t, 1, drafts.Total)

	_, err = f.svc.List(ctx, f.admin, ListQuery{Status: "bogus"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestStatsScopesByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "ich", "lice"))
	require.NoError(t, err)
	_, err = f.svc.CreateWithDiseases(ctx, f.other, validCreate(f.species.ID, "ich"))
	require.NoError(t, err)

	mine, err := f.svc.Stats(ctx, f.partner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.Total)
	assert.EqualValues(t, 2, mine.TotalDiseases)

	all, err := f.svc.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)
	assert.EqualValues(t, 3, all.TotalDiseases)
	require.Len(t, all.ByCountry, 1)
	assert.Equal(t, store.Bucket{Key: "TR", Count: 2}, all.ByCountry[0])
}

func TestCanAccess(t *testing.T) {
	owner := primitive.NewObjectID()
	rec := models.FishRecord{ID: primitive.NewObjectID(), OwnerID: owner}

	assert.True(t, CanAccess(Actor{ID: owner, Role: models.RolePartner}, rec, ActionUpdate))
	assert.True(t, CanAccess(Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, rec, ActionDelete))
	assert.False(t, CanAccess(Actor{ID: primitive.NewObjectID(), Role: models.RoleDeveloper}, rec, ActionView))
	assert.False(t, CanAccess(Actor{Role: models.RolePartner}, models.FishRecord{}, ActionView))

	assert.Nil(t, OwnerScope(Actor{ID: owner, Role: models.RoleAdmin}))
	require.NotNil(t, OwnerScope(Actor{ID: owner, Role: models.RolePartner}))
	assert.Equal(t, owner, *OwnerScope(Actor{ID: owner, Role: models.RolePartner}))
}

func TestMetricsCountOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateWithDiseases(ctx, f.partner, validCreate(f.species.ID, "ich"))
	require.NoError(t, err)
	_, err = f.svc.CreateWithDiseases(ctx, f.partner, validCreate(primitive.NewObjectID()))
	require.Error(t, err)
	_, err = f.svc.CreateWithDiseases(ctx, f.partner, CreateInput{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ops.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ops.WithLabelValues("create", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ops.WithLabelValues("create", "validation")))
}
