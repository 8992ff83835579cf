package store

import (
	"bytes"
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"sanfish/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps everything in process. A transaction works on a deep copy
// of the state which replaces the live state only when fn succeeds, so failed
// units of work never leave partial rows behind.
type MemoryStore struct {
	mu    sync.RWMutex
	state memState
	nowFn func() time.Time
}

type memState struct {
	users    map[primitive.ObjectID]models.User
	species  map[primitive.ObjectID]models.Species
	fish     map[primitive.ObjectID]models.FishRecord
	diseases map[primitive.ObjectID]models.Disease
	analyses map[primitive.ObjectID]models.Analysis
}

// NewMemoryStore returns an empty store; now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		nowFn: now,
		state: memState{
			users:    map[primitive.ObjectID]models.User{},
			species:  map[primitive.ObjectID]models.Species{},
			fish:     map[primitive.ObjectID]models.FishRecord{},
			diseases: map[primitive.ObjectID]models.Disease{},
			analyses: map[primitive.ObjectID]models.Analysis{},
		},
	}
}

// PutUser seeds an account. Users are owned by the auth service, so there is
// no transactional write path for them.
func (s *MemoryStore) PutUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.state.users[u.ID] = u
	return u
}

func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{state: s.state.clone(), now: s.nowFn()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx := &memTx{state: s.state.clone(), now: s.nowFn()}
	return fn(ctx, tx)
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (st memState) clone() memState {
	out := memState{
		users:    make(map[primitive.ObjectID]models.User, len(st.users)),
		species:  make(map[primitive.ObjectID]models.Species, len(st.species)),
		fish:     make(map[primitive.ObjectID]models.FishRecord, len(st.fish)),
		diseases: make(map[primitive.ObjectID]models.Disease, len(st.diseases)),
		analyses: make(map[primitive.ObjectID]models.Analysis, len(st.analyses)),
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.species {
		out.species[k] = cloneSpecies(v)
	}
	for k, v := range st.fish {
		out.fish[k] = cloneFish(v)
	}
	for k, v := range st.diseases {
		out.diseases[k] = cloneDisease(v)
	}
	for k, v := range st.analyses {
		out.analyses[k] = cloneAnalysis(v)
	}
	return out
}

type memTx struct {
	state memState
	now   time.Time
}

func (tx *memTx) FindUser(_ context.Context, id primitive.ObjectID) (models.User, error) {
	u, ok := tx.state.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (tx *memTx) FindUsers(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := tx.state.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// ---- species ----

func (tx *memTx) FindSpecies(_ context.Context, id primitive.ObjectID) (models.Species, error) {
	sp, ok := tx.state.species[id]
	if !ok {
		return models.Species{}, ErrNotFound
	}
	return cloneSpecies(sp), nil
}

func (tx *memTx) ListSpecies(_ context.Context, f SpeciesFilter) ([]models.Species, int64, error) {
	family, genus, search := containsFold(f.Family), containsFold(f.Genus), containsFold(f.Search)
	var out []models.Species
	for _, sp := range tx.state.species {
		if !family(sp.Family) || !genus(sp.Genus) {
			continue
		}
		if f.Search != "" && !search(sp.ScientificName) && !search(sp.CommonName) && !search(sp.Family) {
			continue
		}
		out = append(out, cloneSpecies(sp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScientificName < out[j].ScientificName })
	total := int64(len(out))
	return page(out, f.Skip, f.Limit), total, nil
}

func (tx *memTx) InsertSpecies(_ context.Context, sp *models.Species) error {
	for _, other := range tx.state.species {
		if other.ScientificName == sp.ScientificName {
			return ErrDuplicate
		}
	}
	if sp.ID.IsZero() {
		sp.ID = primitive.NewObjectID()
	}
	sp.CreatedAt, sp.UpdatedAt = tx.now, tx.now
	tx.state.species[sp.ID] = cloneSpecies(*sp)
	return nil
}

func (tx *memTx) ReplaceSpecies(_ context.Context, sp *models.Species) error {
	old, ok := tx.state.species[sp.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range tx.state.species {
		if id != sp.ID && other.ScientificName == sp.ScientificName {
			return ErrDuplicate
		}
	}
	sp.CreatedAt, sp.UpdatedAt = old.CreatedAt, tx.now
	tx.state.species[sp.ID] = cloneSpecies(*sp)
	return nil
}

func (tx *memTx) DeleteSpecies(_ context.Context, id primitive.ObjectID) error {
	if _, ok := tx.state.species[id]; !ok {
		return ErrNotFound
	}
	delete(tx.state.species, id)
	return nil
}

func (tx *memTx) TopFamilies(_ context.Context, limit int) ([]Bucket, int64, error) {
	counts := map[string]int64{}
	for _, sp := range tx.state.species {
		counts[sp.Family]++
	}
	return topBuckets(counts, limit), int64(len(tx.state.species)), nil
}

// ---- fish ----

func (tx *memTx) InsertFish(_ context.Context, rec *models.FishRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if _, exists := tx.state.fish[rec.ID]; exists {
		return ErrDuplicate
	}
	rec.Version = 1
	rec.CreatedAt, rec.UpdatedAt = tx.now, tx.now
	tx.state.fish[rec.ID] = cloneFish(*rec)
	return nil
}

func (tx *memTx) FindFish(_ context.Context, id primitive.ObjectID) (models.FishRecord, error) {
	rec, ok := tx.state.fish[id]
	if !ok {
		return models.FishRecord{}, ErrNotFound
	}
	return cloneFish(rec), nil
}

func (tx *memTx) matchFish(f FishFilter) []models.FishRecord {
	var out []models.FishRecord
	for _, rec := range tx.state.fish {
		if f.OwnerID != nil && rec.OwnerID != *f.OwnerID {
			continue
		}
		if f.SpeciesID != nil && rec.SpeciesID != *f.SpeciesID {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.Country != "" && rec.Location.Country != f.Country {
			continue
		}
		if f.Region != "" && rec.Location.Region != f.Region {
			continue
		}
		out = append(out, cloneFish(rec))
	}
	return out
}

func (tx *memTx) ListFish(_ context.Context, f FishFilter) ([]models.FishRecord, int64, error) {
	out := tx.matchFish(f)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CatchDate.Equal(out[j].CatchDate) {
			return out[i].CatchDate.After(out[j].CatchDate)
		}
		return idLess(out[j].ID, out[i].ID)
	})
	total := int64(len(out))
	return page(out, f.Skip, f.Limit), total, nil
}

func (tx *memTx) CountFish(_ context.Context, f FishFilter) (int64, error) {
	return int64(len(tx.matchFish(f))), nil
}

func (tx *memTx) ReplaceFish(_ context.Context, rec *models.FishRecord) error {
	old, ok := tx.state.fish[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if old.Version != rec.Version {
		return ErrVersionConflict
	}
	rec.Version++
	rec.CreatedAt, rec.UpdatedAt = old.CreatedAt, tx.now
	tx.state.fish[rec.ID] = cloneFish(*rec)
	return nil
}

func (tx *memTx) DeleteFish(_ context.Context, id primitive.ObjectID) error {
	if _, ok := tx.state.fish[id]; !ok {
		return ErrNotFound
	}
	delete(tx.state.fish, id)
	return nil
}

func (tx *memTx) FishStats(_ context.Context, owner *primitive.ObjectID) (FishStats, error) {
	recs := tx.matchFish(FishFilter{OwnerID: owner})
	byStatus, byType, byCountry := map[string]int64{}, map[string]int64{}, map[string]int64{}
	for _, rec := range recs {
		byStatus[string(rec.Status)]++
		byType[string(rec.Location.LocationType)]++
		byCountry[rec.Location.Country]++
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return FishStats{
		Total:             int64(len(recs)),
		ByStatus:          topBuckets(byStatus, 0),
		ByLocationType:    topBuckets(byType, 0),
		ByCountry:         topBuckets(byCountry, 10),
		RecentSubmissions: page(recs, 0, 5),
	}, nil
}

// ---- diseases ----

func (tx *memTx) InsertDiseases(_ context.Context, ds []models.Disease) error {
	for i := range ds {
		if ds[i].ID.IsZero() {
			ds[i].ID = primitive.NewObjectID()
		}
		ds[i].CreatedAt, ds[i].UpdatedAt = tx.now, tx.now
		tx.state.diseases[ds[i].ID] = cloneDisease(ds[i])
	}
	return nil
}

func (tx *memTx) FindDisease(_ context.Context, id primitive.ObjectID) (models.Disease, error) {
	d, ok := tx.state.diseases[id]
	if !ok {
		return models.Disease{}, ErrNotFound
	}
	return cloneDisease(d), nil
}

func (tx *memTx) ListDiseasesByFish(_ context.Context, fishID primitive.ObjectID) ([]models.Disease, error) {
	var out []models.Disease
	for _, d := range tx.state.diseases {
		if d.FishRecordID == fishID {
			out = append(out, cloneDisease(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out, nil
}

func (tx *memTx) DeleteDisease(_ context.Context, id primitive.ObjectID) error {
	if _, ok := tx.state.diseases[id]; !ok {
		return ErrNotFound
	}
	delete(tx.state.diseases, id)
	return nil
}

func (tx *memTx) DeleteDiseasesByFish(_ context.Context, fishID primitive.ObjectID) (int64, error) {
	var n int64
	for id, d := range tx.state.diseases {
		if d.FishRecordID == fishID {
			delete(tx.state.diseases, id)
			n++
		}
	}
	return n, nil
}

func (tx *memTx) CountDiseases(_ context.Context, owner *primitive.ObjectID) (int64, error) {
	var n int64
	for _, d := range tx.state.diseases {
		if owner != nil {
			parent, ok := tx.state.fish[d.FishRecordID]
			if !ok || parent.OwnerID != *owner {
				continue
			}
		}
		n++
	}
	return n, nil
}

// ---- analyses ----

func (tx *memTx) InsertAnalysis(_ context.Context, a *models.Analysis) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt, a.UpdatedAt = tx.now, tx.now
	tx.state.analyses[a.ID] = cloneAnalysis(*a)
	return nil
}

func (tx *memTx) FindAnalysis(_ context.Context, id primitive.ObjectID) (models.Analysis, error) {
	a, ok := tx.state.analyses[id]
	if !ok {
		return models.Analysis{}, ErrNotFound
	}
	return cloneAnalysis(a), nil
}

func (tx *memTx) ListAnalysesByFish(_ context.Context, fishID primitive.ObjectID) ([]models.Analysis, error) {
	var out []models.Analysis
	for _, a := range tx.state.analyses {
		if a.FishRecordID == fishID {
			out = append(out, cloneAnalysis(a))
		}
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return idLess(out[j].ID, out[i].ID) })
	return out, nil
}

func (tx *memTx) ReplaceAnalysis(_ context.Context, a *models.Analysis) error {
	old, ok := tx.state.analyses[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.CreatedAt, a.UpdatedAt = old.CreatedAt, tx.now
	tx.state.analyses[a.ID] = cloneAnalysis(*a)
	return nil
}

func (tx *memTx) DeleteAnalysis(_ context.Context, id primitive.ObjectID) error {
	if _, ok := tx.state.analyses[id]; !ok {
		return ErrNotFound
	}
	delete(tx.state.analyses, id)
	return nil
}

func (tx *memTx) DeleteAnalysesByFish(_ context.Context, fishID primitive.ObjectID) (int64, error) {
	var n int64
	for id, a := range tx.state.analyses {
		if a.FishRecordID == fishID {
			delete(tx.state.analyses, id)
			n++
		}
	}
	return n, nil
}

// ---- helpers ----

func idLess(a, b primitive.ObjectID) bool { return bytes.Compare(a[:], b[:]) < 0 }

func page[T any](in []T, skip, limit int64) []T {
	if skip >= int64(len(in)) {
		return []T{}
	}
	in = in[skip:]
	if limit > 0 && limit < int64(len(in)) {
		in = in[:limit]
	}
	return in
}

func containsFold(pattern string) func(string) bool {
	if pattern == "" {
		return func(string) bool { return true }
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	return re.MatchString
}

// topBuckets sorts by count desc then key asc; limit <= 0 keeps all.
func topBuckets(counts map[string]int64, limit int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for k, v := range counts {
		out = append(out, Bucket{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.Compare(out[i].Key, out[j].Key) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneIDs(in []primitive.ObjectID) []primitive.ObjectID {
	if in == nil {
		return nil
	}
	return append([]primitive.ObjectID(nil), in...)
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneFish(r models.FishRecord) models.FishRecord {
	r.DiseaseIDs = cloneIDs(r.DiseaseIDs)
	r.AnalysisIDs = cloneIDs(r.AnalysisIDs)
	r.Images = cloneStrings(r.Images)
	r.Tags = cloneStrings(r.Tags)
	r.Metadata = cloneMap(r.Metadata)
	r.Species, r.Diseases, r.Analyses, r.Owner, r.Submitter = nil, nil, nil, nil, nil
	return r
}

func cloneDisease(d models.Disease) models.Disease {
	d.Symptoms = cloneStrings(d.Symptoms)
	d.Images = cloneStrings(d.Images)
	d.Treatment = cloneMap(d.Treatment)
	d.LabResults = cloneMap(d.LabResults)
	return d
}

func cloneAnalysis(a models.Analysis) models.Analysis {
	a.Attachments = cloneStrings(a.Attachments)
	return a
}

func cloneSpecies(sp models.Species) models.Species {
	sp.Aliases = cloneStrings(sp.Aliases)
	sp.TypicalLocations = cloneStrings(sp.TypicalLocations)
	sp.KnownDiseases = cloneStrings(sp.KnownDiseases)
	sp.Characteristics = cloneMap(sp.Characteristics)
	sp.ConservationStatus = cloneMap(sp.ConservationStatus)
	return sp
}
