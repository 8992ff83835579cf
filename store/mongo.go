package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"sanfish/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared with the rest of the platform.
const (
	collUsers    = "users"
	collSpecies  = "fish_species"
	collFish     = "fish_data"
	collDiseases = "fish_diseases"
	collAnalyses = "fish_analyses"
)

// Server error labels the driver retries on.
const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"
)

// MongoStore runs units of work as MongoDB multi-document transactions, which
// requires a replica set or sharded cluster.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	tx     *mongoTx
}

// NewMongoStore connects, pings and ensures indexes.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(dbName)
	s := &MongoStore{
		client: client,
		db:     db,
		tx: &mongoTx{
			users:    db.Collection(collUsers),
			species:  db.Collection(collSpecies),
			fish:     db.Collection(collFish),
			diseases: db.Collection(collDiseases),
			analyses: db.Collection(collAnalyses),
		},
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	plan := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.tx.species, []mongo.IndexModel{
			{Keys: bson.D{{Key: "scientific_name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "family", Value: 1}}},
		}},
		{s.tx.fish, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "catch_date", Value: -1}}},
			{Keys: bson.D{{Key: "species_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "location.country", Value: 1}}},
			{Keys: bson.D{{Key: "location.region", Value: 1}}},
		}},
		{s.tx.diseases, []mongo.IndexModel{{Keys: bson.D{{Key: "fish_data_id", Value: 1}}}}},
		{s.tx.analyses, []mongo.IndexModel{{Keys: bson.D{{Key: "fish_data_id", Value: 1}}}}},
	}
	for _, p := range plan {
		if _, err := p.coll.Indexes().CreateMany(ctx, p.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", p.coll.Name(), err)
		}
	}
	return nil
}

// RunInTransaction uses the driver's callback API, which aborts on error and
// retries the whole callback on TransientTransactionError labels.
func (s *MongoStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return translate(err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, withRetryLabel(fn(sc, s.tx))
	})
	return translate(err)
}

// withRetryLabel lifts a driver label buried in err to the top. WithTransaction
// only walks single-error Unwrap chains, and callers' typed errors wrap several.
func withRetryLabel(err error) error {
	var le mongo.LabeledError
	if err == nil || !errors.As(err, &le) {
		return err
	}
	return labeledError{error: err, labels: le}
}

type labeledError struct {
	error
	labels mongo.LabeledError
}

func (e labeledError) HasErrorLabel(label string) bool { return e.labels.HasErrorLabel(label) }

func (e labeledError) Unwrap() error { return e.error }

func (s *MongoStore) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return translate(fn(ctx, s.tx))
}

func (s *MongoStore) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// translate maps driver failures onto store sentinels and leaves every other
// error untouched so callers' typed errors survive the transaction wrapper.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrVersionConflict), errors.Is(err, ErrTransient):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), hasTransientLabel(err):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func hasTransientLabel(err error) bool {
	var le mongo.LabeledError
	if errors.As(err, &le) {
		return le.HasErrorLabel(labelTransientTransaction) ||
			le.HasErrorLabel(labelUnknownCommitResult)
	}
	return false
}

type mongoTx struct {
	users    *mongo.Collection
	species  *mongo.Collection
	fish     *mongo.Collection
	diseases *mongo.Collection
	analyses *mongo.Collection
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter any) (T, error) {
	var out T
	if err := c.FindOne(ctx, filter).Decode(&out); err != nil {
		return out, translate(err)
	}
	return out, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (tx *mongoTx) FindUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return findOne[models.User](ctx, tx.users, bson.M{"_id": id})
}

func (tx *mongoTx) FindUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	users, err := findAll[models.User](ctx, tx.users, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"password_hash": 0}))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// ---- species ----

func (tx *mongoTx) FindSpecies(ctx context.Context, id primitive.ObjectID) (models.Species, error) {
	return findOne[models.Species](ctx, tx.species, bson.M{"_id": id})
}

func (tx *mongoTx) ListSpecies(ctx context.Context, f SpeciesFilter) ([]models.Species, int64, error) {
	filter := bson.M{}
	if f.Family != "" {
		filter["family"] = regexFold(f.Family)
	}
	if f.Genus != "" {
		filter["genus"] = regexFold(f.Genus)
	}
	if f.Search != "" {
		re := regexFold(f.Search)
		filter["$or"] = bson.A{
			bson.M{"scientific_name": re},
			bson.M{"common_name": re},
			bson.M{"family": re},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "scientific_name", Value: 1}}).SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	out, err := findAll[models.Species](ctx, tx.species, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := tx.species.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}

func (tx *mongoTx) InsertSpecies(ctx context.Context, sp *models.Species) error {
	if sp.ID.IsZero() {
		sp.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	sp.CreatedAt, sp.UpdatedAt = now, now
	_, err := tx.species.InsertOne(ctx, sp)
	return translate(err)
}

func (tx *mongoTx) ReplaceSpecies(ctx context.Context, sp *models.Species) error {
	sp.UpdatedAt = time.Now().UTC()
	res, err := tx.species.ReplaceOne(ctx, bson.M{"_id": sp.ID}, sp)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *mongoTx) DeleteSpecies(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, tx.species, id)
}

func (tx *mongoTx) TopFamilies(ctx context.Context, limit int) ([]Bucket, int64, error) {
	cur, err := tx.species.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$family", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	})
	if err != nil {
		return nil, 0, translate(err)
	}
	defer cur.Close(ctx)
	out := []Bucket{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, translate(err)
	}
	total, err := tx.species.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}

// ---- fish ----

func fishFilter(f FishFilter) bson.M {
	filter := bson.M{}
	if f.OwnerID != nil {
		filter["user_id"] = *f.OwnerID
	}
	if f.SpeciesID != nil {
		filter["species_id"] = *f.SpeciesID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Country != "" {
		filter["location.country"] = f.Country
	}
	if f.Region != "" {
		filter["location.region"] = f.Region
	}
	return filter
}

func (tx *mongoTx) InsertFish(ctx context.Context, rec *models.FishRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	rec.Version = 1
	rec.CreatedAt, rec.UpdatedAt = now, now
	_, err := tx.fish.InsertOne(ctx, rec)
	return translate(err)
}

func (tx *mongoTx) FindFish(ctx context.Context, id primitive.ObjectID) (models.FishRecord, error) {
	return findOne[models.FishRecord](ctx, tx.fish, bson.M{"_id": id})
}

func (tx *mongoTx) ListFish(ctx context.Context, f FishFilter) ([]models.FishRecord, int64, error) {
	filter := fishFilter(f)
	opts := options.Find().SetSort(bson.D{{Key: "catch_date", Value: -1}, {Key: "_id", Value: -1}}).SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	out, err := findAll[models.FishRecord](ctx, tx.fish, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := tx.fish.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}

func (tx *mongoTx) CountFish(ctx context.Context, f FishFilter) (int64, error) {
	n, err := tx.fish.CountDocuments(ctx, fishFilter(f))
	return n, translate(err)
}

func (tx *mongoTx) ReplaceFish(ctx context.Context, rec *models.FishRecord) error {
	prev := rec.Version
	rec.Version = prev + 1
	rec.UpdatedAt = time.Now().UTC()
	res, err := tx.fish.ReplaceOne(ctx, bson.M{"_id": rec.ID, "version": prev}, rec)
	if err != nil {
		rec.Version = prev
		return translate(err)
	}
	if res.MatchedCount == 0 {
		rec.Version = prev
		n, err := tx.fish.CountDocuments(ctx, bson.M{"_id": rec.ID})
		if err != nil {
			return translate(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (tx *mongoTx) DeleteFish(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, tx.fish, id)
}

func (tx *mongoTx) FishStats(ctx context.Context, owner *primitive.ObjectID) (FishStats, error) {
	match := bson.M{}
	if owner != nil {
		match["user_id"] = *owner
	}
	group := func(field string) bson.A {
		return bson.A{
			bson.M{"$group": bson.M{"_id": field, "count": bson.M{"$sum": 1}}},
			bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
		}
	}
	byCountry := append(group("$location.country"), bson.M{"$limit": 10})
	cur, err := tx.fish.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.M{
			"total":          bson.A{bson.M{"$count": "count"}},
			"byStatus":       group("$status"),
			"byLocationType": group("$location.location_type"),
			"byCountry":      byCountry,
			"recent": bson.A{
				bson.M{"$sort": bson.M{"createdAt": -1}},
				bson.M{"$limit": 5},
			},
		}}},
	})
	if err != nil {
		return FishStats{}, translate(err)
	}
	defer cur.Close(ctx)

	var facets []struct {
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
		ByStatus       []Bucket            `bson:"byStatus"`
		ByLocationType []Bucket            `bson:"byLocationType"`
		ByCountry      []Bucket            `bson:"byCountry"`
		Recent         []models.FishRecord `bson:"recent"`
	}
	if err := cur.All(ctx, &facets); err != nil {
		return FishStats{}, translate(err)
	}
	out := FishStats{ByStatus: []Bucket{}, ByLocationType: []Bucket{}, ByCountry: []Bucket{}, RecentSubmissions: []models.FishRecord{}}
	if len(facets) == 0 {
		return out, nil
	}
	f := facets[0]
	if len(f.Total) > 0 {
		out.Total = f.Total[0].Count
	}
	out.ByStatus, out.ByLocationType, out.ByCountry, out.RecentSubmissions = f.ByStatus, f.ByLocationType, f.ByCountry, f.Recent
	return out, nil
}

// ---- diseases ----

func (tx *mongoTx) InsertDiseases(ctx context.Context, ds []models.Disease) error {
	if len(ds) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(ds))
	for i := range ds {
		if ds[i].ID.IsZero() {
			ds[i].ID = primitive.NewObjectID()
		}
		ds[i].CreatedAt, ds[i].UpdatedAt = now, now
		docs[i] = ds[i]
	}
	_, err := tx.diseases.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return translate(err)
}

func (tx *mongoTx) FindDisease(ctx context.Context, id primitive.ObjectID) (models.Disease, error) {
	return findOne[models.Disease](ctx, tx.diseases, bson.M{"_id": id})
}

func (tx *mongoTx) ListDiseasesByFish(ctx context.Context, fishID primitive.ObjectID) ([]models.Disease, error) {
	return findAll[models.Disease](ctx, tx.diseases, bson.M{"fish_data_id": fishID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (tx *mongoTx) DeleteDisease(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, tx.diseases, id)
}

func (tx *mongoTx) DeleteDiseasesByFish(ctx context.Context, fishID primitive.ObjectID) (int64, error) {
	res, err := tx.diseases.DeleteMany(ctx, bson.M{"fish_data_id": fishID})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

func (tx *mongoTx) CountDiseases(ctx context.Context, owner *primitive.ObjectID) (int64, error) {
	filter := bson.M{}
	if owner != nil {
		ids, err := tx.fish.Distinct(ctx, "_id", bson.M{"user_id": *owner})
		if err != nil {
			return 0, translate(err)
		}
		filter["fish_data_id"] = bson.M{"$in": ids}
	}
	n, err := tx.diseases.CountDocuments(ctx, filter)
	return n, translate(err)
}

// ---- analyses ----

func (tx *mongoTx) InsertAnalysis(ctx context.Context, a *models.Analysis) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := tx.analyses.InsertOne(ctx, a)
	return translate(err)
}

func (tx *mongoTx) FindAnalysis(ctx context.Context, id primitive.ObjectID) (models.Analysis, error) {
	return findOne[models.Analysis](ctx, tx.analyses, bson.M{"_id": id})
}

func (tx *mongoTx) ListAnalysesByFish(ctx context.Context, fishID primitive.ObjectID) ([]models.Analysis, error) {
	return findAll[models.Analysis](ctx, tx.analyses, bson.M{"fish_data_id": fishID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
}

func (tx *mongoTx) ReplaceAnalysis(ctx context.Context, a *models.Analysis) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := tx.analyses.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *mongoTx) DeleteAnalysis(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, tx.analyses, id)
}

func (tx *mongoTx) DeleteAnalysesByFish(ctx context.Context, fishID primitive.ObjectID) (int64, error) {
	res, err := tx.analyses.DeleteMany(ctx, bson.M{"fish_data_id": fishID})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

func deleteByID(ctx context.Context, c *mongo.Collection, id primitive.ObjectID) error {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func regexFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
