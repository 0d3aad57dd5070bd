package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/BartekS5/cleanetl/pkg/database"
	"github.com/BartekS5/cleanetl/pkg/logger"
	"github.com/BartekS5/cleanetl/pkg/models"
	"github.com/BartekS5/cleanetl/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLoader replaces a collection with the rows of a Dataset, one document
// per row. Documents are written to a staging collection that is renamed over
// the target with dropTarget.
type MongoLoader struct {
	Client     *mongo.Client
	Database   string
	Collection string
	BatchSize  int
	Validator  *Validator
}

func NewMongoLoader(h *database.Handle, collection string, batchSize int) *MongoLoader {
	if collection == "" {
		collection = DefaultTable
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MongoLoader{
		Client:     h.Mongo,
		Database:   h.Target.Database,
		Collection: collection,
		BatchSize:  batchSize,
		Validator:  NewValidator(),
	}
}

func (m *MongoLoader) Load(ctx context.Context, ds *models.Dataset) error {
	if err := m.Validator.ValidateDataset(ds); err != nil {
		return loadErr(err)
	}

	db := m.Client.Database(m.Database)
	staging := stagingName(m.Collection)

	if err := m.replace(ctx, db, staging, ds); err != nil {
		dropCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if dropErr := db.Collection(staging).Drop(dropCtx); dropErr != nil {
			logger.Warnf("Failed to drop staging collection %s: %v", staging, dropErr)
		}
		return loadErr(fmt.Errorf("collection %s: %w", m.Collection, err))
	}

	logger.Info("Data successfully loaded into the database.", "collection", m.Collection, "rows", ds.Len())
	return nil
}

func (m *MongoLoader) replace(ctx context.Context, db *mongo.Database, staging string, ds *models.Dataset) error {
	if err := db.CreateCollection(ctx, staging); err != nil {
		return fmt.Errorf("failed to create staging collection: %w", err)
	}

	coll := db.Collection(staging)
	docs := Documents(ds)
	for _, b := range batchBounds(len(docs), m.BatchSize) {
		if _, err := coll.InsertMany(ctx, docs[b[0]:b[1]], options.InsertMany().SetOrdered(true)); err != nil {
			return fmt.Errorf("failed to insert documents %d-%d: %w", b[0], b[1]-1, err)
		}
	}

	rename := bson.D{
		{Key: "renameCollection", Value: m.Database + "." + staging},
		{Key: "to", Value: m.Database + "." + m.Collection},
		{Key: "dropTarget", Value: true},
	}
	if err := m.Client.Database("admin").RunCommand(ctx, rename).Err(); err != nil {
		return fmt.Errorf("failed to rename staging collection: %w", err)
	}
	return nil
}

// batchBounds splits n items into [start, end) ranges of at most size items.
// A non-positive size falls back to DefaultBatchSize.
func batchBounds(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// Documents converts each row into an ordered BSON document.
func Documents(ds *models.Dataset) []any {
	names := ds.ColumnNames()
	docs := make([]any, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		doc := make(bson.D, len(names))
		for c, name := range names {
			doc[c] = bson.E{Key: name, Value: utils.ToMongoValue(ds.Value(i, c))}
		}
		docs[i] = doc
	}
	return docs
}
