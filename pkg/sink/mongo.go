package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ishanwen-byte/seqevolve-go/internal/types"
)

// Collection names used by the mongo sink
const (
	CollectionGenerations = "generations"
	CollectionEvaluations = "evaluations"
	CollectionBests       = "bests"
)

// Mongo writes records to one collection per record kind
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to uri. The database name falls back to the URI path,
// then to "seqevolve".
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		parsed, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mongo uri: %w", err)
		}
		database = strings.Trim(parsed.Path, "/")
	}
	if database == "" {
		database = "seqevolve"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(database)}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	for _, name := range []string{CollectionGenerations, CollectionEvaluations, CollectionBests} {
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: "run_id", Value: 1}, {Key: "generation", Value: 1}},
			Options: options.Index().SetName("run_generation"),
		}
		if _, err := m.db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}
	return nil
}

func (m *Mongo) insert(ctx context.Context, collection string, record interface{}) error {
	if _, err := m.db.Collection(collection).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

func (m *Mongo) RecordGeneration(ctx context.Context, record types.GenerationRecord) error {
	return m.insert(ctx, CollectionGenerations, record)
}

func (m *Mongo) RecordEvaluation(ctx context.Context, record types.EvaluationRecord) error {
	return m.insert(ctx, CollectionEvaluations, record)
}

func (m *Mongo) RecordBest(ctx context.Context, record types.BestRecord) error {
	return m.insert(ctx, CollectionBests, record)
}

// Bests reads back the best snapshots of a run in generation order
func (m *Mongo) Bests(ctx context.Context, runID string) ([]types.BestRecord, error) {
	cur, err := m.db.Collection(CollectionBests).Find(ctx,
		bson.M{"run_id": runID},
		options.Find().SetSort(bson.D{{Key: "generation", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query bests: %w", err)
	}
	defer cur.Close(ctx)

	var out []types.BestRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode bests: %w", err)
	}
	return out, nil
}

// Drop removes every sink collection
func (m *Mongo) Drop(ctx context.Context) error {
	return m.db.Drop(ctx)
}

func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}
