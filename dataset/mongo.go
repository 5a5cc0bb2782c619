package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/multierr"

	"go.viam.com/ikdata/logging"
)

// DefaultPublishBatchSize is the number of samples inserted per request when none is configured.
const DefaultPublishBatchSize = 1000

// MongoPublisher inserts assembled datasets into a MongoDB collection, one document per sample.
type MongoPublisher struct {
	client     *mongo.Client
	collection *mongo.Collection
	batchSize  int
	logger     logging.Logger
}

// sampleDocument is how a sample is stored.
type sampleDocument struct {
	CreatedAt time.Time              `bson:"created_at"`
	RunID     string                 `bson:"run_id,omitempty"`
	Index     int                    `bson:"index"`
	Sample    map[string]interface{} `bson:"sample"`
}

// NewMongoPublisher connects to the MongoDB deployment at uri and checks that it answers.
func NewMongoPublisher(
	ctx context.Context,
	uri, database, collection string,
	batchSize int,
	logger logging.Logger,
) (*MongoPublisher, error) {
	client, err := mongo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, multierr.Combine(err, client.Disconnect(ctx))
	}
	if batchSize <= 0 {
		batchSize = DefaultPublishBatchSize
	}
	return &MongoPublisher{
		client:     client,
		collection: client.Database(database).Collection(collection),
		batchSize:  batchSize,
		logger:     logger,
	}, nil
}

// Publish inserts every sample of the dataset file at path, tagged with runID, and returns how many were
// inserted.
func (p *MongoPublisher) Publish(ctx context.Context, path, runID string) (int, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return 0, NewIOError(err, "opening dataset %s", path)
	}
	defer func() {
		if err := f.Close(); err != nil {
			p.logger.Warnw("closing dataset", "path", path, "error", err)
		}
	}()

	createdAt := time.Now()
	batch := make([]interface{}, 0, p.batchSize)
	inserted := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := p.collection.InsertMany(ctx, batch); err != nil {
			return errors.Wrapf(err, "inserting samples %d to %d", inserted, inserted+len(batch))
		}
		inserted += len(batch)
		p.logger.Debugw("inserted batch", "inserted", inserted)
		batch = batch[:0]
		return nil
	}

	dec := json.NewDecoder(bufio.NewReader(f))
	if err := expectArrayStart(dec); err != nil {
		return 0, NewIOError(err, "dataset %s", path)
	}
	for index := 0; dec.More(); index++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return inserted, NewIOError(err, "dataset %s", path)
		}
		doc, err := newSampleDocument(raw, runID, index, createdAt)
		if err != nil {
			return inserted, NewIOError(err, "dataset %s sample %d", path, index)
		}
		batch = append(batch, doc)
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}
	if err := flush(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// Close disconnects from the deployment.
func (p *MongoPublisher) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}

func newSampleDocument(raw json.RawMessage, runID string, index int, createdAt time.Time) (sampleDocument, error) {
	sample := map[string]interface{}{}
	if err := json.Unmarshal(raw, &sample); err != nil {
		return sampleDocument{}, err
	}
	return sampleDocument{CreatedAt: createdAt, RunID: runID, Index: index, Sample: sample}, nil
}

func expectArrayStart(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return errors.Errorf("expected a JSON array, found %v", tok)
	}
	return nil
}
