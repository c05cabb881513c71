package store

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/transform"
)

// Default MongoDB locations used when the URL names none.
const (
	DefaultMongoDatabase   = "vizframe"
	DefaultMongoCollection = "samples"
)

// MongoStore keeps samples as documents in a collection. Load returns them
// by time, static samples first, then in insertion order.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// sampleDoc is the BSON form of a Sample.
type sampleDoc struct {
	Source      string     `bson:"source"`
	Target      string     `bson:"target"`
	Kind        string     `bson:"kind"`
	Time        time.Time  `bson:"time"`
	Translation [3]float64 `bson:"translation"`
	Rotation    [4]float64 `bson:"rotation"` // w, x, y, z
}

func toDoc(s Sample) sampleDoc {
	q := s.Pose.Rotation
	return sampleDoc{
		Source:      s.Source,
		Target:      s.Target,
		Kind:        s.Kind.String(),
		Time:        s.Time.UTC(),
		Translation: s.Pose.Translation,
		Rotation:    [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
	}
}

func (d sampleDoc) sample() (Sample, error) {
	var kind transform.Kind
	if err := kind.UnmarshalText([]byte(d.Kind)); err != nil {
		return Sample{}, err
	}
	r := d.Rotation
	s := Sample{
		Source: d.Source,
		Target: d.Target,
		Kind:   kind,
		Pose:   pose.New(d.Translation, mgl64.Quat{W: r[0], V: mgl64.Vec3{r[1], r[2], r[3]}}),
	}
	if kind == transform.KindDynamic {
		s.Time = d.Time
	}
	return s, nil
}

// NewMongoStore creates a store on an existing collection. Close leaves the
// client connected.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{client: coll.Database().Client(), coll: coll}
}

// Append inserts one document per sample.
func (s *MongoStore) Append(ctx context.Context, samples ...Sample) error {
	if len(samples) == 0 {
		return nil
	}
	docs := make([]interface{}, len(samples))
	for i, sample := range samples {
		docs[i] = toDoc(sample)
	}
	return RetryWithBackoff(ctx, func() error {
		_, err := s.coll.InsertMany(ctx, docs)
		return mongoRetryable(err)
	})
}

// Load reads the whole collection.
func (s *MongoStore) Load(ctx context.Context) ([]Sample, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []sampleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]Sample, 0, len(docs))
	for _, d := range docs {
		sample, err := d.sample()
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, nil
}

// Close disconnects the client if Open created it.
func (s *MongoStore) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func mongoRetryable(err error) error {
	if err != nil && (mongo.IsNetworkError(err) || mongo.IsTimeout(err)) {
		return Retryable(err)
	}
	return err
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
