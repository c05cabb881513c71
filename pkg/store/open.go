package store

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
)

// Schemes accepted by Open.
var Schemes = []string{"file", "null", "redis", "rediss", "mongodb", "mongodb+srv"}

// Open connects to the store named by rawURL:
//
//   - file:///abs/path.jsonl or file:relative.jsonl
//   - null:
//   - redis://[user:pass@]host:port/db?key=list-key
//   - mongodb://host:port/database?collection=name
func Open(ctx context.Context, rawURL string) (Store, error) {
	if err := verrors.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	u, _ := url.Parse(rawURL)
	if !slices.Contains(Schemes, u.Scheme) {
		return nil, verrors.Wrap(verrors.ErrCodeUnsupported, ErrUnsupportedScheme, "%q (want one of %s)", u.Scheme, strings.Join(Schemes, ", "))
	}

	switch u.Scheme {
	case "null":
		return NewNullStore(), nil
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return nil, verrors.New(verrors.ErrCodeInvalidURL, "file store URL %q has no path", rawURL)
		}
		return NewFileStore(path)
	case "redis", "rediss":
		return openRedis(ctx, u)
	default:
		return openMongo(ctx, u)
	}
}

// takeParam removes name from the URL query and returns its value.
func takeParam(u *url.URL, name string) string {
	q := u.Query()
	v := q.Get(name)
	q.Del(name)
	u.RawQuery = q.Encode()
	return v
}

func openRedis(ctx context.Context, u *url.URL) (Store, error) {
	key := takeParam(u, "key")
	opts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInvalidURL, err, "redis URL")
	}
	client := redis.NewClient(opts)
	err = RetryWithBackoff(ctx, func() error {
		return redisRetryable(client.Ping(ctx).Err())
	})
	if err != nil {
		client.Close()
		return nil, verrors.Wrap(verrors.ErrCodeNetwork, err, "connect redis %s", opts.Addr)
	}
	s := NewRedisStore(client, key)
	s.owned = true
	return s, nil
}

func openMongo(ctx context.Context, u *url.URL) (Store, error) {
	collection := takeParam(u, "collection")
	if collection == "" {
		collection = DefaultMongoCollection
	}
	database := strings.Trim(u.Path, "/")
	if database == "" {
		database = DefaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(u.String()))
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInvalidURL, err, "mongodb URL")
	}
	err = RetryWithBackoff(ctx, func() error {
		return mongoRetryable(client.Ping(ctx, nil))
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, verrors.Wrap(verrors.ErrCodeNetwork, err, "connect mongodb %s", u.Host)
	}
	s := NewMongoStore(client.Database(database).Collection(collection))
	s.owned = true
	return s, nil
}
