package target

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"covermig/internal/domain"
)

const defaultMongoDatabase = "covermig"

// MongoTarget stores artworks as documents keyed by _id in one
// collection. Merge happens client-side so the document shape stays a
// plain marshalled Artwork.
type MongoTarget struct {
	client *mongo.Client
	coll   *mongo.Collection
	ref    int
}

// NewMongoTarget connects to the URI and verifies the server is
// reachable. The database name comes from the URI path when present.
func NewMongoTarget(ctx context.Context, uri string, refFormat int) (*MongoTarget, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(mongoDatabaseName(uri)).Collection("artworks")
	return &MongoTarget{client: client, coll: coll, ref: refFormat}, nil
}

func (t *MongoTarget) Upsert(ctx context.Context, batch []domain.Artwork) (int, error) {
	written := 0
	for _, incoming := range batch {
		var existing domain.Artwork
		err := t.coll.FindOne(ctx, bson.M{"_id": incoming.ID}).Decode(&existing)

		rec := incoming
		switch {
		case err == nil:
			rec = domain.MergeArtwork(existing, incoming, t.ref)
		case errors.Is(err, mongo.ErrNoDocuments):
		default:
			return 0, fmt.Errorf("find artwork %d: %w", incoming.ID, err)
		}

		// ReplaceOne with upsert keeps the write idempotent, so records
		// already committed before a mid-batch failure are safe to
		// rewrite on retry.
		opts := options.Replace().SetUpsert(true)
		if _, err := t.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts); err != nil {
			return 0, fmt.Errorf("replace artwork %d: %w", rec.ID, err)
		}
		written++
	}
	return written, nil
}

func (t *MongoTarget) OnComplete(ctx context.Context) error {
	count, err := t.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("count artworks: %w", err)
	}
	slog.InfoContext(ctx, "target complete", "driver", "mongodb", "artworks", count)
	return nil
}

func (t *MongoTarget) Close() error {
	return t.client.Disconnect(context.Background())
}

// mongoDatabaseName pulls the database from the URI path, e.g.
// mongodb://host:27017/covers?x=y yields "covers".
func mongoDatabaseName(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.Index(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return defaultMongoDatabase
	}
	name := rest[slash+1:]
	if q := strings.Index(name, "?"); q != -1 {
		name = name[:q]
	}
	if name == "" {
		return defaultMongoDatabase
	}
	return name
}
