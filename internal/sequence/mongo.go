package sequence

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counter struct {
	Name string `bson:"_id"`
	Seq  int64  `bson:"seq"`
}

// MongoAllocator keeps one counter document per sequence name and bumps it
// with an atomic $inc.
type MongoAllocator struct {
	col    *mongo.Collection
	name   string
	finder LatestFinder

	mu     sync.Mutex
	seeded bool
}

func NewMongoAllocator(col *mongo.Collection, name string, f LatestFinder) *MongoAllocator {
	return &MongoAllocator{col: col, name: name, finder: f}
}

func (a *MongoAllocator) seed(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seeded {
		return nil
	}
	base, err := Baseline(ctx, a.finder)
	if err != nil {
		return err
	}
	if err := a.raise(ctx, base); err != nil {
		return fmt.Errorf("seed counter %s: %w", a.name, err)
	}
	a.seeded = true
	return nil
}

// raise lifts the counter to n. $max never moves it backwards.
func (a *MongoAllocator) raise(ctx context.Context, n int64) error {
	_, err := a.col.UpdateOne(ctx,
		bson.M{"_id": a.name},
		bson.M{"$max": bson.M{"seq": n}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (a *MongoAllocator) Advance(ctx context.Context, n int64) error {
	if err := a.seed(ctx); err != nil {
		return err
	}
	if err := a.raise(ctx, n); err != nil {
		return fmt.Errorf("advance counter %s: %w", a.name, err)
	}
	return nil
}

func (a *MongoAllocator) Next(ctx context.Context) (string, error) {
	if err := a.seed(ctx); err != nil {
		return "", err
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c counter
	err := a.col.FindOneAndUpdate(ctx, bson.M{"_id": a.name}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&c)
	if err != nil {
		return "", fmt.Errorf("increment counter %s: %w", a.name, err)
	}
	return strconv.FormatInt(c.Seq, 10), nil
}
