package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/shortener-go/internal/shortener"
	"github.com/serroba/shortener-go/internal/token"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	tokenCollection = "url_tokens"
	linkCollection  = "short_links"
)

// MongoPool is the MongoDB token ledger.
type MongoPool struct {
	coll *mongo.Collection
}

// NewMongoPool creates the MongoDB-backed token pool repository.
func NewMongoPool(db *mongo.Database) *MongoPool {
	return &MongoPool{coll: db.Collection(tokenCollection)}
}

func (p *MongoPool) Insert(ctx context.Context, t token.PooledToken) error {
	_, err := p.coll.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return token.ErrDuplicateToken
	}

	return err
}

func (p *MongoPool) CountUnused(ctx context.Context) (int64, error) {
	return p.coll.CountDocuments(ctx, bson.D{{Key: "used", Value: false}})
}

func (p *MongoPool) Exists(ctx context.Context, tok string) (bool, error) {
	count, err := p.coll.CountDocuments(ctx,
		bson.D{{Key: "token", Value: tok}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (p *MongoPool) MarkUsed(ctx context.Context, tok string, at time.Time) error {
	// Filtering on used=false keeps the original used_at on repeat calls.
	_, err := p.coll.UpdateOne(ctx,
		bson.D{
			{Key: "token", Value: tok},
			{Key: "used", Value: false},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "used", Value: true},
			{Key: "used_at", Value: at},
		}}},
	)

	return err
}

// MongoLinks is the MongoDB short-link store.
type MongoLinks struct {
	coll *mongo.Collection
}

// NewMongoLinks creates the MongoDB-backed short-link repository.
func NewMongoLinks(db *mongo.Database) *MongoLinks {
	return &MongoLinks{coll: db.Collection(linkCollection)}
}

func (m *MongoLinks) FindByToken(ctx context.Context, tok string) (*shortener.ShortLink, error) {
	var link shortener.ShortLink

	err := m.coll.FindOne(ctx, bson.D{{Key: "token", Value: tok}}).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, shortener.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (m *MongoLinks) FindActiveByURL(ctx context.Context, url string, now time.Time) (*shortener.ShortLink, error) {
	var link shortener.ShortLink

	filter := bson.D{
		{Key: "url", Value: url},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now}}},
	}

	err := m.coll.FindOne(ctx, filter).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, shortener.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (m *MongoLinks) Upsert(ctx context.Context, link *shortener.ShortLink) error {
	_, err := m.coll.ReplaceOne(ctx,
		bson.D{{Key: "token", Value: link.Token}},
		link,
		options.Replace().SetUpsert(true),
	)

	return err
}

// EnsureIndexes creates the indexes both repositories rely on: the unique
// token index is the single source of truth for collision handling, and
// the (used, created_at) index keeps the unused-backlog count cheap.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(tokenCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "used", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create token indexes: %w", err)
	}

	_, err = db.Collection(linkCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "url", Value: 1},
				{Key: "expires_at", Value: 1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create link indexes: %w", err)
	}

	return nil
}

var (
	_ token.PoolRepository = (*MongoPool)(nil)
	_ shortener.Repository = (*MongoLinks)(nil)
)
