// Package mongo stores signal records in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"signalmon/internal/model"
)

// Config configures the MongoDB sink.
type Config struct {
	URI        string // e.g. "mongodb://localhost:27017"
	Database   string // default "signalmon"
	Collection string // default "signals"
}

// Document is the stored form of a record. Absent indicators are null.
type Document struct {
	Timestamp time.Time `bson:"timestamp"`
	Asset     string    `bson:"asset"`
	Price     float64   `bson:"price"`
	Signal    string    `bson:"signal"`
	Reason    string    `bson:"reason"`
	RSI       *float64  `bson:"rsi"`
	SMA20     *float64  `bson:"sma20"`
	SMA50     *float64  `bson:"sma50"`
	Momentum  *float64  `bson:"momentum"`
}

// NewDocument converts a record.
func NewDocument(rec model.SignalRecord) Document {
	return Document{
		Timestamp: rec.Timestamp.UTC(),
		Asset:     rec.Asset,
		Price:     rec.Price,
		Signal:    string(rec.Signal),
		Reason:    rec.Reason,
		RSI:       rec.RSI,
		SMA20:     rec.SMA20,
		SMA50:     rec.SMA50,
		Momentum:  rec.Momentum,
	}
}

// Writer inserts one document per record.
type Writer struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects, pings and ensures a descending timestamp index.
func New(ctx context.Context, cfg Config) (*Writer, error) {
	if cfg.Database == "" {
		cfg.Database = "signalmon"
	}
	if cfg.Collection == "" {
		cfg.Collection = "signals"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)

	// set indexing to descending
	_, err = collection.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "asset", Value: 1},
			{Key: "timestamp", Value: -1},
		},
	})
	if err != nil {
		log.Printf("[mongo] index creation failed: %v", err)
	}

	log.Printf("[mongo] writing to %s.%s", cfg.Database, cfg.Collection)
	return &Writer{client: client, collection: collection}, nil
}

func (w *Writer) Name() string { return "mongo" }

func (w *Writer) Append(ctx context.Context, rec model.SignalRecord) error {
	if _, err := w.collection.InsertOne(ctx, NewDocument(rec)); err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (w *Writer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.client.Disconnect(ctx)
}
