package mongostore

import (
	"context"
	"fmt"

	"govdata-etl/services/extract"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store stages records as documents of one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func Open(ctx context.Context, uri, database string) (Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return Store{}, fmt.Errorf("connect to mongo: %w", err)
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(ctx)
		return Store{}, fmt.Errorf("ping mongo: %w", err)
	}
	return Store{client: client, db: client.Database(database)}, nil
}

func (s Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	return s.db.ListCollectionNames(ctx, bson.D{})
}

func (s Store) DropCollection(ctx context.Context, name string) error {
	return s.db.Collection(name).Drop(ctx)
}

func (s Store) InsertMany(ctx context.Context, name string, records []extract.Record) ([]string, error) {
	docs := make([]any, len(records))
	for i, record := range records {
		doc := make(bson.M, len(record))
		for k, v := range record {
			doc[k] = v
		}
		docs[i] = doc
	}

	res, err := s.db.Collection(name).InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(res.InsertedIDs))
	for i, id := range res.InsertedIDs {
		if oid, ok := id.(primitive.ObjectID); ok {
			ids[i] = oid.Hex()
			continue
		}
		ids[i] = fmt.Sprint(id)
	}
	return ids, nil
}

func (s Store) FindAll(ctx context.Context, name string) ([]extract.Record, error) {
	cursor, err := s.db.Collection(name).Find(
		ctx,
		bson.D{},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []extract.Record
	for cursor.Next(ctx) {
		var doc bson.M
		err := cursor.Decode(&doc)
		if err != nil {
			return nil, err
		}
		record := make(extract.Record, len(doc))
		for k, v := range doc {
			if text, ok := v.(string); ok {
				record[k] = text
				continue
			}
			record[k] = fmt.Sprint(v)
		}
		records = append(records, record)
	}
	return records, cursor.Err()
}

func (s Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
