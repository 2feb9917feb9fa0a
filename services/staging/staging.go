package staging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"govdata-etl/services/extract"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("govdata.services.staging")

// Store is a document store holding named collections of flat records.
type Store interface {
	ListCollectionNames(ctx context.Context) ([]string, error)
	DropCollection(ctx context.Context, name string) error
	// InsertMany stores every record as its own document and returns the
	// store assigned ids in insertion order.
	InsertMany(ctx context.Context, name string, records []extract.Record) ([]string, error)
	// FindAll returns every document of the collection without its id.
	FindAll(ctx context.Context, name string) ([]extract.Record, error)
	Close(ctx context.Context) error
}

// Write replaces the collection `name` with exactly the given records.
func Write(ctx context.Context, store Store, name string, records []extract.Record) (err error) {
	ctx, span := tracer.Start(ctx, "staging:write")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("records", len(records)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	existing, err := store.ListCollectionNames(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if slices.Contains(existing, name) {
		err = store.DropCollection(ctx, name)
		if err != nil {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
		slog.DebugContext(ctx, "dropped staged collection", "collection", name)
	}

	if len(records) == 0 {
		slog.WarnContext(ctx, "no records to stage", "collection", name)
		return nil
	}

	ids, err := store.InsertMany(ctx, name, records)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", name, err)
	}
	for _, id := range ids {
		slog.InfoContext(ctx, "inserted staged record", "collection", name, "id", id)
	}
	return nil
}
