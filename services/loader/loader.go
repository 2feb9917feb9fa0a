package loader

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"govdata-etl/lib/sqlutil"
	"govdata-etl/lib/statekey"
	"govdata-etl/services/extract"
	"govdata-etl/services/staging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("govdata.services.loader")

//go:embed schema.sql
var Schema string

// Collections names the staged collection of every dataset.
type Collections struct {
	Unemployment string
	Education    string
	Crime        string
}

// TableResult reports the outcome of loading one table.
type TableResult struct {
	Table string
	Rows  int64
	// measure cells that failed to cast and were stored as NULL
	NullMeasures int
	Err          error
}

type Loader struct {
	staging     staging.Store
	db          *sql.DB
	dialect     sqlutil.Dialect
	normalizer  *statekey.Normalizer
	collections Collections
}

func New(
	store staging.Store,
	db *sql.DB,
	dialect sqlutil.Dialect,
	normalizer *statekey.Normalizer,
	collections Collections,
) Loader {
	return Loader{
		staging:     store,
		db:          db,
		dialect:     dialect,
		normalizer:  normalizer,
		collections: collections,
	}
}

// CreateSchema drops and recreates the dimension and fact tables.
func (l Loader) CreateSchema(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "loader:createSchema")
	defer span.End()

	err := sqlutil.ExecScript(ctx, l.db, Schema)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create schema")
		return err
	}
	return nil
}

// fact is one prepared table: its key column values per row plus measures
type fact struct {
	table   string
	columns []string
	rows    [][]any
	keys    []statekey.Key
	nulls   int
	err     error
}

// Load reads every staged dataset and inserts it. A failing table is
// reported in its TableResult and does not stop the remaining tables.
// The returned results follow the load order: state_year, then the facts.
func (l Loader) Load(ctx context.Context) []TableResult {
	ctx, span := tracer.Start(ctx, "loader:load")
	defer span.End()

	facts := []fact{
		l.prepare(ctx, l.collections.Unemployment, l.unemploymentFact),
		l.prepare(ctx, l.collections.Education, l.educationFact),
		l.prepare(ctx, l.collections.Crime, l.crimeFact),
	}

	var keys []statekey.Key
	for _, f := range facts {
		keys = append(keys, f.keys...)
	}
	keys = Dedup(keys, statekey.Key.ID)
	dimension := make([][]any, len(keys))
	for i, k := range keys {
		dimension[i] = []any{k.ID(), k.State, k.Year}
	}

	results := []TableResult{
		l.insert(ctx, fact{
			table:   TableStateYear,
			columns: []string{"state_year_id", "state", "year"},
			rows:    dimension,
		}),
	}
	for _, f := range facts {
		results = append(results, l.insert(ctx, f))
	}

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		span.RecordError(err)
		span.SetStatus(codes.Error, "one or more tables failed to load")
	}
	return results
}

type builder func(records []extract.Record) fact

func (l Loader) prepare(ctx context.Context, collection string, build builder) fact {
	records, err := l.staging.FindAll(ctx, collection)
	if err != nil {
		f := build(nil)
		f.err = fmt.Errorf("read staged %s: %w", collection, err)
		return f
	}
	slog.DebugContext(ctx, "read staged collection", "collection", collection, "records", len(records))
	return build(records)
}

func (l Loader) insert(ctx context.Context, f fact) TableResult {
	ctx, span := tracer.Start(ctx, "loader:insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", f.table),
		attribute.Int("rows", len(f.rows)),
	)

	result := TableResult{Table: f.table, NullMeasures: f.nulls, Err: f.err}
	if result.Err == nil {
		result.Rows, result.Err = sqlutil.BulkInsert(ctx, l.db, l.dialect, f.table, f.columns, f.rows)
	}
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "failed to load table")
		slog.ErrorContext(ctx, "failed to load table", "table", f.table, "err", result.Err)
		return result
	}

	if result.NullMeasures > 0 {
		slog.WarnContext(
			ctx, "stored unparseable measures as NULL",
			"table", f.table,
			"null_measures", result.NullMeasures,
		)
	}
	slog.InfoContext(ctx, "loaded table", "table", f.table, "rows", result.Rows)
	return result
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// measures casts the mapped fields of a record, counting NULLs.
func measures(record extract.Record, cols []column, stripThousands bool, nulls *int) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		v := ParseMeasure(record[c.Field], stripThousands)
		if v == nil {
			*nulls++
		}
		out[i] = nullable(v)
	}
	return out
}

type keyedRow struct {
	dedupKey string
	key      statekey.Key
	values   []any
}

func (l Loader) finish(table string, columns []string, rows []keyedRow, nulls int) fact {
	rows = Dedup(rows, func(r keyedRow) string { return r.dedupKey })
	f := fact{table: table, columns: columns, nulls: nulls}
	f.rows = make([][]any, len(rows))
	f.keys = make([]statekey.Key, len(rows))
	for i, r := range rows {
		f.rows[i] = r.values
		f.keys[i] = r.key
	}
	return f
}

func (l Loader) unemploymentFact(records []extract.Record) fact {
	columns := []string{"state_year_id", "month", "unemployment_rate"}
	rows := make([]keyedRow, 0, len(records))
	nulls := 0
	for i, record := range records {
		key, err := l.normalizer.Key(record["state"], record["year"])
		if err != nil {
			return fact{table: TableUnemployment, err: fmt.Errorf("unemployment record %d: %w", i, err)}
		}
		month := record["month"]
		rate := ParseMeasure(record["rate"], false)
		if rate == nil {
			nulls++
		}
		rows = append(rows, keyedRow{
			dedupKey: key.ID() + "\x00" + month,
			key:      key,
			values:   []any{key.ID(), month, nullable(rate)},
		})
	}
	return l.finish(TableUnemployment, columns, rows, nulls)
}

func (l Loader) educationFact(records []extract.Record) fact {
	columns := columnNames([]string{"state_year_id"}, educationColumns)
	rows := make([]keyedRow, 0, len(records))
	nulls := 0
	for i, record := range records {
		key, err := l.normalizer.Key(record["STATE"], record["YEAR"])
		if err != nil {
			return fact{table: TableEducation, err: fmt.Errorf("education record %d: %w", i, err)}
		}
		values := append([]any{key.ID()}, measures(record, educationColumns, false, &nulls)...)
		rows = append(rows, keyedRow{dedupKey: key.ID(), key: key, values: values})
	}
	return l.finish(TableEducation, columns, rows, nulls)
}

func (l Loader) crimeFact(records []extract.Record) fact {
	columns := columnNames([]string{"state_year_id"}, crimeColumns)
	rows := make([]keyedRow, 0, len(records))
	nulls := 0
	for i, record := range records {
		key, err := l.normalizer.Key(record["State"], record["Year"])
		if err != nil {
			return fact{table: TableCrime, err: fmt.Errorf("crime record %d: %w", i, err)}
		}
		values := append([]any{key.ID()}, measures(record, crimeColumns, true, &nulls)...)
		rows = append(rows, keyedRow{dedupKey: key.ID(), key: key, values: values})
	}
	return l.finish(TableCrime, columns, rows, nulls)
}
