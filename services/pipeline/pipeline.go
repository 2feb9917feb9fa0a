package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"govdata-etl/lib/artifacts"
	"govdata-etl/lib/metrics"
	"govdata-etl/lib/sqlutil"
	"govdata-etl/lib/statekey"
	"govdata-etl/services/extract"
	"govdata-etl/services/loader"
	"govdata-etl/services/report"
	"govdata-etl/services/staging"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("govdata.services.pipeline")

const (
	StageExtract = "extract"
	StageStage   = "stage"
	StageLoad    = "load"
	StageReport  = "report"
)

// Datasets is the fixed order every stage walks the datasets in.
var Datasets = []string{
	extract.DatasetUnemployment,
	extract.DatasetEducation,
	extract.DatasetCrime,
}

type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

type Dependencies struct {
	Artifacts artifacts.Store
	// enabled source adapters, at most one per dataset
	Adapters      []extract.Adapter
	OpenStaging   func(ctx context.Context) (staging.Store, error)
	OpenWarehouse func(ctx context.Context) (*sql.DB, sqlutil.Dialect, error)
	Collections   loader.Collections
	Normalizer    *statekey.Normalizer
	Report        report.Options
	// receives the combined overlay table, nil discards it
	ReportTable io.Writer

	// empty disables pushing run metrics
	PushgatewayURL string
	// nil disables the run summary email
	Notifier Notifier
}

type Pipeline struct {
	deps    Dependencies
	runID   string
	metrics *metrics.Run
}

func New(deps Dependencies) (Pipeline, error) {
	runID, err := random.String(8)
	if err != nil {
		return Pipeline{}, fmt.Errorf("generate run id: %w", err)
	}
	if deps.Normalizer == nil {
		deps.Normalizer = statekey.NewNormalizer()
	}
	if deps.ReportTable == nil {
		deps.ReportTable = io.Discard
	}
	return Pipeline{
		deps:    deps,
		runID:   runID,
		metrics: metrics.NewRun(runID),
	}, nil
}

func (p Pipeline) RunID() string {
	return p.runID
}

func (p Pipeline) Metrics() *metrics.Run {
	return p.metrics
}

func collectionFor(c loader.Collections, dataset string) string {
	switch dataset {
	case extract.DatasetUnemployment:
		return c.Unemployment
	case extract.DatasetEducation:
		return c.Education
	case extract.DatasetCrime:
		return c.Crime
	}
	return dataset
}

// stage runs fn inside a span and settles its result.
func (p Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context, result *StageResult)) StageResult {
	ctx, span := tracer.Start(ctx, "pipeline:"+name)
	defer span.End()
	span.SetAttributes(attribute.String("run_id", p.runID))

	start := time.Now()
	result := StageResult{Stage: name}
	fn(ctx, &result)
	result.Duration = time.Since(start)
	result.settle()

	for _, item := range result.Items {
		if item.Err != nil {
			span.RecordError(item.Err)
		}
	}
	if result.Status != Success {
		err := result.Err
		if err == nil {
			err = fmt.Errorf("%s finished with status %s", name, result.Status)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	p.metrics.StageStatus.WithLabelValues(name).Set(float64(result.Status))
	p.metrics.StageDuration.WithLabelValues(name).Set(result.Duration.Seconds())

	slog.InfoContext(
		ctx, "stage finished",
		"stage", name,
		"status", result.Status.String(),
		"duration", result.Duration,
	)
	return result
}

// Extract runs every enabled adapter (or only the named datasets) and saves
// each dataset's records as an artifact. A failing adapter leaves no
// artifact behind, including one from an earlier run.
func (p Pipeline) Extract(ctx context.Context, datasets ...string) StageResult {
	return p.stage(ctx, StageExtract, func(ctx context.Context, result *StageResult) {
		for _, adapter := range p.deps.Adapters {
			dataset := adapter.Dataset()
			if len(datasets) > 0 && !slices.Contains(datasets, dataset) {
				continue
			}
			n, err := p.extractOne(ctx, adapter)
			if err != nil {
				slog.ErrorContext(ctx, "extract failed", "dataset", dataset, "err", err)
				name := extract.ArtifactName(dataset)
				delErr := p.deps.Artifacts.Delete(ctx, name)
				if delErr != nil {
					err = errors.Join(err, fmt.Errorf("remove stale artifact %s: %w", name, delErr))
				}
			}
			result.Items = append(result.Items, Item{Name: dataset, Count: n, Err: err})
		}
		if len(result.Items) == 0 {
			slog.WarnContext(ctx, "no source adapters enabled")
		}
	})
}

func (p Pipeline) extractOne(ctx context.Context, adapter extract.Adapter) (int64, error) {
	records, err := extract.Collect(adapter.Records(ctx))
	if err != nil {
		return 0, err
	}
	data, err := extract.MarshalRecords(records)
	if err != nil {
		return 0, fmt.Errorf("marshal records: %w", err)
	}
	name := extract.ArtifactName(adapter.Dataset())
	err = p.deps.Artifacts.Put(ctx, name, data)
	if err != nil {
		return 0, fmt.Errorf("save artifact %s: %w", name, err)
	}

	p.metrics.RecordsExtracted.WithLabelValues(adapter.Dataset()).Add(float64(len(records)))
	slog.InfoContext(
		ctx, "saved extracted records",
		"dataset", adapter.Dataset(),
		"records", len(records),
		"location", p.deps.Artifacts.Location(name),
	)
	return int64(len(records)), nil
}

// Stage replaces every staged collection with the records of its artifact.
// A dataset without an artifact has its collection cleared.
func (p Pipeline) Stage(ctx context.Context) StageResult {
	return p.stageDatasets(ctx, nil)
}

// failedExtracts maps the datasets whose extract failed earlier in the run
// to their error.
func failedExtracts(result StageResult) map[string]error {
	failed := map[string]error{}
	for _, item := range result.Items {
		if item.Err != nil {
			failed[item.Name] = item.Err
		}
	}
	return failed
}

func (p Pipeline) stageDatasets(ctx context.Context, failed map[string]error) StageResult {
	return p.stage(ctx, StageStage, func(ctx context.Context, result *StageResult) {
		store, err := p.deps.OpenStaging(ctx)
		if err != nil {
			result.Err = fmt.Errorf("open staging store: %w", err)
			return
		}
		defer func() {
			err := store.Close(context.WithoutCancel(ctx))
			if err != nil {
				slog.WarnContext(ctx, "failed to close staging store", "err", err)
			}
		}()

		for _, dataset := range Datasets {
			collection := collectionFor(p.deps.Collections, dataset)
			name := extract.ArtifactName(dataset)

			if extractErr, ok := failed[dataset]; ok {
				err := staging.Write(ctx, store, collection, nil)
				if err != nil {
					extractErr = errors.Join(extractErr, fmt.Errorf("clear %s: %w", collection, err))
				}
				result.Items = append(result.Items, Item{
					Name: collection,
					Err:  fmt.Errorf("extract %s failed: %w", dataset, extractErr),
				})
				continue
			}

			data, err := p.deps.Artifacts.Get(ctx, name)
			if errors.Is(err, artifacts.ErrNotFound) {
				slog.WarnContext(ctx, "no artifact to stage", "dataset", dataset, "artifact", name)
				err = staging.Write(ctx, store, collection, nil)
				if err != nil {
					result.Items = append(result.Items, Item{Name: collection, Err: fmt.Errorf("clear %s: %w", collection, err)})
				}
				continue
			}
			item := Item{Name: collection}
			if err == nil {
				var records []extract.Record
				records, err = extract.UnmarshalRecords(data)
				if err == nil {
					err = staging.Write(ctx, store, collection, records)
				}
				if err == nil {
					item.Count = int64(len(records))
					p.metrics.RecordsStaged.WithLabelValues(collection).Add(float64(len(records)))
				}
			}
			if err != nil {
				item.Err = fmt.Errorf("stage %s: %w", name, err)
				slog.ErrorContext(ctx, "staging failed", "collection", collection, "err", err)
			}
			result.Items = append(result.Items, item)
		}
	})
}

// Load recreates the analytical schema and loads every staged collection.
func (p Pipeline) Load(ctx context.Context) StageResult {
	return p.stage(ctx, StageLoad, func(ctx context.Context, result *StageResult) {
		store, err := p.deps.OpenStaging(ctx)
		if err != nil {
			result.Err = fmt.Errorf("open staging store: %w", err)
			return
		}
		defer func() {
			err := store.Close(context.WithoutCancel(ctx))
			if err != nil {
				slog.WarnContext(ctx, "failed to close staging store", "err", err)
			}
		}()

		db, dialect, err := p.deps.OpenWarehouse(ctx)
		if err != nil {
			result.Err = fmt.Errorf("open analytical store: %w", err)
			return
		}
		defer db.Close()

		l := loader.New(store, db, dialect, p.deps.Normalizer, p.deps.Collections)
		err = l.CreateSchema(ctx)
		if err != nil {
			result.Err = fmt.Errorf("create schema: %w", err)
			return
		}
		for _, table := range l.Load(ctx) {
			result.Items = append(result.Items, Item{Name: table.Table, Count: table.Rows, Err: table.Err})
			if table.Err != nil {
				continue
			}
			p.metrics.RowsLoaded.WithLabelValues(table.Table).Add(float64(table.Rows))
			p.metrics.NullMeasures.WithLabelValues(table.Table).Add(float64(table.NullMeasures))
		}
	})
}

// Report renders the charts and the combined overlay from the analytical store.
func (p Pipeline) Report(ctx context.Context) StageResult {
	return p.stage(ctx, StageReport, func(ctx context.Context, result *StageResult) {
		db, _, err := p.deps.OpenWarehouse(ctx)
		if err != nil {
			result.Err = fmt.Errorf("open analytical store: %w", err)
			return
		}
		defer db.Close()

		reporter, err := report.New(db, p.deps.Report)
		if err != nil {
			result.Err = err
			return
		}
		err = reporter.Run(ctx, p.deps.ReportTable)
		result.Items = append(result.Items, Item{Name: p.deps.Report.Output, Err: err})
	})
}

// Run executes every stage in order. A failing stage does not stop the
// stages after it; datasets whose extract failed are cleared from staging
// and reported as failed there too.
func (p Pipeline) Run(ctx context.Context) Summary {
	summary := Summary{RunID: p.runID, Started: time.Now()}
	slog.InfoContext(ctx, "starting run", "run_id", p.runID)

	var failed map[string]error
	for _, run := range []func(context.Context) StageResult{
		func(ctx context.Context) StageResult {
			result := p.Extract(ctx)
			failed = failedExtracts(result)
			return result
		},
		func(ctx context.Context) StageResult { return p.stageDatasets(ctx, failed) },
		p.Load,
		p.Report,
	} {
		if ctx.Err() != nil {
			summary.Stages = append(summary.Stages, StageResult{
				Stage:  "cancelled",
				Status: Fatal,
				Err:    context.Cause(ctx),
			})
			break
		}
		summary.Stages = append(summary.Stages, run(ctx))
	}
	return summary
}

// Finish pushes the run metrics and mails the summary when configured.
// Failures are logged and never change the run status.
func (p Pipeline) Finish(ctx context.Context, summary Summary) {
	ctx = context.WithoutCancel(ctx)
	if p.deps.PushgatewayURL != "" {
		err := p.metrics.Push(ctx, p.deps.PushgatewayURL)
		if err != nil {
			slog.WarnContext(ctx, "failed to push run metrics", "err", err)
		}
	}
	if p.deps.Notifier != nil {
		err := p.deps.Notifier.Send(ctx, summary.Subject(), summary.String())
		if err != nil {
			slog.WarnContext(ctx, "failed to send run summary", "err", err)
		}
	}
}
