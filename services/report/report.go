package report

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("govdata.services.report")

type Options struct {
	// html file the charts are written to
	Output     string
	FocusState string
	// expr-lang expression over the crime columns, empty for the default sum
	TotalCrimeExpr string
}

// Reporter reads the analytical store and renders the report. It never
// writes to the store.
type Reporter struct {
	db      *sql.DB
	options Options
	total   TotalCrime
}

func New(db *sql.DB, options Options) (Reporter, error) {
	total, err := NewTotalCrime(options.TotalCrimeExpr)
	if err != nil {
		return Reporter{}, err
	}
	return Reporter{db: db, options: options, total: total}, nil
}

// Views queries the analytical store and builds every chart.
func (r Reporter) Views(ctx context.Context) (Views, error) {
	unemployment, err := UnemploymentByStateYear(ctx, r.db)
	if err != nil {
		return Views{}, err
	}
	education, err := EducationDetail(ctx, r.db)
	if err != nil {
		return Views{}, err
	}
	crime, err := CrimeDetail(ctx, r.db)
	if err != nil {
		return Views{}, err
	}
	slog.DebugContext(
		ctx, "queried report data",
		"unemployment", len(unemployment),
		"education", len(education),
		"crime", len(crime),
	)
	return BuildViews(unemployment, education, crime, r.options.FocusState, r.total)
}

// Run writes the chart page to the configured output and the combined
// table to tableOut.
func (r Reporter) Run(ctx context.Context, tableOut io.Writer) (err error) {
	ctx, span := tracer.Start(ctx, "report:run")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	views, err := r.Views(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(r.options.Output)
	if err != nil {
		return fmt.Errorf("create report output: %w", err)
	}
	defer f.Close()
	err = RenderHTML(f, views)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "wrote report", "path", r.options.Output, "years", len(views.Combined.Years))

	if tableOut != nil {
		RenderTable(tableOut, views.Combined)
	}
	return nil
}
