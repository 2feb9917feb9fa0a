package extract

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"govdata-etl/lib/spreadsheet"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// EducationMeasures are the summed finance columns of the education
// spreadsheet, in output order.
var EducationMeasures = []string{
	"TOTALREV",
	"TFEDREV",
	"TSTREV",
	"TLOCREV",
	"TOTALEXP",
	"TCURINST",
	"TCURSSVC",
	"TCUROTH",
	"TCAPOUT",
}

// SpreadsheetSource downloads the spreadsheet of one year into dir and
// returns its path.
type SpreadsheetSource interface {
	Fetch(ctx context.Context, year int, dir string) (string, error)
}

// ExpandYearTemplate substitutes {year} with the four digit year and {yy}
// with its last two digits.
func ExpandYearTemplate(template string, year int) string {
	full := fmt.Sprintf("%04d", year)
	return strings.NewReplacer(
		"{year}", full,
		"{yy}", full[len(full)-2:],
	).Replace(template)
}

// HTTPSpreadsheetSource downloads spreadsheets from a URL template.
type HTTPSpreadsheetSource struct {
	Client      *resty.Client
	URLTemplate string
}

func (s HTTPSpreadsheetSource) Fetch(ctx context.Context, year int, dir string) (string, error) {
	link := ExpandYearTemplate(s.URLTemplate, year)
	ext := ".xls"
	if parsed, err := url.Parse(link); err == nil && path.Ext(parsed.Path) != "" {
		ext = path.Ext(parsed.Path)
	}
	out := filepath.Join(dir, fmt.Sprintf("education_%d%s", year, ext))

	res, err := s.Client.R().
		SetContext(ctx).
		SetOutput(out).
		Get(link)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", link, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("download %s: unexpected status %s", link, res.Status())
	}
	slog.DebugContext(ctx, "downloaded education spreadsheet", "url", link, "path", out, "bytes", res.Size())
	return out, nil
}

type Education struct {
	Years  YearRange
	Source SpreadsheetSource
	// parent of the per run working directory, defaults to os.TempDir()
	WorkDir string
}

func (e Education) Dataset() string {
	return DatasetEducation
}

func (e Education) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		ctx, span := tracer.Start(ctx, "extract:education")
		defer span.End()

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		if err := e.Years.Validate(); err != nil {
			fail(err)
			return
		}

		dir, err := os.MkdirTemp(e.WorkDir, "govdata-education-*")
		if err != nil {
			fail(fmt.Errorf("create working directory: %w", err))
			return
		}
		defer func() {
			err := os.RemoveAll(dir)
			if err != nil {
				slog.WarnContext(ctx, "failed to remove working directory", "dir", dir, "err", err)
			}
		}()

		for _, year := range e.Years.Years() {
			file, err := e.Source.Fetch(ctx, year, dir)
			if err != nil {
				fail(fmt.Errorf("fetch education data for %d: %w", year, err))
				return
			}
			rows, err := spreadsheet.Read(file)
			if err != nil {
				fail(fmt.Errorf("%w: %w", ErrMalformed, err))
				return
			}
			records, err := AggregateEducation(rows, year)
			if err != nil {
				fail(fmt.Errorf("education %d: %w", year, err))
				return
			}
			span.AddEvent("education year", rowsEvent(year, len(records)))

			for _, record := range records {
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}

// AggregateEducation sums the finance measures of every spreadsheet row
// sharing a STATE code and returns one record per code in ascending order.
// Empty measure cells count as zero, any other non numeric cell is an error.
func AggregateEducation(rows [][]string, year int) ([]Record, error) {
	table, err := spreadsheet.NewTable(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	stateCol, ok := table.Column("STATE")
	if !ok {
		return nil, fmt.Errorf("%w: missing column STATE", ErrMalformed)
	}
	measureCols := make([]int, len(EducationMeasures))
	for i, name := range EducationMeasures {
		col, ok := table.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrMalformed, name)
		}
		measureCols[i] = col
	}

	sums := map[int][]float64{}
	for i := range table.Rows {
		stateCell := table.Cell(i, stateCol)
		if stateCell == "" {
			continue
		}
		code, err := parseCode(stateCell)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: STATE %q is not a code", ErrMalformed, i+2, stateCell)
		}

		totals, ok := sums[code]
		if !ok {
			totals = make([]float64, len(EducationMeasures))
			sums[code] = totals
		}
		for m, col := range measureCols {
			cell := table.Cell(i, col)
			if cell == "" {
				continue
			}
			value, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
			if err != nil {
				return nil, fmt.Errorf(
					"%w: row %d: %s %q is not numeric",
					ErrMalformed, i+2, EducationMeasures[m], cell,
				)
			}
			totals[m] += value
		}
	}

	codes := make([]int, 0, len(sums))
	for code := range sums {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	yearText := strconv.Itoa(year)
	records := make([]Record, 0, len(codes))
	for _, code := range codes {
		record := make(Record, len(EducationMeasures)+2)
		record["STATE"] = strconv.Itoa(code)
		record["YEAR"] = yearText
		for m, name := range EducationMeasures {
			record[name] = strconv.FormatFloat(sums[code][m], 'f', -1, 64)
		}
		records = append(records, record)
	}
	return records, nil
}

// spreadsheet codes sometimes come through as floats ("1.0")
func parseCode(cell string) (int, error) {
	code, err := strconv.Atoi(cell)
	if err == nil {
		return code, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid code %q", cell)
	}
	return int(f), nil
}
