package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("govdata.services.extract")

var (
	// ErrParse is returned when a row does not match the expected layout.
	ErrParse = errors.New("row does not match the expected layout")
	// ErrMalformed is returned when a downloaded resource is missing data.
	ErrMalformed = errors.New("malformed source resource")
)

const (
	DatasetUnemployment = "unemployment"
	DatasetEducation    = "education"
	DatasetCrime        = "crime"
)

// Record is one flat row of a dataset, field name to raw value. Every
// record carries a state identifier and a year.
type Record map[string]string

// Adapter turns one provider's output into a lazy sequence of records.
// Iteration stops at the first error, which is yielded as the last element.
type Adapter interface {
	Dataset() string
	Records(ctx context.Context) iter.Seq2[Record, error]
}

type YearRange struct {
	Start int
	End   int
}

func (r YearRange) Validate() error {
	if r.Start <= 0 || r.End < r.Start {
		return fmt.Errorf("invalid year range [%d, %d]", r.Start, r.End)
	}
	return nil
}

// Years returns every year in the closed range in ascending order.
func (r YearRange) Years() []int {
	if r.End < r.Start {
		return nil
	}
	years := make([]int, 0, r.End-r.Start+1)
	for y := r.Start; y <= r.End; y++ {
		years = append(years, y)
	}
	return years
}

// RowParser turns the text of one result row into a record.
type RowParser interface {
	ParseRow(text string) (Record, error)
}

type RowParserFunc func(text string) (Record, error)

func (f RowParserFunc) ParseRow(text string) (Record, error) {
	return f(text)
}

// RowProvider returns the row texts of a provider query.
type RowProvider interface {
	Rows(ctx context.Context, params url.Values) ([]string, error)
}

// parseRow runs parser over one row and returns a record the caller owns.
// A parser returning no record and no error is treated as a parse error.
func parseRow(parser RowParser, text string) (Record, error) {
	record, err := parser.ParseRow(text)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: parser returned no record for %q", ErrParse, text)
	}
	return maps.Clone(record), nil
}

// Collect drains a sequence, returning the records seen before the first
// error along with that error.
func Collect(seq iter.Seq2[Record, error]) ([]Record, error) {
	var out []Record
	for record, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, record)
	}
	return out, nil
}

// MarshalRecords renders records as an indented JSON array. Map keys are
// emitted in sorted order.
func MarshalRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.MarshalIndent(records, "", "    ")
}

func UnmarshalRecords(data []byte) ([]Record, error) {
	var records []Record
	err := json.Unmarshal(data, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ArtifactName is the file the extracted records of a dataset are saved as.
func ArtifactName(dataset string) string {
	switch dataset {
	case DatasetUnemployment:
		return "unemployment-data.json"
	case DatasetEducation:
		return "Education.json"
	case DatasetCrime:
		return "CrimeDatabyState.json"
	}
	return dataset + ".json"
}

func rowsEvent(year, rows int) trace.EventOption {
	return trace.WithAttributes(
		attribute.Int("year", year),
		attribute.Int("rows", rows),
	)
}
