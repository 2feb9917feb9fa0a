package extract

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/codes"
)

// state and crime group options selected on the crime query form
const (
	crimeStateOptions = 51
	crimeGroupOptions = 4
)

// CrimeQuery returns the form values selecting every state and crime group
// for one year.
func CrimeQuery(year int) url.Values {
	params := url.Values{}
	for i := 1; i <= crimeStateOptions; i++ {
		params.Add("states", strconv.Itoa(i))
	}
	for i := 0; i < crimeGroupOptions; i++ {
		params.Add("groups", strconv.Itoa(i))
	}
	params.Set("year", strconv.Itoa(year))
	return params
}

type Crime struct {
	Years    YearRange
	Provider RowProvider
	// defaults to CrimeRowParser
	Parser RowParser
}

func (c Crime) Dataset() string {
	return DatasetCrime
}

func (c Crime) parser() RowParser {
	if c.Parser == nil {
		return CrimeRowParser{}
	}
	return c.Parser
}

func (c Crime) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		ctx, span := tracer.Start(ctx, "extract:crime")
		defer span.End()

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		if err := c.Years.Validate(); err != nil {
			fail(err)
			return
		}
		parser := c.parser()

		for _, year := range c.Years.Years() {
			rows, err := c.Provider.Rows(ctx, CrimeQuery(year))
			if err != nil {
				fail(fmt.Errorf("fetch crime data for %d: %w", year, err))
				return
			}
			slog.DebugContext(ctx, "fetched crime rows", "year", year, "rows", len(rows))
			span.AddEvent("crime rows", rowsEvent(year, len(rows)))

			for _, row := range rows {
				record, err := parseRow(parser, row)
				if err != nil {
					fail(fmt.Errorf("crime %d: %w", year, err))
					return
				}
				record["Year"] = strconv.Itoa(year)
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}
