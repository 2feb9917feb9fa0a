package extract

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// Months returns the English month names January through December.
func Months() []string {
	months := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		months = append(months, m.String())
	}
	return months
}

func UnemploymentQuery(year int, month string) url.Values {
	params := url.Values{}
	params.Set("year", strconv.Itoa(year))
	params.Set("period", month)
	return params
}

type Unemployment struct {
	Years    YearRange
	Provider RowProvider
	// defaults to UnemploymentRowParser
	Parser RowParser
}

func (u Unemployment) Dataset() string {
	return DatasetUnemployment
}

func (u Unemployment) parser() RowParser {
	if u.Parser == nil {
		return UnemploymentRowParser{}
	}
	return u.Parser
}

func (u Unemployment) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		ctx, span := tracer.Start(ctx, "extract:unemployment")
		defer span.End()

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		if err := u.Years.Validate(); err != nil {
			fail(err)
			return
		}
		parser := u.parser()

		for _, year := range u.Years.Years() {
			yearText := strconv.Itoa(year)
			count := 0
			for _, month := range Months() {
				rows, err := u.Provider.Rows(ctx, UnemploymentQuery(year, month))
				if err != nil {
					fail(fmt.Errorf("fetch unemployment data for %s %d: %w", month, year, err))
					return
				}
				slog.DebugContext(ctx, "fetched unemployment rows", "year", year, "month", month, "rows", len(rows))
				count += len(rows)

				for _, row := range rows {
					record, err := parseRow(parser, row)
					if err != nil {
						fail(fmt.Errorf("unemployment %s %d: %w", month, year, err))
						return
					}
					record["month"] = month
					record["year"] = yearText
					if !yield(record, nil) {
						return
					}
				}
			}
			span.AddEvent("unemployment year", rowsEvent(year, count))
		}
	}
}
