package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type UnemploymentRow struct {
	Year  string
	State string
	// average of the monthly rates, 0 when every month is NULL
	AvgRate float64
}

// MeasureRow is one state and year of a fact table, keyed by column name.
// NULL measures are absent from the map.
type MeasureRow struct {
	Year     string
	State    string
	Measures map[string]float64
}

var EducationColumns = []string{
	"total_revenue",
	"federal_revenue",
	"state_revenue",
	"local_revenue",
	"total_expenditure",
	"instruction_expenditure",
	"support_services_expenditure",
	"other_expenditure",
	"capital_outlay_expenditure",
}

var CrimeColumns = []string{
	"population_coverage",
	"violent_crime_total",
	"murder_and_nonnegligent_manslaughter",
	"legacy_rape1",
	"robbery",
	"aggravated_assault",
	"property_crime_total",
	"burglary",
	"larceny_theft",
	"motor_vehicle_theft",
}

const unemploymentQuery = `SELECT s.year, s.state, AVG(u.unemployment_rate)
FROM unemployment_rate u
JOIN state_year s ON u.state_year_id = s.state_year_id
GROUP BY s.year, s.state
ORDER BY s.year, s.state`

func UnemploymentByStateYear(ctx context.Context, db *sql.DB) ([]UnemploymentRow, error) {
	rows, err := db.QueryContext(ctx, unemploymentQuery)
	if err != nil {
		return nil, fmt.Errorf("query unemployment: %w", err)
	}
	defer rows.Close()

	var out []UnemploymentRow
	for rows.Next() {
		var row UnemploymentRow
		var avg sql.NullFloat64
		err := rows.Scan(&row.Year, &row.State, &avg)
		if err != nil {
			return nil, err
		}
		row.AvgRate = avg.Float64
		out = append(out, row)
	}
	return out, rows.Err()
}

func detailQuery(table string, columns []string) string {
	selected := make([]string, len(columns))
	for i, c := range columns {
		selected[i] = "f." + c
	}
	return fmt.Sprintf(
		"SELECT s.year, s.state, %s FROM %s f JOIN state_year s ON f.state_year_id = s.state_year_id ORDER BY s.year, s.state",
		strings.Join(selected, ", "), table,
	)
}

func queryDetail(ctx context.Context, db *sql.DB, table string, columns []string) ([]MeasureRow, error) {
	rows, err := db.QueryContext(ctx, detailQuery(table, columns))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []MeasureRow
	for rows.Next() {
		row := MeasureRow{Measures: make(map[string]float64, len(columns))}
		values := make([]sql.NullFloat64, len(columns))
		dest := []any{&row.Year, &row.State}
		for i := range values {
			dest = append(dest, &values[i])
		}
		err := rows.Scan(dest...)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if v.Valid {
				row.Measures[columns[i]] = v.Float64
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func EducationDetail(ctx context.Context, db *sql.DB) ([]MeasureRow, error) {
	return queryDetail(ctx, db, "education_expenditure", EducationColumns)
}

func CrimeDetail(ctx context.Context, db *sql.DB) ([]MeasureRow, error) {
	return queryDetail(ctx, db, "crime_rate", CrimeColumns)
}
