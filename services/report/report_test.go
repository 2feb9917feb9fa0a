package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"govdata-etl/lib/sqlutil"
	"govdata-etl/lib/testutil"

	"github.com/stretchr/testify/require"
)

func crimeRow(year, state string, counts ...float64) MeasureRow {
	row := MeasureRow{Year: year, State: state, Measures: map[string]float64{"population_coverage": 1_000_000}}
	for i, c := range counts {
		row.Measures[CrimeColumns[i+1]] = c
	}
	return row
}

func TestBuildCombined(t *testing.T) {
	total, err := NewTotalCrime("")
	require.NoError(t, err)

	combined, err := BuildCombined(
		[]UnemploymentRow{
			{Year: "2019", State: "Ohio", AvgRate: 3.0},
			{Year: "2019", State: "Texas", AvgRate: 2.0},
		},
		[]MeasureRow{
			{Year: "2019", State: "Ohio", Measures: map[string]float64{"total_expenditure": 60}},
			{Year: "2019", State: "Texas", Measures: map[string]float64{"total_expenditure": 40}},
		},
		[]MeasureRow{
			crimeRow("2019", "Ohio", 1, 1, 1, 1, 1, 1, 1, 1, 1),
			crimeRow("2019", "Texas", 11),
		},
		total,
	)
	require.NoError(t, err)
	require.Equal(t, Combined{
		Years:        []string{"2019"},
		Unemployment: []float64{5.0},
		Expenditure:  []float64{100},
		Crime:        []float64{20},
	}, combined)
}

func TestBuildCombinedMissingYears(t *testing.T) {
	total, err := NewTotalCrime("")
	require.NoError(t, err)

	combined, err := BuildCombined(
		[]UnemploymentRow{{Year: "2018", State: "Ohio", AvgRate: 4.5}},
		nil,
		[]MeasureRow{crimeRow("2019", "Ohio", 7)},
		total,
	)
	require.NoError(t, err)
	require.Equal(t, []string{"2018", "2019"}, combined.Years)
	require.Equal(t, []float64{4.5, 0}, combined.Unemployment)
	require.Equal(t, []float64{0, 0}, combined.Expenditure)
	require.Equal(t, []float64{0, 7}, combined.Crime)
}

func TestTotalCrimeExpression(t *testing.T) {
	total, err := NewTotalCrime("violent_crime_total + property_crime_total")
	require.NoError(t, err)
	value, err := total.Eval(crimeRow("2019", "Ohio", 10, 1, 1, 1, 1, 30))
	require.NoError(t, err)
	require.Equal(t, 40.0, value)

	_, err = NewTotalCrime("arson + robbery")
	require.Error(t, err)
}

func TestBuildViews(t *testing.T) {
	total, err := NewTotalCrime("")
	require.NoError(t, err)

	views, err := BuildViews(
		[]UnemploymentRow{
			{Year: "2019", State: "Texas", AvgRate: 3.5},
			{Year: "2018", State: "Ohio", AvgRate: 4.5},
		},
		nil,
		[]MeasureRow{
			crimeRow("2018", "Alabama", 1, 1, 1, 5),
			crimeRow("2018", "Ohio", 1, 1, 1, 9),
		},
		"Alabama",
		total,
	)
	require.NoError(t, err)

	require.Equal(t, []string{"2018", "2019"}, views.Unemployment.Years)
	require.Len(t, views.Unemployment.Series, 2)
	require.Equal(t, "Ohio", views.Unemployment.Series[0].Name)
	require.Equal(t, 4.5, *views.Unemployment.Series[0].Values[0])
	require.Nil(t, views.Unemployment.Series[0].Values[1])

	require.Len(t, views.FocusCrime.Series, 1)
	require.Equal(t, "Alabama", views.FocusCrime.Series[0].Name)
	require.Equal(t, 5.0, *views.FocusCrime.Series[0].Values[0])
}

const warehouseFixture = `
CREATE TABLE state_year (state_year_id VARCHAR(64) PRIMARY KEY, state VARCHAR(64), year VARCHAR(4));
CREATE TABLE unemployment_rate (state_year_id VARCHAR(64), month VARCHAR(16), unemployment_rate DOUBLE PRECISION);
CREATE TABLE education_expenditure (state_year_id VARCHAR(64) PRIMARY KEY, total_revenue DOUBLE PRECISION,
    federal_revenue DOUBLE PRECISION, state_revenue DOUBLE PRECISION, local_revenue DOUBLE PRECISION,
    total_expenditure DOUBLE PRECISION, instruction_expenditure DOUBLE PRECISION,
    support_services_expenditure DOUBLE PRECISION, other_expenditure DOUBLE PRECISION,
    capital_outlay_expenditure DOUBLE PRECISION);
CREATE TABLE crime_rate (state_year_id VARCHAR(64) PRIMARY KEY, population_coverage DOUBLE PRECISION,
    violent_crime_total DOUBLE PRECISION, murder_and_nonnegligent_manslaughter DOUBLE PRECISION,
    legacy_rape1 DOUBLE PRECISION, robbery DOUBLE PRECISION, aggravated_assault DOUBLE PRECISION,
    property_crime_total DOUBLE PRECISION, burglary DOUBLE PRECISION, larceny_theft DOUBLE PRECISION,
    motor_vehicle_theft DOUBLE PRECISION);
INSERT INTO state_year VALUES ('Alabama2019', 'Alabama', '2019'), ('Ohio2019', 'Ohio', '2019');
INSERT INTO unemployment_rate VALUES ('Alabama2019', 'January', 3.0), ('Alabama2019', 'February', 4.0),
    ('Ohio2019', 'January', 2.0);
INSERT INTO education_expenditure (state_year_id, total_revenue, total_expenditure)
    VALUES ('Alabama2019', 80, 70), ('Ohio2019', 20, 30);
INSERT INTO crime_rate (state_year_id, population_coverage, violent_crime_total, robbery)
    VALUES ('Alabama2019', 5000000, 12, 8), ('Ohio2019', 11000000, NULL, NULL);
`

func TestReporterRun(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "services/report"})
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, sqlutil.ExecScript(ctx, res.DB, warehouseFixture))

	output := filepath.Join(t.TempDir(), "report.html")
	reporter, err := New(res.DB, Options{Output: output, FocusState: "Alabama"})
	require.NoError(t, err)

	unemployment, err := UnemploymentByStateYear(ctx, res.DB)
	require.NoError(t, err)
	require.Equal(t, []UnemploymentRow{
		{Year: "2019", State: "Alabama", AvgRate: 3.5},
		{Year: "2019", State: "Ohio", AvgRate: 2.0},
	}, unemployment)

	crime, err := CrimeDetail(ctx, res.DB)
	require.NoError(t, err)
	require.Len(t, crime, 2)
	require.NotContains(t, crime[1].Measures, "robbery")

	var table bytes.Buffer
	require.NoError(t, reporter.Run(ctx, &table))

	html, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Contains(t, string(html), "Robbery in Alabama")
	require.Contains(t, string(html), "Total crime data")

	require.Contains(t, table.String(), "2019")
	require.Contains(t, table.String(), "5.50")
	require.Contains(t, table.String(), "100.00")
	require.Contains(t, table.String(), "20.00")
}
