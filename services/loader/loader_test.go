package loader

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"

	"govdata-etl/lib/configutil/sqlconfig"
	"govdata-etl/lib/sqlutil"
	"govdata-etl/lib/statekey"
	"govdata-etl/lib/testutil"
	"govdata-etl/services/extract"
	"govdata-etl/services/staging"
	"govdata-etl/services/staging/sqlitestore"

	"github.com/stretchr/testify/require"
)

var testCollections = Collections{
	Unemployment: "unemployment",
	Education:    "education",
	Crime:        "crime",
}

type env struct {
	store     sqlitestore.Store
	warehouse *sql.DB
	loader    Loader
}

func setup(t *testing.T) (env, func()) {
	ctx := context.Background()
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/loader",
		DbSchema: sqlitestore.Schema,
	})
	store, err := sqlitestore.New(ctx, res.DB)
	require.NoError(t, err)

	warehouse, dialect, err := sqlconfig.Struct{
		Driver: "sqlite",
		File:   filepath.Join(t.TempDir(), "warehouse.db"),
	}.OpenDB(ctx)
	require.NoError(t, err)

	l := New(store, warehouse, dialect, statekey.NewNormalizer("Puerto Rico"), testCollections)
	require.NoError(t, l.CreateSchema(ctx))

	return env{store: store, warehouse: warehouse, loader: l}, func() {
		warehouse.Close()
		cleanup()
	}
}

func stage(t *testing.T, e env, collection string, records []extract.Record) {
	require.NoError(t, staging.Write(context.Background(), e.store, collection, records))
}

func queryStrings(t *testing.T, db *sql.DB, query string) []string {
	rows, err := db.Query(query)
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

func resultFor(results []TableResult, table string) TableResult {
	for _, r := range results {
		if r.Table == table {
			return r
		}
	}
	return TableResult{}
}

func TestLoadUnemploymentBuildsDimension(t *testing.T) {
	e, cleanup := setup(t)
	defer cleanup()

	stage(t, e, "unemployment", []extract.Record{
		{"state": "Ohio", "rate": "5.5", "month": "January", "year": "2020"},
		{"state": "Texas", "rate": "3.5", "month": "January", "year": "2020"},
	})

	results := e.loader.Load(context.Background())
	require.Len(t, results, 4)
	for _, r := range results {
		require.NoError(t, r.Err, r.Table)
	}
	require.Equal(t, int64(2), resultFor(results, TableStateYear).Rows)

	ids := queryStrings(t, e.warehouse, "SELECT state_year_id FROM state_year ORDER BY state_year_id")
	require.Equal(t, []string{"Ohio2020", "Texas2020"}, ids)

	var rate float64
	err := e.warehouse.QueryRow(
		"SELECT unemployment_rate FROM unemployment_rate WHERE state_year_id = 'Texas2020' AND month = 'January'",
	).Scan(&rate)
	require.NoError(t, err)
	require.Equal(t, 3.5, rate)
}

func TestLoadDedupLastWins(t *testing.T) {
	e, cleanup := setup(t)
	defer cleanup()

	stage(t, e, "unemployment", []extract.Record{
		{"state": "Ohio", "rate": "5.5", "month": "March", "year": "2020"},
		{"state": "OH", "rate": "6.1", "month": "March", "year": "2020"},
		{"state": "Ohio", "rate": "5.9", "month": "April", "year": "2020"},
	})

	results := e.loader.Load(context.Background())
	require.NoError(t, resultFor(results, TableUnemployment).Err)
	require.Equal(t, int64(2), resultFor(results, TableUnemployment).Rows)

	var rate float64
	err := e.warehouse.QueryRow(
		"SELECT unemployment_rate FROM unemployment_rate WHERE state_year_id = 'Ohio2020' AND month = 'March'",
	).Scan(&rate)
	require.NoError(t, err)
	require.Equal(t, 6.1, rate)
}

func TestLoadCrimeStripsThousands(t *testing.T) {
	e, cleanup := setup(t)
	defer cleanup()

	record := extract.Record{"State": "Alabama", "Year": "2015"}
	values := []string{
		"4,858,979", "22,952", "348", "1,436", "4,985", "16,183", "131,878", "32,041", "89,986", "9,851",
		"472.4", "7.2", "29.6", "102.6", "333.1", "2,714.1", "659.4", "1,851.9", "202.7",
	}
	for i, m := range extract.CrimeMeasures {
		record[m] = values[i]
	}
	stage(t, e, "crime", []extract.Record{record})

	results := e.loader.Load(context.Background())
	require.NoError(t, resultFor(results, TableCrime).Err)
	require.Equal(t, 0, resultFor(results, TableCrime).NullMeasures)

	var population, violent, theft float64
	err := e.warehouse.QueryRow(
		"SELECT population_coverage, violent_crime_total, motor_vehicle_theft FROM crime_rate WHERE state_year_id = 'Alabama2015'",
	).Scan(&population, &violent, &theft)
	require.NoError(t, err)
	require.Equal(t, 4858979.0, population)
	require.Equal(t, 22952.0, violent)
	require.Equal(t, 9851.0, theft)
}

func TestLoadEducationByCodeWithNullMeasure(t *testing.T) {
	e, cleanup := setup(t)
	defer cleanup()

	record := extract.Record{"STATE": "36", "YEAR": "2016"}
	for _, c := range educationColumns {
		record[c.Field] = "100"
	}
	record["TCAPOUT"] = "n/a"
	stage(t, e, "education", []extract.Record{record})

	results := e.loader.Load(context.Background())
	education := resultFor(results, TableEducation)
	require.NoError(t, education.Err)
	require.Equal(t, 1, education.NullMeasures)

	var capital sql.NullFloat64
	var total float64
	err := e.warehouse.QueryRow(
		"SELECT total_revenue, capital_outlay_expenditure FROM education_expenditure WHERE state_year_id = 'Ohio2016'",
	).Scan(&total, &capital)
	require.NoError(t, err)
	require.Equal(t, 100.0, total)
	require.False(t, capital.Valid)
}

func TestLoadContinuesAfterFailedTable(t *testing.T) {
	e, cleanup := setup(t)
	defer cleanup()

	stage(t, e, "unemployment", []extract.Record{
		{"state": "Ohio", "rate": "5.5", "month": "January", "year": "2020"},
	})
	stage(t, e, "education", []extract.Record{
		{"STATE": "99", "YEAR": "2020", "TOTALREV": "1"},
	})
	stage(t, e, "crime", []extract.Record{
		{"State": "Puerto Rico", "Year": "2020", "Population_Coverage": "3,000,000"},
	})

	results := e.loader.Load(context.Background())
	require.ErrorIs(t, resultFor(results, TableEducation).Err, statekey.ErrUnknownCode)
	require.NoError(t, resultFor(results, TableUnemployment).Err)
	require.NoError(t, resultFor(results, TableCrime).Err)

	ids := queryStrings(t, e.warehouse, "SELECT state_year_id FROM state_year ORDER BY state_year_id")
	require.Equal(t, []string{"Ohio2020", "Puerto Rico2020"}, ids)
}

func TestLoadTwiceWithoutSchemaFails(t *testing.T) {
	e, cleanup := setup(t)
	defer cleanup()
	ctx := context.Background()

	stage(t, e, "unemployment", []extract.Record{
		{"state": "Ohio", "rate": "5.5", "month": "January", "year": "2020"},
	})
	for _, r := range e.loader.Load(ctx) {
		require.NoError(t, r.Err)
	}

	results := e.loader.Load(ctx)
	require.Error(t, resultFor(results, TableStateYear).Err)

	require.NoError(t, e.loader.CreateSchema(ctx))
	for _, r := range e.loader.Load(ctx) {
		require.NoError(t, r.Err)
	}
}

func TestDedup(t *testing.T) {
	type row struct {
		key   string
		value int
	}
	key := func(r row) string { return r.key }
	rows := []row{{"a", 1}, {"b", 2}, {"a", 3}, {"c", 4}, {"b", 5}}

	once := Dedup(rows, key)
	require.Equal(t, []row{{"a", 3}, {"c", 4}, {"b", 5}}, once)
	require.Equal(t, once, Dedup(once, key))
	require.Empty(t, Dedup([]row{}, key))
}

func TestParseMeasure(t *testing.T) {
	require.Equal(t, 4858979.0, *ParseMeasure("4,858,979", true))
	require.Nil(t, ParseMeasure("4,858,979", false))
	require.Equal(t, 5.5, *ParseMeasure(" 5.5 ", false))
	require.Nil(t, ParseMeasure("", false))
	require.Nil(t, ParseMeasure("NaN", false))
	require.Nil(t, ParseMeasure("Inf", false))
	require.Nil(t, ParseMeasure("(X)", true))
}

func TestSchemaStatements(t *testing.T) {
	stmts := sqlutil.SplitStatements(Schema)
	require.Len(t, stmts, 8)
	require.Contains(t, stmts[0], "DROP TABLE IF EXISTS crime_rate")
	require.Contains(t, stmts[4], "CREATE TABLE state_year")
}

func TestLoadTwentyYearsOfUnemployment(t *testing.T) {
	e, cleanup := setup(t)
	defer cleanup()

	var records []extract.Record
	for year := 2000; year < 2020; year++ {
		for _, month := range extract.Months() {
			for _, state := range statekey.Names() {
				records = append(records, extract.Record{
					"state": state,
					"rate":  "4.2",
					"month": month,
					"year":  strconv.Itoa(year),
				})
			}
		}
	}
	require.Len(t, records, 12240)
	stage(t, e, "unemployment", records)

	results := e.loader.Load(context.Background())
	unemployment := resultFor(results, TableUnemployment)
	require.NoError(t, unemployment.Err)
	require.EqualValues(t, 12240, unemployment.Rows)
	require.EqualValues(t, 20*statekey.CodeCount, resultFor(results, TableStateYear).Rows)
}
