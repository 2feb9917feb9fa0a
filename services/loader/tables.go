package loader

import (
	"govdata-etl/services/extract"
)

// column maps a staged record field onto a relational column
type column struct {
	Name  string
	Field string
}

var educationColumns = []column{
	{"total_revenue", "TOTALREV"},
	{"federal_revenue", "TFEDREV"},
	{"state_revenue", "TSTREV"},
	{"local_revenue", "TLOCREV"},
	{"total_expenditure", "TOTALEXP"},
	{"instruction_expenditure", "TCURINST"},
	{"support_services_expenditure", "TCURSSVC"},
	{"other_expenditure", "TCUROTH"},
	{"capital_outlay_expenditure", "TCAPOUT"},
}

// population plus the nine count measures, rates are derivable and not stored
var crimeColumns = func() []column {
	names := []string{
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
	out := make([]column, len(names))
	for i, name := range names {
		out[i] = column{Name: name, Field: extract.CrimeMeasures[i]}
	}
	return out
}()

func columnNames(key []string, cols []column) []string {
	out := append([]string{}, key...)
	for _, c := range cols {
		out = append(out, c.Name)
	}
	return out
}

const (
	TableStateYear    = "state_year"
	TableUnemployment = "unemployment_rate"
	TableEducation    = "education_expenditure"
	TableCrime        = "crime_rate"
)
