package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// CrimeMeasures are the numeric columns of a crime result row, in order.
var CrimeMeasures = []string{
	"Population_Coverage",
	"Violent_crime_total",
	"Murder_and_nonnegligent_manslaughter",
	"Legacy_rape1",
	"Robbery",
	"Aggravated_assault",
	"Property_crime_total",
	"Burglary",
	"Larceny-theft",
	"Motor_vehicle_theft",
	"Violent_Crime_rate",
	"Murder_and_nonnegligent_manslaughter_rate",
	"Legacy_rape_rate1",
	"Robbery_rate",
	"Aggravated_assault_rate",
	"Property_crime_rate",
	"Burglary_rate",
	"Larceny-theft_rate",
	"Motor_vehicle_theft_rate",
}

var crimeRowPattern = regexp.MustCompile(`^([A-Za-z ]+)([0-9,. ]+)$`)

// CrimeRowParser splits "<state name> <19 numbers>" rows. Thousands
// separators are kept in the emitted values.
type CrimeRowParser struct{}

func (CrimeRowParser) ParseRow(text string) (Record, error) {
	text = strings.TrimSpace(text)
	match := crimeRowPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, fmt.Errorf("%w: crime row %q", ErrParse, text)
	}
	state := strings.TrimSpace(match[1])
	if state == "" {
		return nil, fmt.Errorf("%w: crime row %q has no state", ErrParse, text)
	}
	values := strings.Fields(match[2])
	if len(values) != len(CrimeMeasures) {
		return nil, fmt.Errorf(
			"%w: crime row %q has %d values, expected %d",
			ErrParse, text, len(values), len(CrimeMeasures),
		)
	}

	record := make(Record, len(CrimeMeasures)+2)
	record["State"] = state
	for i, key := range CrimeMeasures {
		record[key] = values[i]
	}
	return record, nil
}

// UnemploymentRowParser splits "<state name> <rate>" rows where the state
// name is one to three words long.
type UnemploymentRowParser struct{}

func (UnemploymentRowParser) ParseRow(text string) (Record, error) {
	tokens := strings.Fields(text)
	var state, rate string
	switch {
	case len(tokens) >= 4:
		state = strings.Join(tokens[:3], " ")
		rate = tokens[3]
	case len(tokens) == 3:
		state = strings.Join(tokens[:2], " ")
		rate = tokens[2]
	case len(tokens) == 2:
		state = tokens[0]
		rate = tokens[1]
	default:
		return nil, fmt.Errorf("%w: unemployment row %q", ErrParse, text)
	}
	return Record{"state": state, "rate": rate}, nil
}
