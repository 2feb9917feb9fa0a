package report

import (
	"slices"
)

// Series is one named line or bar, aligned to the years of its view. A nil
// entry marks a missing value.
type Series struct {
	Name   string
	Values []*float64
}

type StateView struct {
	Title  string
	Years  []string
	Series []Series
}

type Views struct {
	Unemployment StateView
	Revenue      StateView
	Expenditure  StateView
	// single series holding the robbery counts of the focus state
	FocusCrime StateView
	Combined   Combined
}

type point struct {
	year  string
	state string
	value float64
}

// byState groups points into one series per state (sorted by name)
// aligned to the sorted union of years.
func byState(title string, points []point) StateView {
	var years, states []string
	values := map[string]map[string]float64{}
	for _, p := range points {
		if !slices.Contains(years, p.year) {
			years = append(years, p.year)
		}
		if _, ok := values[p.state]; !ok {
			states = append(states, p.state)
			values[p.state] = map[string]float64{}
		}
		values[p.state][p.year] = p.value
	}
	slices.Sort(years)
	slices.Sort(states)

	view := StateView{Title: title, Years: years}
	for _, state := range states {
		series := Series{Name: state, Values: make([]*float64, len(years))}
		for i, y := range years {
			if v, ok := values[state][y]; ok {
				series.Values[i] = &v
			}
		}
		view.Series = append(view.Series, series)
	}
	return view
}

func measurePoints(rows []MeasureRow, column string) []point {
	out := make([]point, 0, len(rows))
	for _, row := range rows {
		v, ok := row.Measures[column]
		if !ok {
			continue
		}
		out = append(out, point{year: row.Year, state: row.State, value: v})
	}
	return out
}

// BuildViews shapes the query results into the report charts.
func BuildViews(
	unemployment []UnemploymentRow,
	education []MeasureRow,
	crime []MeasureRow,
	focusState string,
	total TotalCrime,
) (Views, error) {
	unempPoints := make([]point, len(unemployment))
	for i, row := range unemployment {
		unempPoints[i] = point{year: row.Year, state: row.State, value: row.AvgRate}
	}

	var focus []MeasureRow
	for _, row := range crime {
		if row.State == focusState {
			focus = append(focus, row)
		}
	}

	combined, err := BuildCombined(unemployment, education, crime, total)
	if err != nil {
		return Views{}, err
	}

	return Views{
		Unemployment: byState("Average unemployment rate by state", unempPoints),
		Revenue:      byState("Total education revenue by state", measurePoints(education, "total_revenue")),
		Expenditure:  byState("Total education expenditure by state", measurePoints(education, "total_expenditure")),
		FocusCrime:   byState("Robbery in "+focusState, measurePoints(focus, "robbery")),
		Combined:     combined,
	}, nil
}
