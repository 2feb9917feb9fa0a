package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultTotalCrime sums the nine crime count columns.
var DefaultTotalCrime = strings.Join(CrimeColumns[1:], " + ")

// TotalCrime derives one number from a crime row.
type TotalCrime struct {
	program *vm.Program
}

// NewTotalCrime compiles an expression over the crime columns, an empty
// expression selects DefaultTotalCrime. NULL columns evaluate as 0.
func NewTotalCrime(expression string) (TotalCrime, error) {
	if strings.TrimSpace(expression) == "" {
		expression = DefaultTotalCrime
	}
	program, err := expr.Compile(expression, expr.Env(zeroEnv()), expr.AsFloat64())
	if err != nil {
		return TotalCrime{}, fmt.Errorf("compile total crime expression: %w", err)
	}
	return TotalCrime{program: program}, nil
}

func zeroEnv() map[string]float64 {
	env := make(map[string]float64, len(CrimeColumns))
	for _, c := range CrimeColumns {
		env[c] = 0
	}
	return env
}

func (t TotalCrime) Eval(row MeasureRow) (float64, error) {
	env := zeroEnv()
	for k, v := range row.Measures {
		env[k] = v
	}
	out, err := expr.Run(t.program, env)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", row.State, row.Year, err)
	}
	return out.(float64), nil
}

// Combined is the USA yearly overlay, every series is aligned to Years.
type Combined struct {
	Years        []string
	Unemployment []float64
	Expenditure  []float64
	Crime        []float64
}

// BuildCombined sums each dataset over states per year: the per-state
// average unemployment rate, total_expenditure and total crime. A year
// missing from one dataset contributes 0 to that series.
func BuildCombined(unemployment []UnemploymentRow, education []MeasureRow, crime []MeasureRow, total TotalCrime) (Combined, error) {
	unemp := map[string]float64{}
	expenditure := map[string]float64{}
	crimes := map[string]float64{}
	var years []string
	seen := map[string]bool{}
	addYear := func(y string) {
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}

	for _, row := range unemployment {
		addYear(row.Year)
		unemp[row.Year] += row.AvgRate
	}
	for _, row := range education {
		addYear(row.Year)
		expenditure[row.Year] += row.Measures["total_expenditure"]
	}
	for _, row := range crime {
		addYear(row.Year)
		value, err := total.Eval(row)
		if err != nil {
			return Combined{}, err
		}
		crimes[row.Year] += value
	}
	slices.Sort(years)

	out := Combined{
		Years:        years,
		Unemployment: make([]float64, len(years)),
		Expenditure:  make([]float64, len(years)),
		Crime:        make([]float64, len(years)),
	}
	for i, y := range years {
		out.Unemployment[i] = unemp[y]
		out.Expenditure[i] = expenditure[y]
		out.Crime[i] = crimes[y]
	}
	return out, nil
}
