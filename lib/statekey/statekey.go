// Package statekey derives the composite state_year key that joins every
// dataset of the pipeline.
package statekey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"govdata-etl/lib/textutil"

	"github.com/antzucaro/matchr"
)

var (
	ErrUnknownCode  = errors.New("unknown state code")
	ErrUnknownState = errors.New("unknown state")
	ErrInvalidYear  = errors.New("invalid year")
)

// codeNames is indexed by numeric state code minus one.
var codeNames = [...]string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "District of Columbia", "Florida", "Georgia",
	"Hawaii", "Idaho", "Illinois", "Indiana", "Iowa", "Kansas",
	"Kentucky", "Louisiana", "Maine", "Maryland", "Massachusetts",
	"Michigan", "Minnesota", "Mississippi", "Missouri", "Montana",
	"Nebraska", "Nevada", "New Hampshire", "New Jersey", "New Mexico",
	"New York", "North Carolina", "North Dakota", "Ohio", "Oklahoma",
	"Oregon", "Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia",
	"Washington", "West Virginia", "Wisconsin", "Wyoming",
}

var abbreviations = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

// CodeCount is the size of the numeric code table.
const CodeCount = len(codeNames)

// NameForCode returns the canonical name of a numeric state code.
func NameForCode(code int) (string, error) {
	if code < 1 || code > CodeCount {
		return "", fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	return codeNames[code-1], nil
}

// Names returns the canonical names in code order.
func Names() []string {
	out := make([]string, CodeCount)
	copy(out, codeNames[:])
	return out
}

type Key struct {
	State string
	Year  string
}

// ID is the composite primary key of the state_year dimension.
func (k Key) ID() string {
	return k.State + k.Year
}

func (k Key) String() string {
	return k.ID()
}

type Normalizer struct {
	byName map[string]string
}

// NewNormalizer builds a normalizer over the fixed state table. extraUnits are
// additional reporting units (territories, national totals) accepted verbatim.
func NewNormalizer(extraUnits ...string) *Normalizer {
	byName := make(map[string]string, CodeCount+len(extraUnits))
	for _, name := range codeNames {
		byName[textutil.NormalizeName(name)] = name
	}
	for _, unit := range extraUnits {
		unit = textutil.CollapseSpace(unit)
		if unit == "" {
			continue
		}
		byName[textutil.NormalizeName(unit)] = unit
	}
	return &Normalizer{byName: byName}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Canonical maps a full name, USPS abbreviation or numeric code to the
// canonical full state name.
func (n *Normalizer) Canonical(id string) (string, error) {
	clean := textutil.CollapseSpace(id)
	if clean == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrUnknownState)
	}

	if isDigits(clean) {
		code, err := strconv.Atoi(clean)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnknownCode, clean)
		}
		return NameForCode(code)
	}

	if len(clean) == 2 {
		if name, ok := abbreviations[strings.ToUpper(clean)]; ok {
			return name, nil
		}
	}

	if name, ok := n.byName[textutil.NormalizeName(clean)]; ok {
		return name, nil
	}

	if suggestion := n.suggest(clean); suggestion != "" {
		return "", fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownState, clean, suggestion)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, clean)
}

const suggestionThreshold = 0.9

func (n *Normalizer) suggest(name string) string {
	var best string
	var bestScore float64
	for _, candidate := range n.byName {
		score := matchr.JaroWinkler(name, candidate, false)
		if score > bestScore || (score == bestScore && candidate < best) {
			best = candidate
			bestScore = score
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}

// Key derives the composite key from a state identifier and a four digit year.
func (n *Normalizer) Key(state, year string) (Key, error) {
	name, err := n.Canonical(state)
	if err != nil {
		return Key{}, err
	}
	y := strings.TrimSpace(year)
	if len(y) != 4 || !isDigits(y) {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	return Key{State: name, Year: y}, nil
}
