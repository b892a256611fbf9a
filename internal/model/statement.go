package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// Wikidata properties written or read by the importers
const (
	PropPopulation          = "P1082"
	PropPointInTime         = "P585"
	PropDeterminationMethod = "P459"
	PropStatedIn            = "P248"
	PropReferenceURL        = "P854"
	PropRetrieved           = "P813"
	PropATVK                = "P1115"
)

// Precision is a Wikibase time precision
type Precision int

const (
	PrecisionYear  Precision = 9
	PrecisionMonth Precision = 10
	PrecisionDay   Precision = 11
)

// WbTime is a Wikibase time value in the proleptic Gregorian calendar
type WbTime struct {
	Year      int64
	Month     int
	Day       int
	Hour      int
	Minute    int
	Second    int
	Precision Precision
}

// NewDate returns a day-precision time at midnight
func NewDate(year, month, day int) WbTime {
	return WbTime{Year: int64(year), Month: month, Day: day, Precision: PrecisionDay}
}

// Timestr serializes the time with a signed, zero padded 11 digit year.
// Two times denote the same instant exactly when their Timestr values match.
func (t WbTime) Timestr() string {
	return fmt.Sprintf("%+012d-%02d-%02dT%02d:%02d:%02dZ",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// APIString serializes the time the way the Wikibase API expects it
func (t WbTime) APIString() string {
	return fmt.Sprintf("%+05d-%02d-%02dT%02d:%02d:%02dZ",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

var timestrPattern = regexp.MustCompile(`^([+-]?\d+)-(\d{1,2})-(\d{1,2})T(\d{1,2}):(\d{1,2}):(\d{1,2})Z$`)

// ParseTimestr parses a Wikibase time string such as "+2017-01-01T00:00:00Z"
func ParseTimestr(s string, precision Precision) (WbTime, error) {
	m := timestrPattern.FindStringSubmatch(s)
	if m == nil {
		return WbTime{}, fmt.Errorf("invalid time string %q", s)
	}

	year, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return WbTime{}, fmt.Errorf("invalid year in %q: %w", s, err)
	}

	parts := make([]int, 5)
	for i := range parts {
		// Groups are \d{1,2}, Atoi cannot fail
		parts[i], _ = strconv.Atoi(m[i+2])
	}

	return WbTime{
		Year:      year,
		Month:     parts[0],
		Day:       parts[1],
		Hour:      parts[2],
		Minute:    parts[3],
		Second:    parts[4],
		Precision: precision,
	}, nil
}

// Statement is an existing statement read from the knowledge base.
// Only the parts needed for the presence check are kept.
type Statement struct {
	ID       string
	Property string
	Amount   string   // Quantity amount as serialized by the API, e.g. "+542664"
	Times    []WbTime // Values of the point-in-time qualifier
}

// Value is the target of a snak in a StatementDraft
type Value interface {
	isValue()
}

// ItemValue points at another entity
type ItemValue struct {
	ID string
}

// TimeValue is a dated value
type TimeValue struct {
	Time WbTime
}

// URLValue is an external URL
type URLValue struct {
	URL string
}

// QuantityValue is a unitless integer amount
type QuantityValue struct {
	Amount int64
}

func (ItemValue) isValue()     {}
func (TimeValue) isValue()     {}
func (URLValue) isValue()      {}
func (QuantityValue) isValue() {}

// Snak is a (property, value) pair used for qualifiers and references
type Snak struct {
	Property string
	Value    Value
}

// StatementDraft bundles everything needed to create one statement
type StatementDraft struct {
	Property   string
	Value      QuantityValue
	Qualifiers []Snak
	References []Snak // Snaks of a single reference block, in order
}
