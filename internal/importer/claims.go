package importer

import "github.com/ppiankov/popimport/internal/model"

// ExistingClaimFor returns the first statement with a point-in-time
// qualifier equal to year-month-day, or nil. Only the date is compared;
// a statement with the same date and a different figure still counts.
func ExistingClaimFor(statements []model.Statement, year, month, day int) *model.Statement {
	want := model.NewDate(year, month, day).Timestr()
	for i := range statements {
		for _, t := range statements[i].Times {
			if t.Timestr() == want {
				return &statements[i]
			}
		}
	}
	return nil
}

// Source identifies where a figure was published
type Source struct {
	StatisticsOffice string // Item of the issuing office, used for P248
	URL              string // Feed URL, used for P854
}

// NewDraft builds the population statement for one place: the count,
// dated to January 1st of year, its determination method, and a single
// reference naming the office, the feed and the access date.
func NewDraft(count, year int, method string, src Source, accessed model.WbTime) model.StatementDraft {
	accessed.Precision = model.PrecisionDay

	return model.StatementDraft{
		Property: model.PropPopulation,
		Value:    model.QuantityValue{Amount: int64(count)},
		Qualifiers: []model.Snak{
			{Property: model.PropPointInTime, Value: model.TimeValue{Time: model.NewDate(year, 1, 1)}},
			{Property: model.PropDeterminationMethod, Value: model.ItemValue{ID: method}},
		},
		References: []model.Snak{
			{Property: model.PropStatedIn, Value: model.ItemValue{ID: src.StatisticsOffice}},
			{Property: model.PropReferenceURL, Value: model.URLValue{URL: src.URL}},
			{Property: model.PropRetrieved, Value: model.TimeValue{Time: accessed}},
		},
	}
}
