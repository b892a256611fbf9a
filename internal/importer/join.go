package importer

import (
	"sort"

	"github.com/ppiankov/popimport/internal/model"
)

// Match is a parsed place paired with its classification entry
type Match struct {
	Record model.PlaceRecord
	Entry  model.ReferenceEntry
}

// JoinCodes pairs code list names with observed counts. Places appear in
// code order; codes without an observation are returned as unmatched.
func JoinCodes(names map[string]string, counts map[string]int, year int) ([]model.PlaceRecord, []string) {
	codes := make([]string, 0, len(names))
	for code := range names {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var records []model.PlaceRecord
	var unmatched []string
	for _, code := range codes {
		count, ok := counts[code]
		if !ok {
			unmatched = append(unmatched, code)
			continue
		}
		records = append(records, model.PlaceRecord{
			LocalID:         code,
			DisplayName:     names[code],
			PopulationCount: count,
			PeriodYear:      year,
		})
	}
	return records, unmatched
}

// ReferenceLookup finds the classification entry for a place name
type ReferenceLookup interface {
	Lookup(name string) (model.ReferenceEntry, bool)
}

// JoinReference looks every record up in ref by its name, keeping feed
// order. Records without an entry are returned as unmatched.
func JoinReference(records []model.PlaceRecord, ref ReferenceLookup) ([]Match, []model.PlaceRecord) {
	var matches []Match
	var unmatched []model.PlaceRecord
	for _, rec := range records {
		entry, ok := ref.Lookup(rec.LocalID)
		if !ok {
			unmatched = append(unmatched, rec)
			continue
		}
		matches = append(matches, Match{Record: rec, Entry: entry})
	}
	return matches, unmatched
}

// TargetsByTitle resolves each record through the article named after it
func TargetsByTitle(records []model.PlaceRecord, base model.EntityQuery) []Target {
	targets := make([]Target, 0, len(records))
	for _, rec := range records {
		q := base
		q.Kind = model.QueryByArticleTitle
		q.Value = rec.DisplayName
		targets = append(targets, Target{Record: rec, Query: q})
	}
	return targets
}

// TargetsByIdentifier resolves each match through its classification id
func TargetsByIdentifier(matches []Match, property string) []Target {
	targets := make([]Target, 0, len(matches))
	for _, m := range matches {
		targets = append(targets, Target{
			Record: m.Record,
			Query: model.EntityQuery{
				Kind:     model.QueryByIdentifier,
				Property: property,
				Value:    m.Entry.ClassificationID,
			},
		})
	}
	return targets
}
