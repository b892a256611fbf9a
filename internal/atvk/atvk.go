// Package atvk parses the Latvian territorial classification (ATVK) table
// and the CSB population export that is joined against it.
package atvk

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/popimport/internal/model"
)

// Reference maps a normalized place name to its classification entry
type Reference map[string]model.ReferenceEntry

// Lookup finds the classification entry for a name, normalizing it first
func (r Reference) Lookup(name string) (model.ReferenceEntry, bool) {
	entry, ok := r[NormalizeName(name)]
	return entry, ok
}

// NormalizeName strips surrounding quotes and whitespace and drops every
// period, so "\"Aizkraukles pilsēta.\"" and "Aizkraukles pilsēta" agree.
// The result is NFC so composed and decomposed diacritics compare equal.
func NormalizeName(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.TrimFunc(s, func(r rune) bool {
		return r == '"' || unicode.IsSpace(r)
	})
	return norm.NFC.String(s)
}

// Decode wraps r so it yields UTF-8 from the named encoding.
// An empty label or "utf-8" returns r unchanged.
func Decode(r io.Reader, label string) (io.Reader, error) {
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(r), nil
}

// readRows splits every line of r on sep and calls fn with the cells.
// Lines are independent: quotes are not interpreted here, so a stray
// quote can never pull the following lines into one row.
func readRows(r io.Reader, sep string, fn func(cells []string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		fn(strings.Split(line, sep))
	}
	return sc.Err()
}

// ParseClassification reads the tab separated ATVK table. Column 0 holds
// the code and column 3 the quoted display name; shorter rows are ignored.
// A repeated name keeps the last code.
func ParseClassification(r io.Reader) (Reference, error) {
	ref := make(Reference)

	err := readRows(r, "\t", func(cells []string) {
		if len(cells) < 4 {
			return
		}
		id := strings.Trim(cells[0], "\" \t")
		name := NormalizeName(cells[3])
		if id == "" || name == "" {
			return
		}
		ref[name] = model.ReferenceEntry{ClassificationID: id, CanonicalName: name}
	})
	if err != nil {
		return nil, fmt.Errorf("read classification: %w", err)
	}

	return ref, nil
}

// ParsePopulation reads the semicolon separated "name;count" export.
// Rows whose count is not an integer (headers, "n/a", totals with
// footnotes) are skipped. A repeated name keeps its first position and
// its last count.
func ParsePopulation(r io.Reader, year int) ([]model.PlaceRecord, error) {
	var records []model.PlaceRecord
	index := make(map[string]int)

	err := readRows(r, ";", func(cells []string) {
		if len(cells) < 2 {
			return
		}
		name := NormalizeName(cells[0])
		count, err := strconv.Atoi(strings.TrimSpace(cells[1]))
		if err != nil || name == "" {
			return
		}

		rec := model.PlaceRecord{
			LocalID:         name,
			DisplayName:     name,
			PopulationCount: count,
			PeriodYear:      year,
		}
		if i, seen := index[name]; seen {
			records[i] = rec
			return
		}
		index[name] = len(records)
		records = append(records, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("read population: %w", err)
	}

	return records, nil
}
