// Package sdmx reads the two SDMX-ML 2.1 messages published by
// Statistics Lithuania: a structure message carrying code lists and a
// generic data message carrying observations.
package sdmx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	structureNS = "http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure"
	commonNS    = "http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common"
	genericNS   = "http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic"
)

var (
	// ErrNoCodelist means the structure message lacks the requested code list
	ErrNoCodelist = errors.New("code list not found")
	// ErrPeriodMismatch means an observation is not for the requested year
	ErrPeriodMismatch = errors.New("observation period does not match requested year")
)

type localizedName struct {
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Text string `xml:",chardata"`
}

type code struct {
	ID    string          `xml:"id,attr"`
	Names []localizedName `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common Name"`
}

type keyValue struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

type observation struct {
	Key *struct {
		Values []keyValue `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic Value"`
	} `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic ObsKey"`
	Value *struct {
		Value string `xml:"value,attr"`
	} `xml:"http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic ObsValue"`
}

func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// ParseCodelist returns code id -> name in lang for every code of the
// code list codelistID. Codes without an id or without a name in lang
// are left out.
func ParseCodelist(r io.Reader, codelistID, lang string) (map[string]string, error) {
	dec := newDecoder(r)
	names := make(map[string]string)
	found := false
	depth := 0 // depth below the matching Codelist element, 0 when outside

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse structure: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if el.Name.Space == structureNS && el.Name.Local == "Codelist" && attr(el, "id") == codelistID {
					found = true
					depth = 1
				}
				continue
			}

			if depth == 1 && attr(el, "id") != "" {
				var c code
				if err := dec.DecodeElement(&c, &el); err != nil {
					return nil, fmt.Errorf("decode code: %w", err)
				}
				if name, ok := c.name(lang); ok {
					names[c.ID] = name
				}
				continue
			}
			depth++
		case xml.EndElement:
			if depth > 0 {
				depth--
			}
		}
	}

	if !found {
		return nil, fmt.Errorf("%s: %w", codelistID, ErrNoCodelist)
	}
	return names, nil
}

func (c code) name(lang string) (string, bool) {
	for _, n := range c.Names {
		if n.Lang == lang {
			return n.Text, true
		}
	}
	return "", false
}

// ParseObservations returns code -> value for every observation whose key
// carries both dimensionID and periodID. The period must equal year;
// anything else aborts the parse with ErrPeriodMismatch. Values that are
// not integers are skipped. A repeated code keeps its last value.
func ParseObservations(r io.Reader, dimensionID, periodID string, year int) (map[string]int, error) {
	dec := newDecoder(r)
	counts := make(map[string]int)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse data: %w", err)
		}

		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Space != genericNS || el.Name.Local != "Obs" {
			continue
		}

		var obs observation
		if err := dec.DecodeElement(&obs, &el); err != nil {
			return nil, fmt.Errorf("decode observation: %w", err)
		}
		if obs.Key == nil {
			continue
		}

		place, hasPlace := keyLookup(obs.Key.Values, dimensionID)
		period, hasPeriod := keyLookup(obs.Key.Values, periodID)
		if !hasPlace || !hasPeriod {
			continue
		}

		if got, err := strconv.Atoi(strings.TrimSpace(period)); err != nil || got != year {
			return nil, fmt.Errorf("%w: got %q, want %d", ErrPeriodMismatch, period, year)
		}

		if obs.Value == nil {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(obs.Value.Value))
		if err != nil {
			continue
		}
		counts[place] = count
	}

	return counts, nil
}

// ObservationsURL restricts a data URL to a single reference year
func ObservationsURL(base string, year int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse data url: %w", err)
	}
	q := u.Query()
	q.Set("startPeriod", strconv.Itoa(year))
	q.Set("endPeriod", strconv.Itoa(year))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func keyLookup(values []keyValue, id string) (string, bool) {
	for _, v := range values {
		if v.ID == id {
			return v.Value, true
		}
	}
	return "", false
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
