package wikibase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/knakk/sparql"
	"go.uber.org/zap"

	"github.com/ppiankov/popimport/internal/model"
)

const queries = `
# Exact-match item lookups. Every query binds ?item and returns at most one row.

# tag: by-identifier
SELECT ?item WHERE {
  ?item wdt:{{.Property}} "{{.Value}}" .
}
LIMIT 1

# tag: by-article-title
PREFIX schema: <http://schema.org/>
SELECT DISTINCT ?item WHERE {
  {{if .Country}}?item wdt:P17 wd:{{.Country}} .{{end}}
  {{if .Class}}?item wdt:P31 ?sub1 . ?sub1 (wdt:P279)* wd:{{.Class}} .{{end}}
  ?article schema:about ?item .
  ?article schema:isPartOf <{{.Wiki}}> .
  ?article schema:name ?title .
  FILTER(STR(?title) = "{{.Value}}")
}
LIMIT 1
`

var queryBank = sparql.LoadBank(strings.NewReader(queries))

var (
	propertyID = regexp.MustCompile(`^P[1-9][0-9]*$`)
	itemID     = regexp.MustCompile(`^Q[1-9][0-9]*$`)
)

// escapeLiteral makes s safe inside a double quoted SPARQL string
func escapeLiteral(s string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
	).Replace(s)
}

// BuildQuery renders the SPARQL text for q
func BuildQuery(q model.EntityQuery) (string, error) {
	switch q.Kind {
	case model.QueryByIdentifier:
		if !propertyID.MatchString(q.Property) {
			return "", fmt.Errorf("invalid property id %q", q.Property)
		}
		return queryBank.Prepare("by-identifier", struct{ Property, Value string }{
			q.Property, escapeLiteral(q.Value),
		})

	case model.QueryByArticleTitle:
		for _, id := range []string{q.Country, q.Class} {
			if id != "" && !itemID.MatchString(id) {
				return "", fmt.Errorf("invalid item id %q", id)
			}
		}
		wiki, err := url.Parse(q.Wiki)
		if err != nil || wiki.Scheme == "" || wiki.Host == "" || strings.ContainsAny(q.Wiki, "<> ") {
			return "", fmt.Errorf("invalid wiki %q", q.Wiki)
		}
		return queryBank.Prepare("by-article-title", struct{ Country, Class, Wiki, Value string }{
			q.Country, q.Class, q.Wiki, escapeLiteral(q.Value),
		})

	default:
		return "", fmt.Errorf("unsupported query kind %s", q.Kind)
	}
}

// ResolveEntities runs q against the query service and reports, for every
// item found, whether it exists in the knowledge base. A query service row
// can outlive a deleted or merged item, hence the second lookup.
func (c *Client) ResolveEntities(ctx context.Context, q model.EntityQuery) ([]model.EntityRef, error) {
	text, err := BuildQuery(q)
	if err != nil {
		return nil, err
	}

	ids, err := c.selectItems(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	entities, err := c.getEntities(ctx, ids, "info")
	if err != nil {
		return nil, err
	}

	refs := make([]model.EntityRef, 0, len(ids))
	for _, id := range ids {
		ent, found := entities[id]
		refs = append(refs, model.EntityRef{
			ID:     id,
			Title:  ent.Title,
			Exists: found && ent.Missing == nil,
		})
	}
	return refs, nil
}

// selectItems posts a SELECT query and returns the Q ids bound to ?item
func (c *Client) selectItems(ctx context.Context, query string) ([]string, error) {
	form := url.Values{"query": {query}}
	body := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SPARQLEndpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sparql: unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	results, err := sparql.ParseJSON(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sparql: decode results: %w", err)
	}

	var ids []string
	seen := make(map[string]bool)
	for _, solution := range results.Solutions() {
		term, ok := solution["item"]
		if !ok {
			continue
		}
		id := entityIDFromIRI(term.String())
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	c.logger.Debug("sparql select", zap.Int("items", len(ids)))
	return ids, nil
}

// entityIDFromIRI turns http://www.wikidata.org/entity/Q216 into Q216
func entityIDFromIRI(iri string) string {
	id := iri[strings.LastIndex(iri, "/")+1:]
	if !itemID.MatchString(id) {
		return ""
	}
	return id
}
