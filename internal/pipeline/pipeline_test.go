package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/popimport/internal/feed"
	"github.com/ppiankov/popimport/internal/importer"
	"github.com/ppiankov/popimport/internal/model"
	"github.com/ppiankov/popimport/internal/sdmx"
)

type fakeFetcher struct {
	docs        map[string]string
	cached      bool
	fetched     []string
	invalidated []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*feed.Document, error) {
	f.fetched = append(f.fetched, rawURL)
	body, ok := f.docs[rawURL]
	if !ok {
		return nil, fmt.Errorf("unexpected status: 404 Not Found")
	}
	return &feed.Document{Source: rawURL, Body: []byte(body), StatusCode: 200, FromCache: f.cached}, nil
}

func (f *fakeFetcher) Invalidate(rawURL string) error {
	f.invalidated = append(f.invalidated, rawURL)
	return nil
}

type fakeKB struct {
	refs       map[string][]model.EntityRef
	statements map[string][]model.Statement
	queries    []model.EntityQuery
	submitted  map[string]model.StatementDraft
}

func newFakeKB() *fakeKB {
	return &fakeKB{
		refs:       make(map[string][]model.EntityRef),
		statements: make(map[string][]model.Statement),
		submitted:  make(map[string]model.StatementDraft),
	}
}

func (f *fakeKB) ResolveEntities(_ context.Context, q model.EntityQuery) ([]model.EntityRef, error) {
	f.queries = append(f.queries, q)
	return f.refs[q.Value], nil
}

func (f *fakeKB) Statements(_ context.Context, ref model.EntityRef, _ string) ([]model.Statement, error) {
	return f.statements[ref.ID], nil
}

func (f *fakeKB) SubmitStatement(_ context.Context, ref model.EntityRef, draft model.StatementDraft) (model.SubmitResult, error) {
	f.submitted[ref.ID] = draft
	return model.SubmitResult{StatementID: ref.ID + "$1"}, nil
}

type noWait struct{ calls int }

func (g *noWait) Wait(context.Context, string) error {
	g.calls++
	return nil
}

func claimFor(year int) []model.Statement {
	return []model.Statement{{
		ID:       "existing",
		Property: model.PropPopulation,
		Amount:   "+1",
		Times:    []model.WbTime{model.NewDate(year, 1, 1)},
	}}
}

const ltStructure = `<?xml version="1.0" encoding="UTF-8"?>
<mes:Structure xmlns:mes="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message"
  xmlns:str="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure"
  xmlns:com="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common">
  <mes:Structures><str:Codelists>
    <str:Codelist id="miestasM3010210">
      <str:Code id="1000"><com:Name xml:lang="lt">Vilnius</com:Name></str:Code>
      <str:Code id="2000"><com:Name xml:lang="lt">Kaunas</com:Name></str:Code>
      <str:Code id="3000"><com:Name xml:lang="lt">Alytus</com:Name></str:Code>
    </str:Codelist>
  </str:Codelists></mes:Structures>
</mes:Structure>`

func ltObservations(period string) string {
	obs := func(code, value string) string {
		return `<generic:Obs><generic:ObsKey>
  <generic:Value id="miestasM3010210" value="` + code + `"/>
  <generic:Value id="LAIKOTARPIS" value="` + period + `"/>
</generic:ObsKey><generic:ObsValue value="` + value + `"/></generic:Obs>`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<message:GenericData xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message"
  xmlns:generic="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic">
  <message:DataSet>` + obs("1000", "542664") + obs("2000", "292691") + `</message:DataSet>
</message:GenericData>`
}

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.LT.StructureURL = "https://stat.example/structure"
	cfg.LT.DataURL = "https://stat.example/data/"
	cfg.Import.AccessDate = "2024-03-09"
	return cfg
}

func ltFixture(t *testing.T, cfg *model.Config, period string) (*fakeFetcher, string) {
	t.Helper()
	dataURL, err := sdmx.ObservationsURL(cfg.LT.DataURL, cfg.Import.Year)
	require.NoError(t, err)
	return &fakeFetcher{docs: map[string]string{
		cfg.LT.StructureURL: ltStructure,
		dataURL:             ltObservations(period),
	}}, dataURL
}

func TestRunLT(t *testing.T) {
	cfg := testConfig(t)
	fetcher, dataURL := ltFixture(t, cfg, "2017")

	kb := newFakeKB()
	kb.refs["Vilnius"] = []model.EntityRef{{ID: "Q216", Exists: true}}
	kb.refs["Kaunas"] = []model.EntityRef{{ID: "Q4115712", Exists: true}}
	kb.statements["Q4115712"] = claimFor(2017)
	gate := &noWait{}

	stats, err := NewPipeline(cfg, fetcher, kb, gate, nil).RunLT(context.Background())
	require.NoError(t, err)

	assert.Equal(t, importer.Stats{Places: 2, Unmatched: 1, Written: 1, AlreadyPresent: 1}, stats)
	assert.Equal(t, []string{cfg.LT.StructureURL, dataURL}, fetcher.fetched)
	assert.Equal(t, 1, gate.calls)

	require.Len(t, kb.queries, 2)
	assert.Equal(t, model.EntityQuery{
		Kind:    model.QueryByArticleTitle,
		Value:   "Vilnius",
		Wiki:    "https://lt.wikipedia.org/",
		Country: "Q37",
		Class:   "Q486972",
	}, kb.queries[0])

	draft, ok := kb.submitted["Q216"]
	require.True(t, ok)
	assert.Equal(t, model.QuantityValue{Amount: 542664}, draft.Value)
	assert.Equal(t, []model.Snak{
		{Property: model.PropStatedIn, Value: model.ItemValue{ID: "Q12663462"}},
		{Property: model.PropReferenceURL, Value: model.URLValue{URL: dataURL}},
		{Property: model.PropRetrieved, Value: model.TimeValue{Time: model.NewDate(2024, 3, 9)}},
	}, draft.References)
}

func TestRunLT_PeriodMismatchIsFatal(t *testing.T) {
	cfg := testConfig(t)
	fetcher, _ := ltFixture(t, cfg, "2016")
	kb := newFakeKB()
	kb.refs["Vilnius"] = []model.EntityRef{{ID: "Q216", Exists: true}}

	_, err := NewPipeline(cfg, fetcher, kb, &noWait{}, nil).RunLT(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdmx.ErrPeriodMismatch))
	assert.Empty(t, kb.queries)
	assert.Empty(t, kb.submitted)
}

func TestRunLT_UnparseableCachedDocumentIsDropped(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{cached: true, docs: map[string]string{
		cfg.LT.StructureURL: "<mes:Structure",
	}}

	_, err := NewPipeline(cfg, fetcher, newFakeKB(), &noWait{}, nil).RunLT(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{cfg.LT.StructureURL}, fetcher.invalidated)
}

func TestRunLT_PeriodMismatchFreshDocumentKept(t *testing.T) {
	cfg := testConfig(t)
	fetcher, _ := ltFixture(t, cfg, "2016")

	_, err := NewPipeline(cfg, fetcher, newFakeKB(), &noWait{}, nil).RunLT(context.Background())
	require.Error(t, err)
	assert.Empty(t, fetcher.invalidated)
}

func TestRunLT_FetchFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{docs: map[string]string{}}

	_, err := NewPipeline(cfg, fetcher, newFakeKB(), &noWait{}, nil).RunLT(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch structure")
}

func TestRunLT_DryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Import.DryRun = true
	fetcher, _ := ltFixture(t, cfg, "2017")
	kb := newFakeKB()
	kb.refs["Vilnius"] = []model.EntityRef{{ID: "Q216", Exists: true}}
	gate := &noWait{}

	stats, err := NewPipeline(cfg, fetcher, kb, gate, nil).RunLT(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DryRun)
	assert.Equal(t, 1, stats.NoMatch)
	assert.Empty(t, kb.submitted)
	assert.Zero(t, gate.calls)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunLV(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.LV.ClassificationFile = writeFile(t, dir, "klasifikators.txt", strings.Join([]string{
		"Kods\tLīmenis\tAugstāks\tNosaukums",
		"0320201\t3\t0320200\t\"Aizkraukles pilsēta\"",
		"0010000\t1\t\t\"Rīga\"",
	}, "\n")+"\n")
	cfg.LV.PopulationFile = writeFile(t, dir, "2017.csv", strings.Join([]string{
		"\"Teritorija\";\"Iedzīvotāji\"",
		"\"Aizkraukles pilsēta.\";8851",
		"Rīga;632614",
		"Latvija;1950116",
		"Nezināms;n/a",
	}, "\n")+"\n")

	kb := newFakeKB()
	kb.refs["0320201"] = []model.EntityRef{{ID: "Q1", Exists: true}}
	kb.statements["Q1"] = claimFor(2017)
	kb.refs["0010000"] = []model.EntityRef{{ID: "Q1930", Exists: true}}

	stats, err := NewPipeline(cfg, &fakeFetcher{}, kb, &noWait{}, nil).RunLV(context.Background())
	require.NoError(t, err)

	assert.Equal(t, importer.Stats{Places: 2, Unmatched: 1, Written: 1, AlreadyPresent: 1}, stats)

	require.Len(t, kb.queries, 2)
	assert.Equal(t, model.EntityQuery{Kind: model.QueryByIdentifier, Property: "P1115", Value: "0320201"}, kb.queries[0])

	require.Contains(t, kb.submitted, "Q1930")
	draft := kb.submitted["Q1930"]
	assert.Equal(t, model.QuantityValue{Amount: 632614}, draft.Value)
	assert.Equal(t, model.ItemValue{ID: "Q39420022"}, draft.References[0].Value)
	assert.Equal(t, model.URLValue{URL: cfg.LV.SourceURL}, draft.References[1].Value)
}

func TestRunLV_MissingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.LV.ClassificationFile = filepath.Join(t.TempDir(), "absent.txt")

	_, err := NewPipeline(cfg, &fakeFetcher{}, newFakeKB(), &noWait{}, nil).RunLV(context.Background())
	assert.Error(t, err)
}

func TestRunLV_UnknownEncoding(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.LV.ClassificationFile = writeFile(t, dir, "k.txt", "")
	cfg.LV.Encoding = "no-such-charset"

	_, err := NewPipeline(cfg, &fakeFetcher{}, newFakeKB(), &noWait{}, nil).RunLV(context.Background())
	assert.Error(t, err)
}

func TestAccessDate(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg, &fakeFetcher{}, newFakeKB(), &noWait{}, nil)

	got, err := p.accessDate()
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2024, 3, 9), got)

	cfg.Import.AccessDate = ""
	p.now = func() time.Time { return time.Date(2018, 5, 31, 23, 30, 0, 0, time.UTC) }
	got, err = p.accessDate()
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2018, 5, 31), got)

	cfg.Import.AccessDate = "09.03.2024"
	_, err = p.accessDate()
	assert.Error(t, err)
}
