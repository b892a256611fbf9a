package atvk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/popimport/internal/model"
)

const classification = "0320201\t0320200\t1\t\"Aizkraukles pilsēta\"\t\n" +
	"0320244\t0320200\t2\t\"Aizkraukles pagasts\"\t\n" +
	"short\trow\n" +
	"0010000\t\t1\t\"Rīga\"\t\n" +
	"0010001\t\t1\t\"Rīga\"\t\n"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"Aizkraukles pilsēta."`, "Aizkraukles pilsēta"},
		{`  Rīga  `, "Rīga"},
		{`"Ādažu nov."`, "Ādažu nov"},
		{`a" `, "a"},
		{`". "`, ""},
		{"Ri\u0304ga", "Rīga"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	inputs := []string{
		`"Aizkraukles pilsēta."`, `a" `, ` "x" `, `"."."`, "Rīga", `St. "Petersburg"`, "",
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), "input %q", in)
	}
}

func TestParseClassification(t *testing.T) {
	ref, err := ParseClassification(strings.NewReader(classification))
	require.NoError(t, err)

	assert.Len(t, ref, 3)
	assert.Equal(t, model.ReferenceEntry{ClassificationID: "0320201", CanonicalName: "Aizkraukles pilsēta"}, ref["Aizkraukles pilsēta"])
	// Last write wins on duplicate names
	assert.Equal(t, "0010001", ref["Rīga"].ClassificationID)
}

func TestReference_Lookup(t *testing.T) {
	ref, err := ParseClassification(strings.NewReader(classification))
	require.NoError(t, err)

	entry, ok := ref.Lookup(`"Aizkraukles pilsēta."`)
	require.True(t, ok)
	assert.Equal(t, "0320201", entry.ClassificationID)

	_, ok = ref.Lookup("Vilnius")
	assert.False(t, ok)
}

func TestParsePopulation(t *testing.T) {
	input := "\"Teritorija\";\"Iedzīvotāji\"\n" +
		"\"Aizkraukles pilsēta.\";8851\n" +
		"\"Rīga\";632614\r\n" +
		"\"Nezināms\";n/a\n" +
		"single-cell\n" +
		"\"Aizkraukles pilsēta\";8800\n"

	records, err := ParsePopulation(strings.NewReader(input), 2017)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, model.PlaceRecord{
		LocalID: "Aizkraukles pilsēta", DisplayName: "Aizkraukles pilsēta",
		PopulationCount: 8800, PeriodYear: 2017,
	}, records[0])
	assert.Equal(t, "Rīga", records[1].DisplayName)
	assert.Equal(t, 632614, records[1].PopulationCount)
}

func TestParsePopulation_CountWithWhitespace(t *testing.T) {
	records, err := ParsePopulation(strings.NewReader("\"Ogre\"; 23544 \n"), 2017)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 23544, records[0].PopulationCount)
}

func TestDecode_Windows1257(t *testing.T) {
	r, err := Decode(strings.NewReader("\"R\xeega\";632614\n"), "windows-1257")
	require.NoError(t, err)

	records, err := ParsePopulation(r, 2017)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Rīga", records[0].DisplayName)
}

func TestDecode_UTF8Passthrough(t *testing.T) {
	src := strings.NewReader("x")
	r, err := Decode(src, "UTF-8")
	require.NoError(t, err)
	assert.Same(t, src, r)

	_, err = Decode(src, "klingon")
	assert.Error(t, err)
}

func TestParsePopulation_UnbalancedQuoteStaysOnItsLine(t *testing.T) {
	input := "\"Aizkraukles pilsēta.;8851\n" +
		"\"Rīga\";632614\n" +
		"\"Ogre\";23544\n"

	records, err := ParsePopulation(strings.NewReader(input), 2017)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "Aizkraukles pilsēta", records[0].LocalID)
	assert.Equal(t, 8851, records[0].PopulationCount)
	assert.Equal(t, "Rīga", records[1].LocalID)
	assert.Equal(t, 632614, records[1].PopulationCount)
	assert.Equal(t, "Ogre", records[2].LocalID)
}

func TestParseClassification_UnbalancedQuoteStaysOnItsLine(t *testing.T) {
	input := "0740201\t\t1\t\"Ogre\n" +
		"0740202\t\t1\t\"Ogres novads\"\n" +
		"0010000\t\t1\t\"Rīga\"\n"

	ref, err := ParseClassification(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, ref, 3)
	assert.Equal(t, "0740201", ref["Ogre"].ClassificationID)
	assert.Equal(t, "0740202", ref["Ogres novads"].ClassificationID)
	assert.Equal(t, "0010000", ref["Rīga"].ClassificationID)
}

func TestParseClassification_QuotedCode(t *testing.T) {
	ref, err := ParseClassification(strings.NewReader("\"0320201\"\t\t3\t\"Aizkraukles pilsēta\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "0320201", ref["Aizkraukles pilsēta"].ClassificationID)
}
