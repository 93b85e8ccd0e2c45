package equipment

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/c360studio/semequip/errors"
	"github.com/c360studio/semequip/mapping"
	"github.com/c360studio/semequip/rdfgraph"
	"github.com/c360studio/semequip/vocabulary/eqhub"
)

func TestParseRecord(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "pump-12345.json"))
	require.NoError(t, err)

	rec, err := ParseRecord(data)
	require.NoError(t, err)

	assert.Equal(t, "12345", rec.ID)
	assert.Equal(t, "X1", rec.ClassID)
	assert.Equal(t, []PropertyValue{
		{PropertyID: "P1", Value: "42"},
		{PropertyID: "P9", Value: "red"},
		{PropertyID: "P2", Value: ""},
		{PropertyID: "", Value: "orphan"},
	}, rec.Properties)
}

func TestParseRecordProductID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		want     string
		wantKind errs.Kind
	}{
		{"integer", `7`, "7", 0},
		{"integer string", `"0042"`, "42", 0},
		{"missing", ``, "", errs.KindMissingField},
		{"null", `null`, "", errs.KindMissingField},
		{"blank string", `"  "`, "", errs.KindMissingField},
		{"fraction", `1.5`, "", errs.KindParse},
		{"word", `"pump"`, "", errs.KindParse},
		{"object", `{}`, "", errs.KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := `"requirementsClass": {"requirementsClassId": "X1"}`
			if tt.id != "" {
				inner = `"eqhubProductId": ` + tt.id + `, ` + inner
			}
			doc := `{"data": {"data": {` + inner + `}, "properties": []}}`

			rec, err := ParseRecord([]byte(doc))
			if tt.wantKind != 0 {
				require.Error(t, err)
				assert.Nil(t, rec)
				assert.Equal(t, tt.wantKind, errs.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.ID)
		})
	}
}

func TestParseRecordLenientSections(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"data": {"data": {"eqhubProductId": 1}}}`))
	require.NoError(t, err)
	assert.Empty(t, rec.ClassID)
	assert.Empty(t, rec.Properties)

	rec, err = ParseRecord([]byte(`{"data": {"data": {"eqhubProductId": 1}, "properties": null}}`))
	require.NoError(t, err)
	assert.Empty(t, rec.Properties)
}

func TestParseRecordInvalidJSON(t *testing.T) {
	_, err := ParseRecord([]byte(`{"data": `))
	assert.ErrorIs(t, err, errs.ErrParse)

	_, err = ParseRecord([]byte(`{"data": {"data": {"eqhubProductId": 1}, "properties": [{"data": {"value": [1, 2]}}]}}`))
	assert.ErrorIs(t, err, errs.ErrParse)
	assert.ErrorContains(t, err, "properties[0]")
}

func TestFirstValue(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"first match in document order", `{"b": 1, "zValue": "z", "aValue": "a"}`, "z", false},
		{"case insensitive", `{"NUMERICVALUE": 3.25}`, "3.25", false},
		{"suffix only", `{"valueType": "x", "value": "y"}`, "y", false},
		{"boolean", `{"booleanValue": true}`, "true", false},
		{"null member", `{"value": null, "otherValue": "x"}`, "", false},
		{"no match", `{"unit": "bar"}`, "", false},
		{"empty object", `{}`, "", false},
		{"absent", ``, "", false},
		{"null data", `null`, "", false},
		{"string kept verbatim", `{"value": " 42 °C"}`, " 42 °C", false},
		{"repeated member keeps first", `{"value": "first", "value": "second"}`, "first", false},
		{"repeated member before later match", `{"value": "a", "otherValue": "b", "value": "c"}`, "a", false},
		{"object value", `{"value": {"x": 1}}`, "", true},
		{"malformed object", `{"value": 1,}`, "", true},
		{"non object data", `"42"`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstValue(json.RawMessage(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const propertyTable = `
@prefix id: <https://draft.posccaesar.org/eqhub/v0.0.0.41/Id/> .
@prefix skos: <http://www.w3.org/2004/02/skos/core#> .
id:P1 skos:exactMatch <https://example.org/ex#hasTemp> .
id:P2 skos:exactMatch <https://example.org/ex#hasPressure> .
`

func testTable(t *testing.T) *mapping.Table {
	t.Helper()
	table, err := mapping.Parse(strings.NewReader(propertyTable), rdfgraph.Turtle, eqhub.IDPrefix)
	require.NoError(t, err)
	return table
}

func TestProject(t *testing.T) {
	props := []PropertyValue{
		{PropertyID: "P1", Value: "42"},
		{PropertyID: "P9", Value: "red"},
		{PropertyID: "P2", Value: ""},
		{PropertyID: "", Value: "orphan"},
	}

	got := Project(props, testTable(t))
	assert.Equal(t, []Assertion{
		{PropertyID: "P1", Predicate: quad.IRI("https://example.org/ex#hasTemp"), Object: quad.String("42")},
		{PropertyID: "P2", Predicate: quad.IRI("https://example.org/ex#hasPressure"), Object: quad.String("")},
	}, got)
}

func TestProjectUnmappedIsolation(t *testing.T) {
	table := testTable(t)
	base := []PropertyValue{{PropertyID: "P1", Value: "42"}}
	withNoise := []PropertyValue{
		{PropertyID: "P9", Value: "x"},
		{PropertyID: "P1", Value: "42"},
		{PropertyID: "p1", Value: "lowercase ids do not match"},
	}

	assert.Equal(t, Project(base, table), Project(withNoise, table))
}

func TestProjectEmpty(t *testing.T) {
	assert.Empty(t, Project(nil, testTable(t)))
	assert.Empty(t, Project([]PropertyValue{{PropertyID: "P1", Value: "1"}}, nil))
}
