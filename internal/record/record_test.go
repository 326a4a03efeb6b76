package record_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
)

const microPayload = `{"microstructures": [
  {"alloy": "AZ31", "variant": "B", "material_form": "extruded profile",
   "grain_morphology": "equi-axed", "recrystallized": true,
   "avg_grain_size_um": 15,
   "evidence": {"snippet": "The AZ31-B profile shows equi-axed grains of 15 μm."}}
]}`

func TestDecodeListWrappedKeepsOrderAndTypes(t *testing.T) {
	s, ok := record.SchemaFor(record.Microstructure)
	require.True(t, ok)

	recs, err := record.DecodeList([]byte(microPayload), s)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, record.Microstructure, r.Kind)
	names := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"alloy", "variant", "material_form", "grain_morphology", "recrystallized", "avg_grain_size_um"}, names)

	v, _ := r.Get("avg_grain_size_um")
	assert.Equal(t, record.Int, v.Type())
	b, isBool := mustGet(t, r, "recrystallized").Bool()
	assert.True(t, isBool)
	assert.True(t, b)
	assert.Equal(t, "AZ31", r.Text("alloy"))
	assert.Contains(t, r.Snippet(), "15 μm")
}

func TestDecodeListBareArray(t *testing.T) {
	s, _ := record.SchemaFor(record.Processing)
	payload := `[{"material_form": "sheet", "condition": "annealed", "thickness_mm": 1.5,
	  "steps": ["cast", "rolled"], "evidence": {"snippet": "1.5 mm sheet annealed"}}]`
	recs, err := record.DecodeList([]byte(payload), s)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	v := mustGet(t, recs[0], "thickness_mm")
	assert.Equal(t, record.Float, v.Type())
	steps := mustGet(t, recs[0], "steps")
	assert.Equal(t, record.List, steps.Type())
	assert.Len(t, steps.Items(), 2)
}

func TestDecodeFlattensNestedObjects(t *testing.T) {
	payload := `{"alloy": "AZ31", "properties": {"TYS_MPa": 180, "UTS_MPa": null},
	  "evidence": {"snippet": "TYS of 180 MPa"}}`
	r, err := record.Decode([]byte(payload), record.Mechanical)
	require.NoError(t, err)
	assert.True(t, mustGet(t, r, "properties.UTS_MPa").IsNull())
	n, ok := mustGet(t, r, "properties.TYS_MPa").Number()
	assert.True(t, ok)
	assert.Equal(t, 180.0, n)
}

func TestDecodeListMissingEvidence(t *testing.T) {
	s, _ := record.SchemaFor(record.Microstructure)
	cases := map[string]string{
		"absent":     `[{"alloy": "AZ31"}, {"alloy": "AZ61"}]`,
		"null":       `[{"alloy": "AZ31", "evidence": null}]`,
		"no snippet": `[{"alloy": "AZ31", "evidence": {"source": "p3"}}]`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := record.DecodeList([]byte(payload), s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, record.ErrMissingEvidence))
			var ie *record.InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, 0, ie.Index)
			assert.Equal(t, "evidence", ie.Field)
		})
	}
}

func TestDecodeListNonNumeric(t *testing.T) {
	s, _ := record.SchemaFor(record.Microstructure)
	payload := `[{"alloy": "AZ31", "evidence": {"snippet": "ok"}},
	  {"alloy": "AZ61", "avg_grain_size_um": "fifteen", "evidence": {"snippet": "x"}}]`
	_, err := record.DecodeList([]byte(payload), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrNonNumeric)
	var ie *record.InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Index)
	assert.Equal(t, "avg_grain_size_um", ie.Field)
}

func TestDecodeListMalformed(t *testing.T) {
	s, _ := record.SchemaFor(record.Composition)
	for _, payload := range []string{"", "42", `{"other": []}`, `[1, 2]`, `{"alloys": {}}`} {
		_, err := record.DecodeList([]byte(payload), s)
		assert.ErrorIs(t, err, record.ErrMalformed, "payload %q", payload)
	}
}

func TestBackfillFillsOnlyNull(t *testing.T) {
	s, _ := record.SchemaFor(record.Microstructure)
	payload := `{"alloy": "AZ31", "avg_grain_size_um": null,
	  "evidence": {"snippet": "an average grain size of 12.5 um after annealing"}}`
	r, err := record.Decode([]byte(payload), record.Microstructure)
	require.NoError(t, err)

	filled := r.Backfill(s)
	assert.Equal(t, []string{"avg_grain_size_um"}, filled)
	n, _ := mustGet(t, r, "avg_grain_size_um").Number()
	assert.Equal(t, 12.5, n)

	// A second pass has nothing left to fill.
	assert.Empty(t, r.Backfill(s))
}

func TestBackfillLeavesValuesAlone(t *testing.T) {
	s, _ := record.SchemaFor(record.Microstructure)
	payload := `{"avg_grain_size_um": 20, "evidence": {"snippet": "grains of 15 μm"}}`
	r, err := record.Decode([]byte(payload), record.Microstructure)
	require.NoError(t, err)
	assert.Empty(t, r.Backfill(s))
	n, _ := mustGet(t, r, "avg_grain_size_um").Number()
	assert.Equal(t, 20.0, n)
}

func TestBackfillRespectsDigitBoundary(t *testing.T) {
	s, _ := record.SchemaFor(record.Microstructure)
	payload := `{"avg_grain_size_um": null, "evidence": {"snippet": "Fig.3 shows 115 μm bands"}}`
	r, err := record.Decode([]byte(payload), record.Microstructure)
	require.NoError(t, err)
	r.Backfill(s)
	n, _ := mustGet(t, r, "avg_grain_size_um").Number()
	assert.Equal(t, 115.0, n)
}

func TestBackfillReadsThousandsSeparator(t *testing.T) {
	s, _ := record.SchemaFor(record.Microstructure)
	r, err := record.Decode([]byte(`{"avg_grain_size_um": null, "evidence": {"snippet": "coarse grains of 1,200 μm"}}`), record.Microstructure)
	require.NoError(t, err)
	assert.Equal(t, []string{"avg_grain_size_um"}, r.Backfill(s))
	n, _ := mustGet(t, r, "avg_grain_size_um").Number()
	assert.Equal(t, 1200.0, n)

	r, err = record.Decode([]byte(`{"avg_grain_size_um": null, "evidence": {"snippet": "fine grains of 0,8 μm"}}`), record.Microstructure)
	require.NoError(t, err)
	assert.Empty(t, r.Backfill(s), "a decimal comma must not yield 8")
}

func TestMarshalRoundTripsOrder(t *testing.T) {
	payload := `{"b":1,"a":2.0,"c":"x","evidence":{"snippet":"s"}}`
	r, err := record.Decode([]byte(payload), record.Microstructure)
	require.NoError(t, err)
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":2.0,"c":"x","evidence":{"snippet":"s"}}`, string(out))
}

func TestCloneIsIndependent(t *testing.T) {
	r, err := record.Decode([]byte(`{"x": null, "evidence": {"snippet": "3 μm"}}`), record.Microstructure)
	require.NoError(t, err)
	c := r.Clone()
	c.Evidence.Snippet = "changed"
	c.Fields[0].Value = record.IntValue(1)
	assert.Equal(t, "3 μm", r.Snippet())
	assert.True(t, mustGet(t, r, "x").IsNull())
}

func TestParseKind(t *testing.T) {
	k, ok := record.ParseKind(" Mechanical ")
	assert.True(t, ok)
	assert.Equal(t, record.Mechanical, k)
	_, ok = record.ParseKind("thermal")
	assert.False(t, ok)
}

func TestIdentityFields(t *testing.T) {
	ids := record.IdentityFields(record.Composition)
	assert.Contains(t, ids, "alloy_name")
	assert.Contains(t, ids, "material_form")
	ids = record.IdentityFields(record.Kind("unknown"))
	assert.Len(t, ids, 3)
}

func mustGet(t *testing.T, r record.Record, name string) record.Value {
	t.Helper()
	v, ok := r.Get(name)
	require.True(t, ok, "field %q missing", name)
	return v
}
