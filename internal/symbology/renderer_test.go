package symbology

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/filter"
)

func tenBreaks() dataset.Descriptor {
	d := dataset.Descriptor{
		Kind:        dataset.Continuous,
		URL:         "duckdb://segments",
		StyledField: "SCORE",
		Fallback:    dataset.Style{Color: "black"},
	}
	for i := 1; i <= 10; i++ {
		lo := float64(i)
		d.Breaks = append(d.Breaks, dataset.Break{
			Label: labelFor(i),
			Min:   lo,
			Max:   lo + 0.99,
			Style: dataset.Style{Color: labelFor(i)},
		})
	}
	return d
}

func labelFor(i int) string {
	return string(rune('A' + i - 1))
}

func rangeState(lo, hi int) filter.State {
	f := filter.New()
	f.SetMax(hi)
	f.SetMin(lo)
	return f
}

func TestBuildKeepsOverlappingBreaksInOrder(t *testing.T) {
	d := tenBreaks()
	for lo := 1; lo <= 10; lo++ {
		for hi := lo; hi <= 10; hi++ {
			r, err := Build(d, rangeState(lo, hi))
			require.NoError(t, err)
			cb, ok := r.(*ClassBreaks)
			require.True(t, ok)

			var want []dataset.Break
			for _, b := range d.Breaks {
				if b.Max >= float64(lo) && b.Min <= float64(hi) {
					want = append(want, b)
				}
			}
			assert.Equal(t, want, cb.Breaks, "range [%d,%d]", lo, hi)
			assert.Equal(t, d.Fallback, cb.Default())
		}
	}
}

func TestBuildSingleValueRangeDropsLowerBreak(t *testing.T) {
	d := dataset.Descriptor{
		Kind:        dataset.Continuous,
		StyledField: "SCORE",
		Breaks: []dataset.Break{
			{Label: "1.0-1.99", Min: 1.0, Max: 1.99},
			{Label: "2.0-2.99", Min: 2.0, Max: 2.99},
		},
	}
	r, err := Build(d, rangeState(2, 2))
	require.NoError(t, err)
	desc := r.Describe()
	require.Len(t, desc.Classes, 1)
	assert.Equal(t, "2.0-2.99", desc.Classes[0].Label)
}

func TestBuildDefaultConditionRange(t *testing.T) {
	d := dataset.Defaults().Condition
	r, err := Build(d, rangeState(3, 6))
	require.NoError(t, err)
	var labels []string
	for _, c := range r.Describe().Classes {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"3-4 (Fair)", "5-6 (Good)"}, labels)
}

func TestBuildShowAllKeepsEveryValue(t *testing.T) {
	d := dataset.Defaults().Treatment
	r, err := Build(d, filter.New())
	require.NoError(t, err)
	uv := r.(*UniqueValue)
	assert.Equal(t, d.Values, uv.Values)
}

func TestBuildSelectedValue(t *testing.T) {
	d := dataset.Defaults().Treatment
	f := filter.New()
	f.Select("OL")
	r, err := Build(d, f)
	require.NoError(t, err)
	uv := r.(*UniqueValue)
	require.Len(t, uv.Values, 1)
	assert.Equal(t, "OL", uv.Values[0].Value)
}

func TestBuildUnmatchedCategory(t *testing.T) {
	d := dataset.Defaults().Treatment
	f := filter.New()
	f.Select("NOPE")
	_, err := Build(d, f)
	assert.ErrorIs(t, err, ErrUnmatchedCategory)
}

func TestBuildInvalidDescriptor(t *testing.T) {
	_, err := Build(dataset.Descriptor{StyledField: "X"}, filter.New())
	assert.ErrorIs(t, err, dataset.ErrInvalidRenderer)
}

func TestBuildDoesNotAliasDescriptor(t *testing.T) {
	d := dataset.Defaults().Treatment
	r, err := Build(d, filter.New())
	require.NoError(t, err)
	r.(*UniqueValue).Values[0].Label = "changed"
	assert.NotEqual(t, "changed", d.Values[0].Label)
}

func TestStyleFor(t *testing.T) {
	cond, err := Build(dataset.Defaults().Condition, rangeState(1, 10))
	require.NoError(t, err)
	assert.Equal(t, "yellow", cond.StyleFor(4.2).Color)
	assert.Equal(t, "blue", cond.StyleFor(int64(10)).Color)
	assert.Equal(t, "green", cond.StyleFor("7").Color)
	assert.Equal(t, "red", cond.StyleFor(nil).Color)
	assert.Equal(t, "red", cond.StyleFor(json.Number("0.5")).Color)

	treat, err := Build(dataset.Defaults().Treatment, filter.New())
	require.NoError(t, err)
	assert.Equal(t, "#d73027", treat.StyleFor("RC").Color)
	assert.Equal(t, "gray", treat.StyleFor("??").Color)
}

func TestLegendEndsWithDefault(t *testing.T) {
	r, err := Build(dataset.Defaults().Condition, rangeState(9, 10))
	require.NoError(t, err)
	assert.Equal(t, []LegendItem{
		{Label: "9-10 (Excellent)", Color: "blue"},
		{Label: "Other", Color: "red"},
	}, Legend(r))
}

func TestPaintUniqueValue(t *testing.T) {
	f := filter.New()
	f.Select("CS")
	r, err := Build(dataset.Defaults().Treatment, f)
	require.NoError(t, err)
	paint := Paint(r)
	data, err := json.Marshal(paint["line-color"])
	require.NoError(t, err)
	assert.JSONEq(t, `["match",["to-string",["get","REC_TREATMENT"]],"CS","#1a9850","gray"]`, string(data))
}

func TestPaintEmptyBreaksFallsBack(t *testing.T) {
	r := &ClassBreaks{StyledField: "S", DefaultStyle: dataset.Style{Color: "red", Width: 1}}
	paint := Paint(r)
	assert.Equal(t, "red", paint["line-color"])
	assert.Equal(t, 1.0, paint["line-width"])
}
