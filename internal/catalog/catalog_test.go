package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/featuresource"
	"github.com/joeblew999/plat-paser/internal/featuresource/featuretest"
	"github.com/joeblew999/plat-paser/internal/log"
)

func TestLoadReadsCodedValues(t *testing.T) {
	src := &featuretest.Source{Schema: featuresource.Schema{Fields: []featuresource.Field{
		{Name: "OBJECTID"},
		featuretest.CodedField("REC_TREATMENT", "CS", "Crack Seal", "OL", "Overlay"),
	}}}
	c := Load(context.Background(), src, dataset.Defaults().Treatment, log.Discard())

	assert.True(t, c.Loaded())
	assert.Equal(t, []Entry{{"CS", "Crack Seal"}, {"OL", "Overlay"}}, c.Entries())
	name, ok := c.Label("OL")
	assert.True(t, ok)
	assert.Equal(t, "Overlay", name)
	assert.Equal(t, []Option{
		{Value: "Show All", Label: "Show All"},
		{Value: "CS", Label: "Crack Seal (CS)"},
		{Value: "OL", Label: "Overlay (OL)"},
	}, c.Options())
}

func TestLoadDegradesToEmpty(t *testing.T) {
	d := dataset.Defaults().Treatment
	tests := []struct {
		name string
		src  *featuretest.Source
	}{
		{"load error", &featuretest.Source{LoadErr: errors.New("unreachable")}},
		{"missing field", &featuretest.Source{Schema: featuresource.Schema{Fields: []featuresource.Field{{Name: "OTHER"}}}}},
		{"no domain", &featuretest.Source{Schema: featuresource.Schema{Fields: []featuresource.Field{{Name: "REC_TREATMENT"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Load(context.Background(), tt.src, d, log.Discard())
			assert.False(t, c.Loaded())
			assert.Zero(t, c.Len())
			assert.Equal(t, []Option{{Value: "Show All", Label: "Show All"}}, c.Options())
		})
	}
}

func TestEntriesIsACopy(t *testing.T) {
	c := New([]Entry{{"CS", "Crack Seal"}})
	c.Entries()[0].Name = "x"
	name, _ := c.Label("CS")
	assert.Equal(t, "Crack Seal", name)
}
