package layer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/featuresource/featuretest"
	"github.com/joeblew999/plat-paser/internal/filter"
	"github.com/joeblew999/plat-paser/internal/symbology"
)

func newHandles(t *testing.T) (*Handle, *Handle, map[string]*featuretest.Source) {
	t.Helper()
	pair := dataset.Defaults()
	sources := map[string]*featuretest.Source{
		pair.Condition.URL: {Features: featuretest.Segments("CURRENT_PASER", 7.0, 2.0)},
		pair.Treatment.URL: {Features: featuretest.Segments("REC_TREATMENT", "CS")},
	}
	opener := featuretest.Opener(sources)
	cond, err := Create(context.Background(), opener, pair.Condition)
	require.NoError(t, err)
	treat, err := Create(context.Background(), opener, pair.Treatment)
	require.NoError(t, err)
	return cond, treat, sources
}

func TestCreateRejectsInvalidRenderer(t *testing.T) {
	d := dataset.Defaults().Condition
	d.Breaks = nil
	_, err := Create(context.Background(), featuretest.Opener(nil), d)
	assert.ErrorIs(t, err, dataset.ErrInvalidRenderer)
}

func TestQueryRowsProjectsTableFields(t *testing.T) {
	cond, _, _ := newHandles(t)
	rows, err := cond.QueryRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].ID)
	assert.Len(t, rows[0].Values, len(cond.Descriptor.TableFields))
	assert.Equal(t, 7.0, rows[0].Values["CURRENT_PASER"])
	assert.NotContains(t, rows[0].Values, "OBJECTID")
}

func TestQueryRowsWrapsFailure(t *testing.T) {
	cond, _, sources := newHandles(t)
	sources[cond.Descriptor.URL].QueryErr = errors.New("timeout")
	_, err := cond.QueryRows(context.Background())
	assert.ErrorIs(t, err, ErrAttributeQuery)
}

func TestBindingKeepsExactlyOneVisible(t *testing.T) {
	cond, treat, _ := newHandles(t)
	b := NewBinding(cond, treat)

	check := func() {
		t.Helper()
		assert.NotEqual(t, b.Visible(dataset.Continuous), b.Visible(dataset.Discrete))
	}
	check()
	assert.Equal(t, dataset.Continuous, b.Active())

	b.SetActive(dataset.Discrete)
	check()
	assert.Equal(t, dataset.Discrete, b.Active())

	b.SetVisible(dataset.Discrete, false)
	check()
	assert.Equal(t, dataset.Continuous, b.Active())
}

func TestBindingAssignRendererReplaces(t *testing.T) {
	cond, treat, sources := newHandles(t)
	b := NewBinding(cond, treat)
	assert.Nil(t, b.Renderer(dataset.Discrete))

	r1, err := symbology.Build(treat.Descriptor, filter.New())
	require.NoError(t, err)
	b.AssignRenderer(dataset.Discrete, r1)

	f := filter.New()
	f.Select("CS")
	r2, err := symbology.Build(treat.Descriptor, f)
	require.NoError(t, err)
	b.AssignRenderer(dataset.Discrete, r2)
	assert.Same(t, r2, b.Renderer(dataset.Discrete))

	require.NoError(t, b.Close())
	for _, s := range sources {
		assert.True(t, s.Closed())
	}
}
