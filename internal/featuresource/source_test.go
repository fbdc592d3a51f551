package featuresource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSource struct{ url string }

func (nopSource) Load(context.Context) (Schema, error)            { return Schema{}, nil }
func (nopSource) Query(context.Context, Query) ([]Feature, error) { return nil, nil }
func (nopSource) Close() error                                    { return nil }

func TestMuxDispatchesOnScheme(t *testing.T) {
	var got string
	mux := Mux{
		"duckdb": OpenerFunc(func(_ context.Context, url string) (Source, error) {
			got = url
			return nopSource{url: url}, nil
		}),
	}

	src, err := mux.Open(context.Background(), "DuckDB://segments")
	require.NoError(t, err)
	assert.NotNil(t, src)
	assert.Equal(t, "DuckDB://segments", got)

	_, err = mux.Open(context.Background(), "ftp://x")
	assert.ErrorIs(t, err, ErrUnsupportedURL)

	_, err = mux.Open(context.Background(), "segments")
	assert.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestSchemaFieldIsCaseInsensitive(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "REC_TREATMENT"}}}
	f, ok := s.Field("rec_treatment")
	assert.True(t, ok)
	assert.Equal(t, "REC_TREATMENT", f.Name)
	_, ok = s.Field("missing")
	assert.False(t, ok)
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "12", IDString(float64(12)))
	assert.Equal(t, "1.5", IDString(1.5))
	assert.Equal(t, "abc", IDString("abc"))
	assert.Equal(t, "7", IDString(int64(7)))
	assert.Equal(t, "", IDString(nil))
}
