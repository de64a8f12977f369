package weather

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesMarshalJSON(t *testing.T) {
	inf := float32(math.Inf(1))

	got, err := json.Marshal(Series{1.5, nan32, -3, inf, 0.1})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5,null,-3,null,0.1]`, string(got))

	got, err = json.Marshal(Series{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestColumnMarshalsDataAsSeries(t *testing.T) {
	got, err := json.Marshal(Column{Name: "temperature_2m", Unit: "°C", Data: Series{nan32, 20}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, []any{nil, 20.0}, decoded["data"])
}
