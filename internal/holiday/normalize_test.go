package holiday

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLoosePayload(t *testing.T) {
	body := []byte(`[
		{"date":"2026-12-25T00:00:00","localName":"Weihnachten","name":"Christmas Day"},
		{"date":"2026-10-03","localName":"Tag der Deutschen Einheit"},
		{"date":"not-a-date","name":"Broken"},
		{"name":"No date"},
		"junk",
		{"date":"2025-12-31","name":"Wrong year"},
		{"date":"2026-10-03","name":"Duplicate"}
	]`)

	hs, err := Normalize(body, "DE", 2026, "api")
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, "2026-10-03", hs[0].Date.String())
	assert.Equal(t, "Tag der Deutschen Einheit", hs[0].Name)
	assert.Equal(t, "2026-12-25", hs[1].Date.String())
	assert.Equal(t, "Christmas Day", hs[1].Name)
	assert.Equal(t, "DE", hs[1].Country)
}

func TestNormalizeWrappedAndEmpty(t *testing.T) {
	hs, err := Normalize([]byte(`{"holidays":[{"date":"2026-01-01","name":"New Year"}]}`), "PH", 2026, "api")
	require.NoError(t, err)
	assert.Len(t, hs, 1)

	hs, err = Normalize([]byte(`[]`), "PH", 2026, "api")
	require.NoError(t, err)
	assert.Empty(t, hs)

	hs, err = Normalize([]byte(`null`), "PH", 2026, "api")
	require.NoError(t, err)
	assert.Empty(t, hs)
}

func TestNormalizeRejectsNonList(t *testing.T) {
	for _, body := range []string{`<html>`, `"x"`, `{"error":"nope"}`, `42`} {
		_, err := Normalize([]byte(body), "US", 2026, "api")
		assert.ErrorIs(t, err, ErrPayload, body)
	}
}

func TestCountryCodes(t *testing.T) {
	assert.Equal(t, "US", NormalizeCountry(" us "))
	assert.True(t, ValidCountry("GB"))
	assert.False(t, ValidCountry("gb"))
	assert.False(t, ValidCountry("GBR"))
	assert.False(t, ValidCountry(""))
}
