package capture

import (
	"testing"

	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_RoutesResultKey(t *testing.T) {
	e, err := Normalize(`{"result":"大吉","願望":"叶う","待人":"来る"}`)
	require.NoError(t, err)
	require.NotNil(t, e.Outcome)
	assert.Equal(t, record.Daikichi, *e.Outcome)
	assert.Equal(t, record.Categories{"願望": "叶う", "待人": "来る"}, e.Categories)
}

func TestNormalize_DropsNonCanonicalResult(t *testing.T) {
	e, err := Normalize(`{"result":"すごく吉","商売":"良し"}`)
	require.NoError(t, err)
	assert.Nil(t, e.Outcome)
	assert.Equal(t, record.Categories{"商売": "良し"}, e.Categories)
}

func TestNormalize_UnwrapsOneStringLayer(t *testing.T) {
	e, err := Normalize(`"{\"result\":\"凶\",\"旅行\":\"控えよ\"}"`)
	require.NoError(t, err)
	require.NotNil(t, e.Outcome)
	assert.Equal(t, record.Kyo, *e.Outcome)
	assert.Equal(t, record.Categories{"旅行": "控えよ"}, e.Categories)
}

func TestNormalize_RejectsDoubleEncoding(t *testing.T) {
	_, err := Normalize(`"\"{\\\"a\\\":\\\"b\\\"}\""`)
	assert.ErrorIs(t, err, ErrMalformedExtraction)
}

func TestNormalize_CodeFence(t *testing.T) {
	e, err := Normalize("```json\n{\"result\":\"末吉\",\"学問\":\"励め\"}\n```")
	require.NoError(t, err)
	require.NotNil(t, e.Outcome)
	assert.Equal(t, record.Suekichi, *e.Outcome)
	assert.Equal(t, "励め", e.Categories["学問"])
}

func TestNormalize_CoercesScalars(t *testing.T) {
	e, err := Normalize(`{"番号":12,"吉":true,"空":null}`)
	require.NoError(t, err)
	assert.Equal(t, record.Categories{"番号": "12", "吉": "true", "空": ""}, e.Categories)
}

func TestNormalize_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"ただの文章です",
		`["大吉"]`,
		`null`,
		`{"願望":{"内容":"叶う"}}`,
		`{"願望":["叶う"]}`,
		`{"願望":`,
	}
	for _, in := range inputs {
		e, err := Normalize(in)
		assert.ErrorIs(t, err, ErrMalformedExtraction, "input %q", in)
		assert.Nil(t, e, "input %q", in)
	}
}

func TestExtraction_ApplyTo(t *testing.T) {
	d := &Draft{Outcome: record.DefaultOutcome, Categories: record.Categories{"古い": "値"}}
	(&Extraction{Categories: record.Categories{"新しい": "値"}}).ApplyTo(d)
	assert.Equal(t, record.DefaultOutcome, d.Outcome)
	assert.Equal(t, record.Categories{"新しい": "値"}, d.Categories)

	o := record.Chukichi
	(&Extraction{Outcome: &o, Categories: record.Categories{}}).ApplyTo(d)
	assert.Equal(t, record.Chukichi, d.Outcome)
	assert.Empty(t, d.Categories)
}
