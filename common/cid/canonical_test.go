package cid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medium-stack/mstack/common/errs"
)

func TestCanonicalizeSortsAndCompacts(t *testing.T) {
	out, err := Canonicalize([]byte(`{
		"zebra": [3, 1, 2],
		"alpha": {"y": true, "x": null},
		"mid": "value"
	}`))
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"x":null,"y":true},"mid":"value","zebra":[3,1,2]}`, string(out))
}

func TestCanonicalizeNumberForms(t *testing.T) {
	cases := map[string]string{
		`2`:       `2`,
		`2.0`:     `2`,
		`2e0`:     `2`,
		`-0.5`:    `-0.5`,
		`1.25e2`:  `125`,
		`1e3`:     `1000`,
		`3.14159`: `3.14159`,
	}
	for in, want := range cases {
		out, err := Canonicalize([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, string(out), in)
	}
}

func TestCanonicalizeLargeIntsKeepPrecision(t *testing.T) {
	out, err := Canonicalize([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, `9007199254740993`, string(out))

	out, err = Canonicalize([]byte(`18446744073709551615`))
	require.NoError(t, err)
	assert.Equal(t, `18446744073709551615`, string(out))
}

func TestCanonicalizeRejectsBadDocuments(t *testing.T) {
	for name, in := range map[string]string{
		"syntax":   `{"a":`,
		"trailing": `{"a":1} extra`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Canonicalize([]byte(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrBadCanonical))
		})
	}
}

func TestMarshalCanonicalRejectsUnencodable(t *testing.T) {
	_, err := MarshalCanonical(make(chan int))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBadCanonical))
}

func TestMarshalCanonicalStructHonorsTags(t *testing.T) {
	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	out, err := MarshalCanonical(record{Name: "a", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, `{"count":3,"name":"a"}`, string(out))
}
