package keystore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexKey = strings.Repeat("ab", 32)

func TestParse(t *testing.T) {
	ks, err := Parse("k1:"+hexKey+", k2:"+strings.Repeat("cd", 16), "k2")
	require.NoError(t, err)
	assert.True(t, ks.Enabled())

	id, key, err := ks.SigningKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k2", id)
	assert.Len(t, key, 16)

	_, err = ks.GetKey(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestParseSingleKeyBecomesDefault(t *testing.T) {
	ks, err := Parse("only:"+hexKey, "")
	require.NoError(t, err)
	id, _, err := ks.SigningKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "only", id)
}

func TestParseEmpty(t *testing.T) {
	ks, err := Parse("", "")
	require.NoError(t, err)
	assert.False(t, ks.Enabled())
	_, _, err = ks.SigningKey(context.Background())
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	for name, raw := range map[string]string{
		"no separator": "k1",
		"bad hex":      "k1:zz",
		"short":        "k1:abcd",
		"empty id":     ":" + hexKey,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw, "")
			assert.Error(t, err)
		})
	}

	_, err := Parse("k1:"+hexKey, "k9")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
