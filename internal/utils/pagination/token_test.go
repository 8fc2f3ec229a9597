package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateBasedTokenRoundTrip(t *testing.T) {
	original := time.Date(2025, 6, 14, 10, 30, 0, 123456789, time.UTC)

	token := EncodeDateBasedToken(original)
	assert.NotEmpty(t, token)

	decoded, err := DecodeDateBasedToken(token)
	require.NoError(t, err)
	assert.True(t, original.Equal(decoded), "decoded time should equal original")
}

func TestDecodeDateBasedToken_InvalidBase64(t *testing.T) {
	_, err := DecodeDateBasedToken("not-base64!!!")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "base64 decode")
}

func TestDecodeDateBasedToken_InvalidTimestamp(t *testing.T) {
	// Valid base64, but not a timestamp inside.
	_, err := DecodeDateBasedToken("bm90LWEtdGltZXN0YW1w")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "date parse")
}
