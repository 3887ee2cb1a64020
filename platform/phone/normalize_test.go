package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE164(t *testing.T) {
	n := NewNormalizer("")
	assert.Equal(t, "FR", n.Region())

	got, err := n.E164(" 01 42 34 56 78 ")
	require.NoError(t, err)
	assert.Equal(t, "+33142345678", got)

	got, err = n.E164("+1 650-253-0000")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", got)

	got, err = n.E164("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = n.E164("12")
	assert.ErrorIs(t, err, ErrInvalidNumber)

	_, err = n.E164("not a number")
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestInternational(t *testing.T) {
	n := NewNormalizer("fr")
	assert.Equal(t, "+33 1 42 34 56 78", n.International("+33142345678"))
	assert.Equal(t, "garbage", n.International("garbage"))
}
