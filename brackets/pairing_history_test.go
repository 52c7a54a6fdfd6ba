package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tcg-arena/models"
)

func TestPairingSetOrderInsensitive(t *testing.T) {
	set := NewPairingSet()
	set.Add(7, 3)

	assert.True(t, set.Played(3, 7))
	assert.True(t, set.Played(7, 3))
	assert.False(t, set.Played(3, 5))
	assert.Equal(t, 1, set.Len())

	// Повторное добавление не создаёт дубликата.
	set.Add(3, 7)
	assert.Equal(t, 1, set.Len())
}

func TestPairingSetKeysDeterministic(t *testing.T) {
	set := NewPairingSet(
		models.NewPairKey(9, 2),
		models.NewPairKey(1, 4),
		models.NewPairKey(1, 3),
	)
	keys := set.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, []models.PairKey{
		{LowID: 1, HighID: 3},
		{LowID: 1, HighID: 4},
		{LowID: 2, HighID: 9},
	}, keys)
}
