package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeParticipants(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, NormalizeParticipants([]string{"c", "", "a", "b", "a"}))
	assert.Empty(t, NormalizeParticipants(nil))
}

func TestParticipantKey_OrderAndDuplicatesIgnored(t *testing.T) {
	k1 := ParticipantKey([]string{"u1", "u2", "u3"})
	k2 := ParticipantKey([]string{"u3", "u1", "u2", "u1"})
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestParticipantKey_DistinguishesSets(t *testing.T) {
	assert.NotEqual(t, ParticipantKey([]string{"u1", "u2"}), ParticipantKey([]string{"u1", "u2", "u3"}))
	// без префикса длины эти наборы дали бы одну и ту же строку
	assert.NotEqual(t, ParticipantKey([]string{"ab", "c"}), ParticipantKey([]string{"a", "bc"}))
}
