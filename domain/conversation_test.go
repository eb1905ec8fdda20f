package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ConversationID_Is_Order_Independent(t *testing.T) {
	req := require.New(t)
	pairs := [][2]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"u-001", "u-002"},
		{"zed", "zed"},
	}
	for _, pair := range pairs {
		req.Equal(ConversationID(pair[0], pair[1]), ConversationID(pair[1], pair[0]))
	}
}

func Test_ConversationID_Joins_Sorted_Ids(t *testing.T) {
	req := require.New(t)
	req.Equal("alice_bob", ConversationID("bob", "alice"))
	req.Equal("alice_bob", ConversationID("alice", "bob"))
}

func Test_ConversationParties_Roundtrips(t *testing.T) {
	req := require.New(t)

	a, b, ok := ConversationParties(ConversationID("bob", "alice"))
	req.True(ok)
	req.Equal("alice", a)
	req.Equal("bob", b)

	_, _, ok = ConversationParties("not-a-conversation")
	req.False(ok)
	_, _, ok = ConversationParties("_dangling")
	req.False(ok)
}
