package assistant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreResetReplacesLogAndRotatesThread(t *testing.T) {
	s := NewStore()
	first := s.ThreadID()
	require.NotEmpty(t, first)

	s.AppendUser("hello")
	s.AppendAssistant("hi", "")
	require.Len(t, s.Messages(), 2)

	threadID, epoch := s.Reset("welcome back")
	require.NotEqual(t, first, threadID)
	require.Equal(t, uint64(1), epoch)
	require.Equal(t, threadID, s.ThreadID())

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, RoleAssistant, msgs[0].Role)
	require.Equal(t, "welcome back", msgs[0].Text)
}

func TestStoreResetClearsInputAndLoading(t *testing.T) {
	s := NewStore()
	s.SetInput("draft")
	s.SetLoading(true)

	s.Reset("hi")
	require.Empty(t, s.Input())
	require.False(t, s.Loading())
}

func TestStoreAppendOrder(t *testing.T) {
	s := NewStore()
	s.AppendUser("one")
	s.AppendAssistant("two", "fill_query_input")
	s.AppendUser("three")

	msgs := s.Messages()
	require.Equal(t, []string{"one", "two", "three"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
	require.Equal(t, "fill_query_input", msgs[1].Badge)
}

func TestStoreMessagesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.AppendUser("one")
	msgs := s.Messages()
	msgs[0].Text = "mutated"
	require.Equal(t, "one", s.Messages()[0].Text)
}

func TestStoreAdoptThreadID(t *testing.T) {
	s := NewStore()
	s.AdoptThreadID("t-server")
	require.Equal(t, "t-server", s.ThreadID())

	s.AdoptThreadID("")
	require.Equal(t, "t-server", s.ThreadID())
}

func TestStoreEpochIncrementsPerReset(t *testing.T) {
	s := NewStore()
	require.Equal(t, uint64(0), s.Epoch())
	s.Reset("a")
	s.Reset("b")
	require.Equal(t, uint64(2), s.Epoch())
}
