package tasks

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tu "github.com/desertthunder/songbot/internal/testing"
)

func TestLogChatSender(t *testing.T) {
	t.Run("writes chat lines", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewLogChatSender(&buf, testLogger())
		require.NoError(t, s.SendChat(context.Background(), "hello"))
		require.NoError(t, s.SendChat(context.Background(), "world"))
		assert.Equal(t, "[chat] hello\n[chat] world\n", buf.String())
	})

	t.Run("write failure", func(t *testing.T) {
		s := NewLogChatSender(&tu.FWriter{}, testLogger())
		err := s.SendChat(context.Background(), "hello")
		assert.ErrorContains(t, err, "write chat line")
	})
}

func TestLogRefunder(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogRefunder(log.New(&buf))
	require.NoError(t, r.Refund(context.Background(), "evt-1", "rwd-1"))
	assert.Contains(t, buf.String(), "refunding redemption")
	assert.Contains(t, buf.String(), "evt-1")
}
