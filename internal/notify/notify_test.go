package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimwise/cli/internal/logging"
)

func TestToastExpiry(t *testing.T) {
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	c := NewCenter(logging.Discard())
	c.now = func() time.Time { return now }

	c.Success("Uploaded", "lease.pdf")
	c.Error("Upload failed", "bad file")
	c.Info("Tip", "press ?")
	loading := c.Loading("Analyzing", "")

	assert.Len(t, c.Active(), 4)

	now = now.Add(3 * time.Second)
	assert.Len(t, c.Active(), 3, "success toast gone after 3s")

	now = now.Add(time.Second)
	assert.Len(t, c.Active(), 2, "info toast gone after 4s")

	now = now.Add(time.Second)
	active := c.Active()
	require.Len(t, active, 1, "error toast gone after 5s")
	assert.Equal(t, LevelLoading, active[0].Level)

	c.Dismiss(loading)
	assert.Empty(t, c.Active())
}

func TestInbox(t *testing.T) {
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	c := NewCenter(logging.Discard())
	c.now = func() time.Time { now = now.Add(time.Second); return now }

	first := c.Success("Analysis complete", "lease.pdf")
	c.Error("Chat failed", "timeout")
	c.Loading("Working", "")

	all := c.All()
	require.Len(t, all, 2, "loading toasts are not kept in the inbox")
	assert.Equal(t, "Chat failed", all[0].Title, "newest first")
	assert.Equal(t, 2, c.UnreadCount())

	assert.True(t, c.MarkRead(first))
	assert.False(t, c.MarkRead("nope"))
	unread := c.Unread()
	require.Len(t, unread, 1)
	assert.Equal(t, "Chat failed", unread[0].Title)

	c.MarkAllRead()
	assert.Equal(t, 0, c.UnreadCount())
}
