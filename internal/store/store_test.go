package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
)

const (
	selfID  = "user-self"
	otherID = "user-other"
)

type fakeFetcher struct {
	pages map[string][]entity.Message // beforeID -> page
	calls int
}

func (f *fakeFetcher) MessagesBefore(_ context.Context, _ string, beforeID string, _ int) ([]entity.Message, error) {
	f.calls++
	return f.pages[beforeID], nil
}

func msgAt(id, sender string, content string, at time.Time) entity.Message {
	return entity.Message{
		ID:        id,
		RoomID:    "room-1",
		Sender:    entity.UserSummary{ID: sender},
		Type:      entity.MessageText,
		Content:   content,
		CreatedAt: at,
	}
}

func TestAppend_DedupeById(t *testing.T) {
	s := NewMessageStore("room-1", selfID, nil)
	base := time.Now()

	m := msgAt("srv-1", otherID, "hello", base)
	require.True(t, s.Append(m), "first append should insert")
	assert.False(t, s.Append(m), "second append of the same id should be a no-op")
	assert.False(t, s.Append(m), "any further append of the same id should be a no-op")

	assert.Equal(t, 1, s.Len(), "store should contain the id exactly once")
}

func TestAppend_OrderedByServerTimestamp(t *testing.T) {
	s := NewMessageStore("room-1", selfID, nil)
	base := time.Now()

	// arrive out of order, as a WS push racing a REST page does
	s.Append(msgAt("srv-3", otherID, "c", base.Add(3*time.Second)))
	s.Append(msgAt("srv-1", otherID, "a", base.Add(1*time.Second)))
	s.Append(msgAt("srv-2", otherID, "b", base.Add(2*time.Second)))

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"srv-1", "srv-2", "srv-3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestAppend_TimestampTieKeepsArrivalOrder(t *testing.T) {
	s := NewMessageStore("room-1", selfID, nil)
	at := time.Now()

	s.Append(msgAt("srv-a", otherID, "first", at))
	s.Append(msgAt("srv-b", otherID, "second", at))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "srv-a", msgs[0].ID, "equal timestamps keep arrival order")
	assert.Equal(t, "srv-b", msgs[1].ID)
}

func TestMarkLocalSent_SwapsIdInPlace(t *testing.T) {
	s := NewMessageStore("room-1", selfID, nil)
	base := time.Now()

	s.Append(msgAt("srv-1", otherID, "hi", base))
	local := msgAt(entity.NewLocalID("abc"), selfID, "hello", base.Add(time.Second))
	local.Pending = true
	s.Append(local)

	require.NoError(t, errOrNil(s.MarkLocalSent(local.ID, "srv-42")))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "srv-42", msgs[1].ID, "server id should replace the provisional one in place")
	assert.False(t, msgs[1].Pending)
}

func TestMarkLocalSent_EchoArrivedFirst(t *testing.T) {
	// the WS echo can land before the REST send response; the provisional
	// entry must then be dropped, not duplicated
	s := NewMessageStore("room-1", selfID, nil)
	base := time.Now()

	localID := entity.NewLocalID("abc")
	local := msgAt(localID, selfID, "hello", base)
	local.Pending = true
	s.Append(local)

	echo := msgAt("srv-42", selfID, "hello", base)
	s.Append(echo)

	require.NoError(t, errOrNil(s.MarkLocalSent(localID, "srv-42")))

	msgs := s.Messages()
	require.Len(t, msgs, 1, "store must converge to one entry")
	assert.Equal(t, "srv-42", msgs[0].ID)
}

func TestAppend_EchoAdoptsPendingSend(t *testing.T) {
	// optimistic local send followed by the server echo with identical
	// content converges onto a single entry with the server id
	s := NewMessageStore("room-1", selfID, nil)
	base := time.Now()

	localID := entity.NewLocalID("opt-1")
	local := msgAt(localID, selfID, "hello", base)
	local.Pending = true
	s.Append(local)

	echo := msgAt("srv-42", selfID, "hello", base.Add(200*time.Millisecond))
	s.Append(echo)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-42", msgs[0].ID)
	assert.False(t, msgs[0].Pending)
}

func TestLoadPage_MergesWithoutDisturbingLoaded(t *testing.T) {
	base := time.Now()
	fetcher := &fakeFetcher{pages: map[string][]entity.Message{
		"srv-3": {
			msgAt("srv-1", otherID, "a", base.Add(1*time.Second)),
			msgAt("srv-2", otherID, "b", base.Add(2*time.Second)),
			// overlap with what is already loaded
			msgAt("srv-3", otherID, "c", base.Add(3*time.Second)),
		},
	}}

	s := NewMessageStore("room-1", selfID, fetcher)
	s.Append(msgAt("srv-3", otherID, "c", base.Add(3*time.Second)))
	s.Append(msgAt("srv-4", otherID, "d", base.Add(4*time.Second)))

	added, appErr := s.LoadPage(context.Background(), 10)
	require.Nil(t, appErr)
	assert.Equal(t, 2, added, "only entries not already present should merge")

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"srv-1", "srv-2", "srv-3", "srv-4"},
		[]string{msgs[0].ID, msgs[1].ID, msgs[2].ID, msgs[3].ID})
}

func TestLoadPage_CanceledContextDiscardsResult(t *testing.T) {
	base := time.Now()
	fetcher := &fakeFetcher{pages: map[string][]entity.Message{
		"": {msgAt("srv-1", otherID, "a", base)},
	}}

	s := NewMessageStore("room-1", selfID, fetcher)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	added, appErr := s.LoadPage(ctx, 10)
	require.Nil(t, appErr)
	assert.Zero(t, added, "a response after navigation away must not be applied")
	assert.Zero(t, s.Len())
}

func TestUnread_PendingFileExcluded(t *testing.T) {
	s := NewMessageStore("room-1", selfID, nil)
	base := time.Now()

	s.Append(msgAt("srv-1", otherID, "unread", base))

	pendingFile := entity.Message{
		ID:        entity.NewLocalID("file-1"),
		RoomID:    "room-1",
		Sender:    entity.UserSummary{ID: selfID},
		Type:      entity.MessageFile,
		File:      &entity.FileMeta{Name: "report.xlsx"},
		CreatedAt: base.Add(time.Second),
		Pending:   true,
	}
	s.Append(pendingFile)

	assert.Equal(t, 1, s.UnreadCount(), "pending entries never contribute to unread")
}

func TestMarkReadBy_AndRollback(t *testing.T) {
	s := NewMessageStore("room-1", selfID, nil)
	base := time.Now()

	s.Append(msgAt("srv-1", otherID, "a", base))
	s.Append(msgAt("srv-2", otherID, "b", base.Add(time.Second)))
	mine := msgAt("srv-3", selfID, "mine", base.Add(2*time.Second))
	mine.IsRead = true
	s.Append(mine)

	pending := s.UnreadFromCounterpart()
	require.Equal(t, []string{"srv-1", "srv-2"}, pending)

	n := s.MarkReadBy(selfID)
	assert.Equal(t, 2, n)
	assert.Zero(t, s.UnreadCount())

	// rollback restores exactly the pre-call unread set
	s.MarkUnreadFromCounterpart(pending)
	assert.Equal(t, 2, s.UnreadCount())
}

func TestResolveFile(t *testing.T) {
	s := NewMessageStore("room-1", selfID, nil)

	msg := entity.Message{
		ID:      "srv-9",
		RoomID:  "room-1",
		Sender:  entity.UserSummary{ID: selfID},
		Type:    entity.MessageFile,
		File:    &entity.FileMeta{Name: "a.pdf"},
		Pending: true,
	}
	s.Append(msg)

	s.ResolveFile("srv-9", "https://files.example/a.pdf")

	got := s.Messages()[0]
	assert.Equal(t, "https://files.example/a.pdf", got.File.URL)
	assert.False(t, got.Pending)
}

// errOrNil converts a typed-nil *AppError into a plain nil error so
// require.NoError behaves.
func errOrNil(appErr *app_error.AppError) error {
	if appErr == nil {
		return nil
	}
	return appErr
}
