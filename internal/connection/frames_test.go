package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
)

func TestDecodeChatMessageFrame(t *testing.T) {
	raw := []byte(`{
		"type": "chat_message",
		"message": {
			"id": "srv-1",
			"room_id": "",
			"sender": {"id": "u-2", "display_name": "Berk Aydin"},
			"type": "TEXT",
			"content": "merhaba",
			"created_at": "2026-08-20T10:00:00Z"
		}
	}`)

	ev, appErr := decodeFrame(RoomTarget("room-7"), raw)
	require.Nil(t, appErr)

	msg, ok := ev.(MessageReceived)
	require.True(t, ok)
	assert.Equal(t, "srv-1", msg.Message.ID)
	assert.Equal(t, "room-7", msg.Message.RoomID, "missing room id falls back to the subscription's room")
	assert.Equal(t, entity.MessageText, msg.Message.Type)
}

func TestDecodeChatMessageFrame_UnknownMessageTypeRejected(t *testing.T) {
	raw := []byte(`{"type":"chat_message","message":{"id":"srv-1","type":"VOICE"}}`)

	ev, appErr := decodeFrame(RoomTarget("room-7"), raw)
	assert.Nil(t, ev)
	require.NotNil(t, appErr)
	assert.Equal(t, app_error.KindProtocol, appErr.Kind)
}

func TestDecodeTypingFrame(t *testing.T) {
	raw := []byte(`{"type":"typing_indicator","user_id":"u-2","display_name":"Berk Aydin","is_typing":true}`)

	ev, appErr := decodeFrame(RoomTarget("room-7"), raw)
	require.Nil(t, appErr)

	sig, ok := ev.(TypingSignal)
	require.True(t, ok)
	assert.Equal(t, "room-7", sig.RoomID)
	assert.Equal(t, "u-2", sig.UserID)
	assert.True(t, sig.IsTyping)
}

func TestDecodeReadReceiptFrame(t *testing.T) {
	raw := []byte(`{"type":"message_read","reader_id":"u-2","read_at":1755683400}`)

	ev, appErr := decodeFrame(RoomTarget("room-7"), raw)
	require.Nil(t, appErr)

	r, ok := ev.(ReadReceipt)
	require.True(t, ok)
	assert.Equal(t, "u-2", r.ReaderID)
	assert.Equal(t, int64(1755683400), r.ReadAt.Unix())
}

func TestDecodeUserStatusFrame(t *testing.T) {
	online, appErr := decodeFrame(RoomTarget("room-7"), []byte(`{"type":"user_status","user_id":"u-2","status":"online"}`))
	require.Nil(t, appErr)
	assert.True(t, online.(PresenceChanged).Online)

	offline, appErr := decodeFrame(RoomTarget("room-7"), []byte(`{"type":"user_status","user_id":"u-2","status":"offline"}`))
	require.Nil(t, appErr)
	assert.False(t, offline.(PresenceChanged).Online)
}

func TestDecodeNotificationFrame(t *testing.T) {
	raw := []byte(`{
		"type": "notification",
		"notification": {
			"id": "n-1",
			"title": "Task updated",
			"message": "Task X moved to review",
			"type": "task_update",
			"created_at": "2026-08-20T10:00:00Z"
		}
	}`)

	ev, appErr := decodeFrame(NotificationsTarget(), raw)
	require.Nil(t, appErr)

	n, ok := ev.(NotificationArrived)
	require.True(t, ok)
	assert.Equal(t, entity.NotifTaskUpdate, n.Notification.Type)
}

func TestDecodeNotificationFrame_UnknownKindDegradesToSystem(t *testing.T) {
	raw := []byte(`{"type":"notification","notification":{"id":"n-2","type":"billing_alert"}}`)

	ev, appErr := decodeFrame(NotificationsTarget(), raw)
	require.Nil(t, appErr)
	assert.Equal(t, entity.NotifSystem, ev.(NotificationArrived).Notification.Type)
}

func TestDecodeMalformedFrames(t *testing.T) {
	cases := map[string][]byte{
		"not json":            []byte(`{{{`),
		"unknown type":        []byte(`{"type":"presence_blast"}`),
		"chat without body":   []byte(`{"type":"chat_message"}`),
		"typing without user": []byte(`{"type":"typing_indicator","is_typing":true}`),
		"read without reader": []byte(`{"type":"message_read","read_at":1755683400}`),
		"status without user": []byte(`{"type":"user_status","status":"online"}`),
		"notif without body":  []byte(`{"type":"notification"}`),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ev, appErr := decodeFrame(RoomTarget("room-7"), raw)
			assert.Nil(t, ev)
			require.NotNil(t, appErr)
			assert.Equal(t, app_error.KindProtocol, appErr.Kind)
		})
	}
}

func TestOutgoingFrames(t *testing.T) {
	typing, err := json.Marshal(TypingFrame(true))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"typing","is_typing":true}`, string(typing))

	stop, err := json.Marshal(TypingFrame(false))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"typing","is_typing":false}`, string(stop))
}
