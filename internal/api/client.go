package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/internal/dtos"
	"github.com/hakanakfirat27/zeugma-realtime/internal/dtos/chat_dto"
	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is the typed REST collaborator for the platform backend. Every call
// takes a context; a canceled context means the caller navigated away and
// the response must be discarded, which the callers enforce.
type Client struct {
	base     string
	token    string
	http     *http.Client
	validate *validator.Validate
}

func NewClient(base, token string) *Client {
	return &Client{
		base:     strings.TrimRight(base, "/"),
		token:    token,
		http:     &http.Client{Timeout: 15 * time.Second},
		validate: validator.New(),
	}
}

// doJSON performs one request and unwraps the platform's response envelope.
func doJSON[T any](ctx context.Context, c *Client, method, path string, body any) (T, *app_error.AppError) {
	var zero T

	var buf bytes.Buffer
	if body != nil {
		if err := c.validate.Struct(body); err != nil {
			return zero, app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err), "validation")
		}
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return zero, app_error.NewRequestFailure(0, "failed to encode request body")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return zero, app_error.NewRequestFailure(0, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, app_error.NewRequestFailure(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope dtos.Response[any]
		msg := resp.Status
		if decErr := json.NewDecoder(resp.Body).Decode(&envelope); decErr == nil && envelope.Errors != nil {
			msg = envelope.Errors.Message
		}
		log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("api: request failed")
		return zero, app_error.NewRequestFailure(resp.StatusCode, msg)
	}

	var envelope dtos.Response[T]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return zero, app_error.NewRequestFailure(resp.StatusCode, "unparseable response body: "+err.Error())
	}
	return envelope.Data, nil
}

// GetRooms lists the user's conversations.
func (c *Client) GetRooms(ctx context.Context) ([]entity.Room, *app_error.AppError) {
	resp, err := doJSON[chat_dto.GetRoomsResponse](ctx, c, http.MethodGet, "/rooms", nil)
	if err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// CreateRoom opens the conversation with a participant; the backend reuses
// an existing room for the same participant, so the call is idempotent.
func (c *Client) CreateRoom(ctx context.Context, participantID, subject string) (entity.Room, *app_error.AppError) {
	req := chat_dto.CreateRoomRequest{ParticipantID: participantID, Subject: subject}
	resp, err := doJSON[entity.Room](ctx, c, http.MethodPost, "/rooms", req)
	if err != nil {
		return entity.Room{}, err
	}
	return resp, nil
}

// MessagesBefore pages a room's history backwards. Satisfies store.Fetcher.
func (c *Client) MessagesBefore(ctx context.Context, roomID, beforeID string, limit int) ([]entity.Message, error) {
	q := url.Values{"room_id": {roomID}}
	if beforeID != "" {
		q.Set("before_id", beforeID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, appErr := doJSON[chat_dto.GetMessagesResponse](ctx, c, http.MethodGet, "/messages?"+q.Encode(), nil)
	if appErr != nil {
		return nil, appErr
	}
	return resp.Messages, nil
}

// SendMessage posts a message and returns the server-confirmed record with
// its assigned id.
func (c *Client) SendMessage(ctx context.Context, req chat_dto.SendMessageRequest) (entity.Message, *app_error.AppError) {
	resp, err := doJSON[chat_dto.SendMessageResponse](ctx, c, http.MethodPost, "/messages", req)
	if err != nil {
		return entity.Message{}, err
	}
	return resp.Message, nil
}

// MarkRoomRead acknowledges every unread message in a room. Satisfies
// readstate.Acker.
func (c *Client) MarkRoomRead(ctx context.Context, roomID string) error {
	req := chat_dto.MarkRoomReadRequest{RoomID: roomID}
	if _, err := doJSON[chat_dto.MarkRoomReadResponse](ctx, c, http.MethodPost, "/messages/mark_room_read", req); err != nil {
		return err
	}
	return nil
}

// GetNotifications fetches the notification feed with its unread count.
func (c *Client) GetNotifications(ctx context.Context) (chat_dto.GetNotificationsResponse, *app_error.AppError) {
	return doJSON[chat_dto.GetNotificationsResponse](ctx, c, http.MethodGet, "/notifications", nil)
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) *app_error.AppError {
	_, err := doJSON[any](ctx, c, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/mark_as_read", nil)
	return err
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) *app_error.AppError {
	_, err := doJSON[any](ctx, c, http.MethodPost, "/notifications/mark_all_as_read", nil)
	return err
}

func (c *Client) DeleteNotification(ctx context.Context, id string) *app_error.AppError {
	_, err := doJSON[any](ctx, c, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil)
	return err
}
