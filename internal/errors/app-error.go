package app_error

import (
	"encoding/json"
	"net/http"
)

// Kind classifies a failure by how the sync core recovers from it.
type Kind string

const (
	// KindConnection is a transport-level failure; the polling fallback
	// covers it, nothing is surfaced to the caller.
	KindConnection Kind = "connection"
	// KindProtocol is a malformed frame; logged and dropped.
	KindProtocol Kind = "protocol"
	// KindReconciliation means optimistic local state disagreed with the
	// server; resolved by merge rules, never user-facing.
	KindReconciliation Kind = "reconciliation"
	// KindRequest is a failed REST call; surfaced to the initiating action
	// as retryable.
	KindRequest Kind = "request"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e AppError) Error() string {
	return e.Message
}

func (e AppError) JSON(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(e)
}

func NewAppError(code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Field:   field,
	}
}

func NewConnectionError(msg string) *AppError {
	return &AppError{Code: http.StatusBadGateway, Kind: KindConnection, Message: msg, Field: "transport"}
}

func NewProtocolError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: KindProtocol, Message: msg, Field: "frame"}
}

func NewReconciliationError(msg string) *AppError {
	return &AppError{Code: http.StatusConflict, Kind: KindReconciliation, Message: msg, Field: "merge"}
}

func NewRequestFailure(code int, msg string) *AppError {
	return &AppError{Code: code, Kind: KindRequest, Message: msg, Field: "request"}
}
