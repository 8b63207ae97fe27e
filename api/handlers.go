// Package api exposes the REST surface: account lifecycle, the
// synchronization fallback clients use while their live channel is down,
// and the websocket endpoint itself.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
	"github.com/Trabajadores202/work-flow-connect-80-89/observability"
	"github.com/Trabajadores202/work-flow-connect-80-89/repositories"
	"github.com/Trabajadores202/work-flow-connect-80-89/services"
)

type Handlers struct {
	log     *slog.Logger
	auth    services.IAuthService
	chat    services.IChatService
	store   *repositories.Store
	metrics *observability.Collector
}

func NewHandlers(
	log *slog.Logger,
	auth services.IAuthService,
	chat services.IChatService,
	store *repositories.Store,
	metrics *observability.Collector,
) *Handlers {
	return &Handlers{log: log, auth: auth, chat: chat, store: store, metrics: metrics}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.ErrValidation)
		return
	}
	token, user, err := h.auth.Register(body.Email, body.Name, body.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sessionResponse{Token: string(token), User: user})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.ErrValidation)
		return
	}
	token, user, err := h.auth.Login(body.Email, body.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sessionResponse{Token: string(token), User: user})
}

type createConversationRequest struct {
	Name           string   `json:"name,omitempty"`
	IsGroup        bool     `json:"isGroup"`
	ParticipantIDs []string `json:"participantIds"`
}

// CreateConversation registers a direct or group conversation. The
// creator is always a participant, listed or not.
func (h *Handlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var body createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.ErrValidation)
		return
	}

	participants := lo.Uniq(append(body.ParticipantIDs, principal.ID))
	if !body.IsGroup && len(participants) != 2 {
		h.writeError(w, apperrors.ErrValidation)
		return
	}
	if body.IsGroup && body.Name == "" {
		h.writeError(w, apperrors.ErrValidation)
		return
	}

	now := time.Now().UTC()
	conversation := domain.Conversation{
		ID:             uuid.NewString(),
		Name:           body.Name,
		IsGroup:        body.IsGroup,
		ParticipantIDs: participants,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := h.store.CreateConversation(conversation); err != nil {
		h.writeError(w, apperrors.ErrStorageUnavailable)
		return
	}
	h.writeJSON(w, http.StatusCreated, conversation)
}

func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	h.metrics.FallbackRequest()

	conversations, err := h.chat.ConversationsOf(principal.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, conversations)
}

func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	h.metrics.FallbackRequest()

	messages, err := h.chat.Messages(chi.URLParam(r, "id"), principal.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messages)
}

type postMessageRequest struct {
	Body string `json:"body"`
}

// PostMessage is the delivery fallback: a client whose live channel is
// down can still send. The message fans out to present participants the
// same way a channel send does.
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	h.metrics.FallbackRequest()

	var body postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Body == "" {
		h.writeError(w, apperrors.ErrValidation)
		return
	}

	message, err := h.chat.Send(r.Context(), principal.ID, chi.URLParam(r, "id"), body.Body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, message)
}

func (h *Handlers) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	message, err := h.chat.MarkRead(r.Context(), principal.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, message.Redacted())
}

// GetAttachment streams a stored attachment back to a participant of the
// conversation it was posted in. Outsiders get Forbidden; attachments of
// deleted messages read as absent.
func (h *Handlers) GetAttachment(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	meta, data, err := h.chat.Attachment(principal.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+meta.Filename+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Response encoding failed", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrMalformedAttachment),
		errors.Is(err, apperrors.ErrInvalidPassword):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrAuth),
		errors.Is(err, apperrors.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, map[string]string{"error": publicError(err, status)})
}

// publicError keeps internals out of 5xx bodies.
func publicError(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
