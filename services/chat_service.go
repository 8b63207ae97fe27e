package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
	"github.com/Trabajadores202/work-flow-connect-80-89/moderation"
)

type IChatService interface {
	Send(ctx context.Context, authorID, conversationID, body string) (domain.Message, error)
	Edit(ctx context.Context, principalID, messageID, body string) (domain.Message, error)
	Delete(ctx context.Context, principalID, messageID string) (domain.Message, error)
	SendAttachment(ctx context.Context, authorID string, p event.SendAttachmentPayload) (domain.Message, error)
	MarkRead(ctx context.Context, principalID, messageID string) (domain.Message, error)
	ConversationsOf(principalID string) ([]domain.Conversation, error)
	Messages(conversationID, principalID string) ([]domain.Message, error)
	Attachment(principalID, attachmentID string) (domain.Attachment, []byte, error)
}

// ChatService executes the domain operations behind the event router and
// the REST fallback. Every successful mutation hands its outbound event to
// the notifier before returning; the caller gets no other acknowledgment.
type ChatService struct {
	log              *slog.Logger
	store            contract.Store
	notifier         contract.Notifier
	moderator        *moderation.Moderator
	maxContentLength int
	maxAttachment    int
}

func NewChatService(
	log *slog.Logger,
	store contract.Store,
	notifier contract.Notifier,
	moderator *moderation.Moderator,
	maxContentLength, maxAttachment int,
) *ChatService {
	return &ChatService{
		log:              log,
		store:            store,
		notifier:         notifier,
		moderator:        moderator,
		maxContentLength: maxContentLength,
		maxAttachment:    maxAttachment,
	}
}

// Send persists a message and fans it out to the present participants.
// A non-participant gets Forbidden without learning whether the
// conversation exists.
func (s *ChatService) Send(ctx context.Context, authorID, conversationID, body string) (domain.Message, error) {
	if err := s.checkParticipant(conversationID, authorID); err != nil {
		return domain.Message{}, err
	}
	if len(body) > s.maxContentLength {
		return domain.Message{}, fmt.Errorf("%w: body exceeds %d bytes", apperrors.ErrValidation, s.maxContentLength)
	}

	msg := s.newMessage(authorID, conversationID, body)
	if err := s.store.CreateMessage(msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	if err := s.store.TouchConversation(conversationID, msg.CreatedAt); err != nil {
		s.log.Error("Conversation touch failed", "conversation_id", conversationID, "error", err)
	}

	s.notifier.Notify(event.MessageCreated(msg))
	return msg, nil
}

// Edit updates the body of an existing message. Only the author may edit;
// a deleted message can no longer be edited.
func (s *ChatService) Edit(ctx context.Context, principalID, messageID, body string) (domain.Message, error) {
	msg, err := s.loadOwnMessage(principalID, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if len(body) > s.maxContentLength {
		return domain.Message{}, fmt.Errorf("%w: body exceeds %d bytes", apperrors.ErrValidation, s.maxContentLength)
	}

	msg.Body = s.moderator.Censor(body)
	msg.Lang = detectLang(msg.Body)
	msg.Edited = true
	msg.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateMessage(msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}

	s.notifier.Notify(event.MessageUpdated(msg))
	return msg, nil
}

// Delete marks the message deleted. The row and body stay on disk for
// audit but never leave the server in plain form again. A second delete
// is idempotent: no error, no duplicate event.
func (s *ChatService) Delete(ctx context.Context, principalID, messageID string) (domain.Message, error) {
	msg, err := s.loadMessage(principalID, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if msg.AuthorID != principalID {
		return domain.Message{}, apperrors.ErrForbidden
	}
	if msg.Deleted {
		return msg, nil
	}

	msg.Deleted = true
	msg.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateMessage(msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}

	s.notifier.Notify(event.MessageDeleted(msg))
	return msg, nil
}

// SendAttachment decodes the self-describing envelope, stores the blob,
// then proceeds exactly like Send with a message referencing the
// attachment id.
func (s *ChatService) SendAttachment(ctx context.Context, authorID string, p event.SendAttachmentPayload) (domain.Message, error) {
	if err := s.checkParticipant(p.ConversationID, authorID); err != nil {
		return domain.Message{}, err
	}

	contentType, data, err := decodeAttachmentEnvelope(p.ContentType, p.EncodedData)
	if err != nil {
		return domain.Message{}, err
	}
	if len(data) > s.maxAttachment {
		return domain.Message{}, fmt.Errorf("%w: attachment exceeds %d bytes", apperrors.ErrValidation, s.maxAttachment)
	}

	attachmentID, err := s.store.SaveAttachment(data, domain.Attachment{
		ConversationID: p.ConversationID,
		Filename:       p.Filename,
		ContentType:    contentType,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}

	msg := s.newMessage(authorID, p.ConversationID, p.Filename)
	msg.AttachmentID = attachmentID
	if err := s.store.CreateMessage(msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	if err := s.store.TouchConversation(p.ConversationID, msg.CreatedAt); err != nil {
		s.log.Error("Conversation touch failed", "conversation_id", p.ConversationID, "error", err)
	}

	s.notifier.Notify(event.MessageCreated(msg))
	return msg, nil
}

// MarkRead flips the read flag and pushes the refreshed message to the
// author's channels so their unread indicators settle.
func (s *ChatService) MarkRead(ctx context.Context, principalID, messageID string) (domain.Message, error) {
	msg, err := s.loadMessage(principalID, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.checkParticipant(msg.ConversationID, principalID); err != nil {
		return domain.Message{}, err
	}
	if msg.Read {
		return msg, nil
	}

	msg.Read = true
	msg.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateMessage(msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}

	s.notifier.NotifyPrincipal(msg.AuthorID, event.KindMessageUpdated, msg.Redacted())
	return msg, nil
}

func (s *ChatService) ConversationsOf(principalID string) ([]domain.Conversation, error) {
	conversations, err := s.store.GetConversationsOf(principalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return conversations, nil
}

// Messages returns the conversation history in creation order, with
// deleted entries redacted.
func (s *ChatService) Messages(conversationID, principalID string) ([]domain.Message, error) {
	if err := s.checkParticipant(conversationID, principalID); err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return lo.Map(messages, func(m domain.Message, _ int) domain.Message {
		return m.Redacted()
	}), nil
}

// Attachment returns a stored blob to a participant of the conversation
// it was posted in. Once the referencing message is deleted the
// attachment is gone from the outside, like the message body.
func (s *ChatService) Attachment(principalID, attachmentID string) (domain.Attachment, []byte, error) {
	meta, data, err := s.store.GetAttachment(attachmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Attachment{}, nil, apperrors.ErrNotFound
		}
		return domain.Attachment{}, nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	if err := s.checkParticipant(meta.ConversationID, principalID); err != nil {
		return domain.Attachment{}, nil, err
	}

	messages, err := s.store.GetMessages(meta.ConversationID)
	if err != nil {
		return domain.Attachment{}, nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	for _, m := range messages {
		if m.AttachmentID == attachmentID && !m.Deleted {
			return meta, data, nil
		}
	}
	// Unreferenced: either the message was logically deleted or the blob
	// never got its message. Indistinguishable from absent.
	return domain.Attachment{}, nil, apperrors.ErrNotFound
}

func (s *ChatService) newMessage(authorID, conversationID, body string) domain.Message {
	now := time.Now().UTC()
	body = s.moderator.Censor(body)
	return domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		AuthorID:       authorID,
		Body:           body,
		Lang:           detectLang(body),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// checkParticipant maps both "not a participant" and "no such
// conversation" to Forbidden so non-participants cannot probe for
// conversation existence.
func (s *ChatService) checkParticipant(conversationID, principalID string) error {
	ok, err := s.store.IsParticipant(conversationID, principalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrForbidden
		}
		return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	if !ok {
		return apperrors.ErrForbidden
	}
	return nil
}

func (s *ChatService) loadMessage(principalID, messageID string) (domain.Message, error) {
	msg, err := s.store.GetMessageByID(messageID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Message{}, apperrors.ErrForbidden
		}
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return msg, nil
}

func (s *ChatService) loadOwnMessage(principalID, messageID string) (domain.Message, error) {
	msg, err := s.loadMessage(principalID, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if msg.AuthorID != principalID || msg.Deleted {
		return domain.Message{}, apperrors.ErrForbidden
	}
	return msg, nil
}

func detectLang(body string) string {
	info := whatlanggo.Detect(body)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}

// decodeAttachmentEnvelope accepts either "media/type;base64,DATA" or a
// bare base64 string accompanied by an explicit content type. When no
// media type is supplied anywhere, the decoded bytes are sniffed.
func decodeAttachmentEnvelope(contentType, encoded string) (string, []byte, error) {
	raw := encoded
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		if contentType == "" {
			contentType = strings.TrimPrefix(encoded[:idx], "data:")
		}
		raw = encoded[idx+len(";base64,"):]
	} else if contentType == "" {
		return "", nil, apperrors.ErrMalformedAttachment
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedAttachment, err)
	}
	if contentType == "" || !strings.Contains(contentType, "/") {
		contentType = mimetype.Detect(data).String()
	}
	return contentType, data, nil
}
