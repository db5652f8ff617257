package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
)

type IChatService interface {
	ListUsers(userID string) ([]domain.User, error)
	GetConversation(userID, otherID string) ([]event.Envelope, error)
	SendMessage(ctx context.Context, senderID, receiverID string, req SendMessageRequest) (event.Envelope, error)
	DeleteConversation(ctx context.Context, userID, otherID string) (int, error)
	Search(ctx context.Context, userID, otherID, query string) ([]event.Envelope, error)
}

type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// ChatService runs the REST side of a conversation. Every live push happens
// only after the Message Store accepted the change.
type ChatService struct {
	log         *slog.Logger
	users       repositories.IUserRepository
	messages    repositories.IMessageRepository
	index       repositories.ISearchIndex
	media       contract.MediaStore
	moderator   contract.TextModerator
	dispatcher  contract.IDispatcher
	searchLimit int
	maxText     int
}

func NewChatService(
	log *slog.Logger,
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	index repositories.ISearchIndex,
	media contract.MediaStore,
	moderator contract.TextModerator,
	dispatcher contract.IDispatcher,
	searchLimit int,
	maxText int,
) *ChatService {
	return &ChatService{
		log:         log,
		users:       users,
		messages:    messages,
		index:       index,
		media:       media,
		moderator:   moderator,
		dispatcher:  dispatcher,
		searchLimit: searchLimit,
		maxText:     maxText,
	}
}

// ListUsers returns everybody but the caller, to pick a counterpart from.
func (s *ChatService) ListUsers(userID string) ([]domain.User, error) {
	return s.users.ListUsers(userID)
}

// GetConversation is the pull path: offline users catch up through it.
func (s *ChatService) GetConversation(userID, otherID string) ([]event.Envelope, error) {
	messages, err := s.messages.GetConversation(userID, otherID)
	if err != nil {
		return nil, err
	}
	return toEnvelopes(messages), nil
}

// SendMessage uploads the optional image, moderates the text, persists the
// message and only then dispatches it. A failed upload creates nothing.
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID string, req SendMessageRequest) (event.Envelope, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.Image == "" {
		return event.Envelope{}, errors.ErrEmptyMessage
	}
	if length := utf8.RuneCountInString(text); s.maxText > 0 && length > s.maxText {
		return event.Envelope{}, fmt.Errorf("%w: text has %d characters, maximum is %d", errors.ErrInvalidRequest, length, s.maxText)
	}
	if _, err := s.users.GetUserByID(receiverID); err != nil {
		return event.Envelope{}, err
	}

	var image *string
	if req.Image != "" {
		url, err := s.media.Upload(ctx, req.Image)
		if err != nil {
			s.log.Error("Image upload failed", "sender_id", senderID, "error", err)
			return event.Envelope{}, err
		}
		image = lo.ToPtr(url)
	}

	message, err := s.messages.Create(senderID, receiverID, s.moderator.Moderate(text), image)
	if err != nil {
		s.log.Error("Message store failed", "sender_id", senderID, "receiver_id", receiverID, "error", err)
		return event.Envelope{}, err
	}

	if err = s.index.Index(message); err != nil {
		s.log.Warn("Message not indexed", "message_id", message.ID, "error", err)
	}

	env := event.NewEnvelope(message)
	s.dispatcher.Dispatch(env)
	return env, nil
}

// DeleteConversation clears both directions and notifies both participants.
func (s *ChatService) DeleteConversation(ctx context.Context, userID, otherID string) (int, error) {
	deleted, err := s.messages.DeleteConversation(userID, otherID)
	if err != nil {
		s.log.Error("Conversation deletion failed", "user_id", userID, "chat_with", otherID, "error", err)
		return 0, err
	}

	if _, err = s.index.DeleteConversation(ctx, userID, otherID); err != nil {
		s.log.Warn("Conversation not unindexed", "user_id", userID, "chat_with", otherID, "error", err)
	}

	s.dispatcher.DispatchDeletion(event.NewConversationDeleted(userID, otherID, time.Now()))
	s.log.Info("Conversation deleted", "user_id", userID, "chat_with", otherID, "deleted", deleted)
	return deleted, nil
}

// Search returns the matching messages of the conversation, best match first.
func (s *ChatService) Search(ctx context.Context, userID, otherID, query string) ([]event.Envelope, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", errors.ErrInvalidRequest)
	}

	ids, err := s.index.Search(ctx, userID, otherID, query, s.searchLimit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []event.Envelope{}, nil
	}

	messages, err := s.messages.GetConversation(userID, otherID)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(messages, func(m domain.Message) string { return m.ID.String() })

	// The index may still hold ids of messages gone from the store
	found := lo.FilterMap(ids, func(id string, _ int) (domain.Message, bool) {
		m, ok := byID[id]
		return m, ok
	})
	return toEnvelopes(found), nil
}

func toEnvelopes(messages []domain.Message) []event.Envelope {
	envelopes := make([]event.Envelope, 0, len(messages))
	for _, m := range messages {
		envelopes = append(envelopes, event.NewEnvelope(m))
	}
	return envelopes
}
