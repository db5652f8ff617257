//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	Create(senderID, receiverID, text string, image *string) (domain.Message, error)
	GetConversation(a, b string) ([]domain.Message, error)
	DeleteConversation(a, b string) (int, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored form of a domain.Message.
type diskMessage struct {
	ID         string  `json:"id"`
	SenderID   string  `json:"senderId"`
	ReceiverID string  `json:"receiverId"`
	Text       string  `json:"text"`
	Image      *string `json:"image,omitempty"`
	CreatedAt  int64   `json:"createdAt"`
	UpdatedAt  int64   `json:"updatedAt"`
}

func conversationPrefix(a, b string) string {
	return fmt.Sprintf("%s%s:", MessagePrefix, domain.NewConversation(a, b).Key())
}

// messageKey is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}":
//  1. Both directions of a conversation share the same prefix.
//  2. The 19-digit zero padding keeps lexicographical order chronological.
//  3. The UUID disambiguates two messages created on the same nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		conversationPrefix(m.SenderID, m.ReceiverID),
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

// Create persists a new message and returns it with its id and timestamps.
func (m *MessageRepository) Create(senderID, receiverID, text string, image *string) (domain.Message, error) {
	now := time.Now().UTC()
	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetConversation returns the messages exchanged between a and b, in either
// direction, oldest first. With limitMessages set only the most recent ones
// are kept.
func (m *MessageRepository) GetConversation(a, b string) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(a, b))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Start from the newest possible key and walk back in time
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			var stored diskMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			})
			if err != nil {
				return err
			}
			message, err := toMessage(stored)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

// DeleteConversation removes every message between a and b and returns how
// many were removed.
func (m *MessageRepository) DeleteConversation(a, b string) (int, error) {
	var keys [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(a, b))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	wb := m.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err = wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err = wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:         message.ID.String(),
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Text:       message.Text,
		Image:      message.Image,
		CreatedAt:  message.CreatedAt.UnixNano(),
		UpdatedAt:  message.UpdatedAt.UnixNano(),
	}
}

func toMessage(stored diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         parsedID,
		SenderID:   stored.SenderID,
		ReceiverID: stored.ReceiverID,
		Text:       stored.Text,
		Image:      stored.Image,
		CreatedAt:  time.Unix(0, stored.CreatedAt).UTC(),
		UpdatedAt:  time.Unix(0, stored.UpdatedAt).UTC(),
	}, nil
}
