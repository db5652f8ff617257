//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search_index.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
)

const (
	conversationField = "conversation"
	textField         = "text"
	idField           = "_id"
)

type ISearchIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, a, b, query string, limit int) ([]string, error)
	DeleteConversation(ctx context.Context, a, b string) (int, error)
}

// SearchIndex keeps a full-text index of message texts, one document per
// message, scoped by conversation key.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

func (s *SearchIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(conversationField,
			domain.NewConversation(message.SenderID, message.ReceiverID).Key())).
		AddField(bluge.NewTextField(textField, message.Text))

	batch := bluge.NewBatch()
	batch.Update(doc.ID(), doc)
	return s.writer.Batch(batch)
}

// Search returns the ids of the messages of the a<->b conversation whose text
// matches query, best match first.
func (s *SearchIndex) Search(ctx context.Context, a, b, query string, limit int) ([]string, error) {
	q := bluge.NewBooleanQuery().
		AddMust(conversationQuery(a, b)).
		AddMust(bluge.NewMatchQuery(query).SetField(textField))
	return s.collectIDs(ctx, bluge.NewTopNSearch(limit, q))
}

// DeleteConversation drops every indexed message of the a<->b conversation.
func (s *SearchIndex) DeleteConversation(ctx context.Context, a, b string) (int, error) {
	ids, err := s.collectIDs(ctx, bluge.NewAllMatches(conversationQuery(a, b)))
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	batch := bluge.NewBatch()
	for _, id := range ids {
		batch.Delete(bluge.Identifier(id))
	}
	if err = s.writer.Batch(batch); err != nil {
		return 0, err
	}
	s.log.Debug("Conversation unindexed", "documents", len(ids))
	return len(ids), nil
}

func conversationQuery(a, b string) bluge.Query {
	return bluge.NewTermQuery(domain.NewConversation(a, b).Key()).SetField(conversationField)
}

func (s *SearchIndex) collectIDs(ctx context.Context, request bluge.SearchRequest) ([]string, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close search reader", "error", err)
		}
	}()

	it, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var ids []string
	match, err := it.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				ids = append(ids, string(value))
				return false
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		match, err = it.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}
