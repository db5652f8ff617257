//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is the server side of one live real-time connection.
// Push must never block longer than ctx allows; Close is idempotent.
type Connection interface {
	Handle() domain.Handle
	Push(ctx context.Context, e event.Event) error
	Close()
}

type IRegistry interface {
	Register(userID string, conn Connection)
	Unregister(handle domain.Handle)
	LookupLive(userID string) []Connection
	SnapshotOnlineUserIDs() []string
	Connections() []Connection
	Stats() RegistryStats
}

type RegistryStats struct {
	OnlineUsers int `json:"onlineUsers"`
	Connections int `json:"connections"`
}

// PresenceNotifier is told about every registry mutation.
type PresenceNotifier interface {
	Notify()
}

type IDispatcher interface {
	Dispatch(env event.Envelope)
	DispatchDeletion(evt event.ConversationDeleted)
}

// IdentityProvider turns a credential into a trusted user identifier.
type IdentityProvider interface {
	Validate(credential string) (string, error)
}

// MediaStore keeps uploaded images and returns a retrievable URL.
type MediaStore interface {
	Upload(ctx context.Context, inlineData string) (string, error)
}

// TextModerator rewrites a message text before it is persisted.
type TextModerator interface {
	Moderate(text string) string
}
