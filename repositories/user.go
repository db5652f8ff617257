//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(fullName, email, hashedPassword string) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
	GetUserByID(id string) (domain.User, error)
	ListUsers(excludeID string) ([]domain.User, error)
	UpdateProfilePic(id, url string) (domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

const (
	userPrefix  = "user:"
	emailPrefix = "email:"
)

// diskUser is the stored form of a domain.User, under "user:{id}".
// "email:{email}" points back to the id.
type diskUser struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	ProfilePic   string `json:"profilePic"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// CreateUser persists a user whose password was already hashed.
// An email can only be registered once.
func (u *UserRepository) CreateUser(fullName, email, hashedPassword string) (domain.User, error) {
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.New().String(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(emailPrefix + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey, []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(userPrefix+user.ID), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(emailPrefix + email))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = getUser(txn, string(id))
		return err
	})
	return user, notFound(err)
}

func (u *UserRepository) GetUserByID(id string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) (err error) {
		user, err = getUser(txn, id)
		return err
	})
	return user, notFound(err)
}

// ListUsers returns every user except excludeID.
func (u *UserRepository) ListUsers(excludeID string) ([]domain.User, error) {
	users := make([]domain.User, 0)
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored diskUser
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			})
			if err != nil {
				return err
			}
			if stored.ID == excludeID {
				continue
			}
			users = append(users, toUser(stored))
		}
		return nil
	})
	return users, err
}

func (u *UserRepository) UpdateProfilePic(id, url string) (domain.User, error) {
	var user domain.User
	err := u.db.Update(func(txn *badger.Txn) error {
		current, err := getUser(txn, id)
		if err != nil {
			return err
		}
		current.ProfilePic = url
		current.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(fromUser(current))
		if err != nil {
			return err
		}
		if err = txn.Set([]byte(userPrefix+id), data); err != nil {
			return err
		}
		user = current
		return nil
	})
	return user, notFound(err)
}

func getUser(txn *badger.Txn, id string) (domain.User, error) {
	item, err := txn.Get([]byte(userPrefix + id))
	if err != nil {
		return domain.User{}, err
	}
	var stored diskUser
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(stored), nil
}

func notFound(err error) error {
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

func fromUser(user domain.User) diskUser {
	return diskUser{
		ID:           user.ID,
		FullName:     user.FullName,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		ProfilePic:   user.ProfilePic,
		CreatedAt:    user.CreatedAt.UnixNano(),
		UpdatedAt:    user.UpdatedAt.UnixNano(),
	}
}

func toUser(stored diskUser) domain.User {
	return domain.User{
		ID:           stored.ID,
		FullName:     stored.FullName,
		Email:        stored.Email,
		PasswordHash: stored.PasswordHash,
		ProfilePic:   stored.ProfilePic,
		CreatedAt:    time.Unix(0, stored.CreatedAt).UTC(),
		UpdatedAt:    time.Unix(0, stored.UpdatedAt).UTC(),
	}
}
