package repositories

import (
	"chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	created, err := repository.CreateUser("Alice Liddell", "alice@example.com", "hash")
	req.NoError(err)
	req.NotEmpty(created.ID)

	byEmail, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(created, byEmail)

	byID, err := repository.GetUserByID(created.ID)
	req.NoError(err)
	req.Equal(created, byID)
	req.Equal("hash", byID.PasswordHash)
}

func TestUserRepository_Create_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.CreateUser("Alice", "alice@example.com", "hash")
	req.NoError(err)

	_, err = repository.CreateUser("Other Alice", "alice@example.com", "hash2")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.GetUserByID("missing")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.UpdateProfilePic("missing", "http://media/x.png")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserRepository_ListUsers_Excludes_Caller(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	alice, err := repository.CreateUser("Alice", "alice@example.com", "h")
	req.NoError(err)
	bob, err := repository.CreateUser("Bob", "bob@example.com", "h")
	req.NoError(err)
	carol, err := repository.CreateUser("Carol", "carol@example.com", "h")
	req.NoError(err)

	users, err := repository.ListUsers(alice.ID)
	req.NoError(err)

	req.Len(users, 2)
	req.ElementsMatch([]string{bob.ID, carol.ID}, []string{users[0].ID, users[1].ID})
}

func TestUserRepository_UpdateProfilePic(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	alice, err := repository.CreateUser("Alice", "alice@example.com", "h")
	req.NoError(err)

	updated, err := repository.UpdateProfilePic(alice.ID, "http://media/alice.png")
	req.NoError(err)
	req.Equal("http://media/alice.png", updated.ProfilePic)
	req.False(updated.UpdatedAt.Before(alice.UpdatedAt))

	fetched, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal("http://media/alice.png", fetched.ProfilePic)
}
