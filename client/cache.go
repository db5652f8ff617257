package client

import (
	"chat-relay/domain"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/lo"
)

// SelectionCache persists the selected counterpart between runs. Only the
// id is stored: the profile always comes from a fresh user list.
type SelectionCache struct {
	path string
}

type selection struct {
	SelectedUserID string `json:"selectedUserId"`
}

func NewSelectionCache(path string) *SelectionCache {
	return &SelectionCache{path: path}
}

// Load returns "" when nothing was saved.
func (c *SelectionCache) Load() (string, error) {
	data, err := os.ReadFile(c.path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var s selection
	if err = json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	return s.SelectedUserID, nil
}

func (c *SelectionCache) Save(userID string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(selection{SelectedUserID: userID})
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}

func (c *SelectionCache) Clear() error {
	err := os.Remove(c.path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Restore runs once at startup. The saved selection is kept only if the
// user still appears in the fresh list; otherwise it is cleared.
func (c *SelectionCache) Restore(fresh []domain.PublicUser) (domain.PublicUser, bool, error) {
	saved, err := c.Load()
	if err != nil || saved == "" {
		return domain.PublicUser{}, false, err
	}

	user, found := lo.Find(fresh, func(u domain.PublicUser) bool { return u.ID == saved })
	if !found {
		return domain.PublicUser{}, false, c.Clear()
	}
	return user, true, nil
}
