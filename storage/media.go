package storage

import (
	"chat-relay/contract"
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var _ contract.MediaStore = (*DiskMediaStore)(nil)

// DiskMediaStore writes uploaded images under dir and serves them back
// from baseURL.
type DiskMediaStore struct {
	log      *slog.Logger
	dir      string
	baseURL  string
	maxBytes int64
}

func NewDiskMediaStore(log *slog.Logger, dir, baseURL string, maxBytes int64) (*DiskMediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskMediaStore{
		log:      log,
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Upload accepts a data URL ("data:image/png;base64,...") or raw base64.
// The declared type is ignored: only the sniffed content decides.
func (s *DiskMediaStore) Upload(ctx context.Context, inlineData string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUpload, err)
	}

	data, err := decodeInline(inlineData)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUpload, err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", errors.ErrMediaTooLarge, len(data))
	}

	mime := mimetype.Detect(data)
	if _, ok := mimetypes.Image(mime.String()); !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedMedia, mime.String())
	}

	name := uuid.NewString() + mime.Extension()
	if err = os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUpload, err)
	}

	s.log.Debug("Image stored", "name", name, "mime", mime.String(), "bytes", len(data))
	return s.baseURL + "/" + name, nil
}

func decodeInline(inlineData string) ([]byte, error) {
	payload := strings.TrimSpace(inlineData)
	if strings.HasPrefix(payload, "data:") {
		header, encoded, found := strings.Cut(payload, ",")
		if !found {
			return nil, fmt.Errorf("data url without payload")
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("data url is not base64 encoded")
		}
		payload = encoded
	}
	if payload == "" {
		return nil, fmt.Errorf("empty image")
	}
	return base64.StdEncoding.DecodeString(payload)
}
