package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"repurposer/domain/model"
	"repurposer/infrastructure/logger"
)

var ErrInvalidKey = errors.New("invalid media key")

// LocalStore keeps uploads on disk under root. PublicBaseURL, when set, is
// where a reverse proxy serves root from.
type LocalStore struct {
	root          string
	publicBaseURL string
}

func NewLocalStore(root, publicBaseURL string) *LocalStore {
	if root == "" {
		root = "media"
	}
	return &LocalStore{root: root, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(p, os.O_RDONLY, 0o644)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("key", key).Error("Error while open media file")
		return nil, err
	}
	return file, nil
}

func (s *LocalStore) Save(_ context.Context, key, contentType string, r io.Reader) (*model.MediaRef, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("key", key).Error("Error while create media file")
		return nil, err
	}
	defer file.Close()
	if _, err := io.Copy(file, r); err != nil {
		return nil, err
	}
	ref := &model.MediaRef{Key: key, ContentType: contentType}
	if s.publicBaseURL != "" {
		ref.PublicURL = s.publicBaseURL + "/" + strings.TrimLeft(key, "/")
	}
	return ref, nil
}
