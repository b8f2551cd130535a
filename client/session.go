package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/sketchpond/api"
)

// Session is the artist state a client keeps between runs.
type Session struct {
	ArtistName string `yaml:"artist_name"`
	UserID     int64  `yaml:"user_id"`
}

// DefaultSessionPath returns the per-user session file location.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "sketchpond", "session.yaml")
}

// LoadSession reads a session file. A missing file yields an empty session.
func LoadSession(path string) (Session, error) {
	var s Session
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading session: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing session: %w", err)
	}
	return s, nil
}

// Save writes the session file, creating its directory.
func (s Session) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Request builds a submission for this session.
func (s Session) Request(imageData string) api.SubmitRequest {
	req := api.SubmitRequest{ArtistName: s.ArtistName, ImageData: imageData}
	if s.UserID != 0 {
		id := s.UserID
		req.UserID = &id
	}
	return req
}

// Remember records the user id the server assigned.
func (s *Session) Remember(resp api.SubmitResponse) {
	if resp.Success && resp.UserID != 0 {
		s.UserID = resp.UserID
	}
}
