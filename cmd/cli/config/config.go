package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultAPIURL = "http://localhost:8080"

	envAPIURL      = "INKDROP_API_URL"
	envSessionFile = "INKDROP_SESSION_FILE"
)

// ErrNoSession is returned by LoadSession when nobody is logged in.
var ErrNoSession = errors.New("not logged in")

// APIURL returns the base URL for the InkDrop API.
// It can be overridden with the INKDROP_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv(envAPIURL); v != "" {
		return v
	}
	return defaultAPIURL
}

// Session is the token pair kept between CLI invocations.
type Session struct {
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionPath is ~/.inkdrop/session.json unless INKDROP_SESSION_FILE is set.
func SessionPath() string {
	if v := os.Getenv(envSessionFile); v != "" {
		return v
	}
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".inkdrop", "session.json")
}

func SaveSession(s Session) error {
	path := SessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func LoadSession() (Session, error) {
	var s Session
	data, err := os.ReadFile(SessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return s, ErrNoSession
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("corrupt session file %s: %w", SessionPath(), err)
	}
	if s.AccessToken == "" && s.RefreshToken == "" {
		return s, ErrNoSession
	}
	return s, nil
}

// ClearSession removes the session file. A missing file is not an error.
func ClearSession() error {
	err := os.Remove(SessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
