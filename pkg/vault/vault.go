// Package vault exposes the narrow contracts of the credential and cookie
// storage collaborators. The engine seeds a run's browser context from
// saved cookies and writes refreshed cookies back after a successful run;
// credentials are consumed only by the auth recovery collaborator.
// Encryption of the backing store is outside the engine.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Cookie mirrors the browser cookie shape the engine round-trips.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CookieStore supplies saved cookies for a flow and receives the updated
// set after a successful run.
type CookieStore interface {
	Cookies(flowName string) ([]Cookie, error)
	SaveCookies(flowName string, cookies []Cookie) error
}

// Credentials is consumed by the login sub-flow, never by the engine
// directly.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialStore resolves credentials for a flow's login sub-flow.
type CredentialStore interface {
	Credentials(flowName string) (Credentials, error)
}

// FileCookieStore is a plain JSON-on-disk CookieStore, one file per flow.
type FileCookieStore struct {
	root string
}

// NewFileCookieStore creates a cookie store rooted at dir.
func NewFileCookieStore(dir string) (*FileCookieStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("vault: init cookie directory %s: %w", dir, err)
	}
	return &FileCookieStore{root: dir}, nil
}

func (s *FileCookieStore) pathFor(flowName string) (string, error) {
	if flowName == "" || strings.ContainsAny(flowName, "/\\") {
		return "", fmt.Errorf("vault: invalid flow name %q", flowName)
	}
	return filepath.Join(s.root, flowName+".cookies.json"), nil
}

// Cookies returns the saved cookies for a flow; no saved file means an
// empty set, not an error.
func (s *FileCookieStore) Cookies(flowName string) ([]Cookie, error) {
	path, err := s.pathFor(flowName)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("vault: read cookies for %s: %w", flowName, err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("vault: decode cookies for %s: %w", flowName, err)
	}
	return cookies, nil
}

// SaveCookies replaces the saved cookie set for a flow.
func (s *FileCookieStore) SaveCookies(flowName string, cookies []Cookie) error {
	path, err := s.pathFor(flowName)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: encode cookies for %s: %w", flowName, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("vault: write cookies for %s: %w", flowName, err)
	}
	return nil
}
