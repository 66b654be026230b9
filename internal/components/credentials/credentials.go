// Package credentials stores the account email and password on disk.
//
// The password is obfuscated with a fixed key, which only keeps it from being
// read at a glance. Anyone holding the file can recover the password, so the
// account used here should be a throwaway one.
package credentials

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"galerts/pkg/configutil"
	"os"
	"path/filepath"
)

const (
	configFile = "config.json"
	sessionDb  = "session.db"

	obfuscationKey = "ru7sll3uQrGtDPcIW3okutpFLo6YYtd5bWSpbZJIopYQ0Du0a1WlhvJOaZEH"
)

var ErrNotConfigured = fmt.Errorf("no credentials configured, run `galerts setup` first")

// DefaultDir is ~/.config/google_alerts unless GALERTS_CONFIG_DIR is set.
func DefaultDir() (string, error) {
	if dir := os.Getenv("GALERTS_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "google_alerts"), nil
}

// SessionPath is where the session store lives inside a config directory.
func SessionPath(dir string) string {
	return filepath.Join(dir, sessionDb)
}

// Obfuscate shifts every byte of p by the matching key byte and encodes the
// result as url-safe base64.
func Obfuscate(p string) string {
	out := make([]byte, len(p))
	for i := 0; i < len(p); i++ {
		out[i] = p[i] + obfuscationKey[i%len(obfuscationKey)]
	}
	return base64.URLEncoding.EncodeToString(out)
}

// Deobfuscate reverses Obfuscate.
func Deobfuscate(s string) (string, error) {
	encoded, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode password: %w", err)
	}
	out := make([]byte, len(encoded))
	for i := 0; i < len(encoded); i++ {
		out[i] = encoded[i] - obfuscationKey[i%len(obfuscationKey)]
	}
	return string(out), nil
}

type Credentials struct {
	Email    string
	Password string
}

type fileFormat struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Store reads and writes config.json in a config directory.
type Store struct {
	dir string
}

func NewStore(dir string) Store {
	return Store{dir: dir}
}

func (s Store) Dir() string {
	return s.dir
}

func (s Store) path() string {
	return filepath.Join(s.dir, configFile)
}

func (s Store) Load() (Credentials, error) {
	cfg, err := configutil.ReadConfig[fileFormat](s.path())
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, ErrNotConfigured
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	if cfg.Email == "" || cfg.Password == "" {
		return Credentials{}, ErrNotConfigured
	}

	password, err := Deobfuscate(cfg.Password)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Email: cfg.Email, Password: password}, nil
}

func (s Store) Save(creds Credentials) error {
	err := os.MkdirAll(s.dir, 0700)
	if err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	contents, err := json.MarshalIndent(fileFormat{
		Email:    creds.Email,
		Password: Obfuscate(creds.Password),
	}, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), contents, 0600)
}
