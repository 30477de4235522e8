// Package settings provides unified storage for intlbot user settings,
// including provider API keys and translation prompts.
//
// All settings are stored in the XDG data directory:
//
//	$XDG_DATA_HOME/intlbot/  (default: ~/.local/share/intlbot/)
//
// Files stored:
//   - auth.json     Provider API keys
//   - prompts.json  Translation system prompts (customizable by user)
//
// Auth.json format:
// The file is a JSON object keyed by provider ID, where each value carries a
// "type" field ("api") plus the key and an optional custom base URL.
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. Provider-specific environment variable (e.g. OPENAI_API_KEY)
//  3. INTLBOT_API_KEY environment variable
//  4. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "intlbot"
	fileName    = "auth.json"
)

// ---------------------------------------------------------------------------
// Auth entry types
// ---------------------------------------------------------------------------

// Info is the entry stored per provider in auth.json.
type Info struct {
	// Type discriminator; always "api" for entries written by this tool.
	Type string `json:"type"`

	// Key is the provider API key.
	Key string `json:"key,omitempty"`

	// BaseURL is a custom endpoint URL (custom-openai).
	BaseURL string `json:"baseUrl,omitempty"`
}

// IsAPI returns true if this is an API key entry.
func (i *Info) IsAPI() bool {
	return i.Type == "api"
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir returns the XDG data directory for intlbot.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// filePath returns the path to the auth file.
// Default: ~/.local/share/intlbot/auth.json (or $XDG_DATA_HOME/intlbot/auth.json).
func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// PromptsFilePath returns the path to the prompts.json file.
// Default: ~/.local/share/intlbot/prompts.json (or $XDG_DATA_HOME/intlbot/prompts.json).
func PromptsFilePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prompts.json"), nil
}

// DataDir returns the intlbot data directory path.
// Default: ~/.local/share/intlbot (or $XDG_DATA_HOME/intlbot).
func DataDir() (string, error) {
	return dataDir()
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return make(Store)
	}

	if store == nil {
		return make(Store)
	}

	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Delete
// ---------------------------------------------------------------------------

// Get returns the auth entry for a provider, or nil if not found.
func Get(providerID string) *Info {
	store := Load()
	return store[providerID]
}

// Set stores an auth entry for a provider (upsert).
func Set(providerID string, info *Info) error {
	store := Load()
	store[providerID] = info
	return Save(store)
}

// Remove deletes credentials for a provider.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil // Nothing to delete
	}
	delete(store, providerID)
	return Save(store)
}

// ---------------------------------------------------------------------------
// API key helpers
// ---------------------------------------------------------------------------

// SetAPIKey stores an API key for a provider.
func SetAPIKey(providerID, key string) error {
	return Set(providerID, &Info{
		Type: "api",
		Key:  key,
	})
}

// SetAPIKeyWithBaseURL stores an API key and base URL for custom-openai.
func SetAPIKeyWithBaseURL(providerID, key, baseURL string) error {
	return Set(providerID, &Info{
		Type:    "api",
		Key:     key,
		BaseURL: baseURL,
	})
}

// GetAPIKey retrieves the stored API key for a provider.
// Returns empty string if not found or not an API key entry.
func GetAPIKey(providerID string) string {
	info := Get(providerID)
	if info == nil || !info.IsAPI() {
		return ""
	}
	return info.Key
}

// GetBaseURL retrieves the stored base URL for a provider.
// Returns empty string if not found.
func GetBaseURL(providerID string) string {
	info := Get(providerID)
	if info == nil {
		return ""
	}
	return info.BaseURL
}

// EnvVarForProvider returns the provider-specific environment variable
// consulted for an API key, or empty string for providers that need none.
func EnvVarForProvider(providerID string) string {
	switch providerID {
	case "openai", "custom-openai":
		return "OPENAI_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		// ollama and lmstudio are local servers without keys
		return ""
	}
}

// ResolveAPIKey resolves a provider's API key.
// Priority: explicit flag > provider env var > INTLBOT_API_KEY > store.
func ResolveAPIKey(providerID, flagKey string) string {
	if flagKey != "" {
		return flagKey
	}
	if env := EnvVarForProvider(providerID); env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if v := os.Getenv("INTLBOT_API_KEY"); v != "" {
		return v
	}
	return GetAPIKey(providerID)
}

// ---------------------------------------------------------------------------
// Display helpers
// ---------------------------------------------------------------------------

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// RemoveAll removes all stored credentials.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}
