package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	PlayerID   string
	PlayerName string
	PlayerFile string
	Output     string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("KARALAMA_SERVER", "http://localhost:8080"),
		PlayerID:   os.Getenv("KARALAMA_PLAYER"),
		PlayerName: os.Getenv("KARALAMA_NAME"),
		PlayerFile: getEnvOrDefault("KARALAMA_PLAYER_FILE", defaultPlayerFile()),
		Output:     "text",
		Verbose:    false,
	}
}

// identity is the locally persisted player identity
type identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnsureIdentity fills in the player identity, loading it from the player
// file and minting a fresh ID on first use. Flags and env win over the file.
func (c *Config) EnsureIdentity() error {
	var stored identity
	if data, err := os.ReadFile(c.PlayerFile); err == nil {
		_ = json.Unmarshal(data, &stored)
	} else if !os.IsNotExist(err) {
		return err
	}

	if c.PlayerID == "" {
		c.PlayerID = stored.ID
	}
	if c.PlayerName == "" {
		c.PlayerName = stored.Name
	}

	changed := false
	if c.PlayerID == "" {
		c.PlayerID = uuid.NewString()
		changed = true
	}
	if c.PlayerName == "" {
		c.PlayerName = "anon-" + c.PlayerID[:8]
		changed = true
	}

	if changed || stored.ID != c.PlayerID || stored.Name != c.PlayerName {
		return c.saveIdentity()
	}
	return nil
}

func (c *Config) saveIdentity() error {
	dir := filepath.Dir(c.PlayerFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.Marshal(identity{ID: c.PlayerID, Name: c.PlayerName})
	if err != nil {
		return err
	}
	return os.WriteFile(c.PlayerFile, data, 0600)
}

func defaultPlayerFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".karalama-player.json"
	}
	return filepath.Join(home, ".karalama", "player.json")
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
