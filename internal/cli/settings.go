package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings is the operator's saved CLI context, so game id and endpoint do
// not have to be repeated on every invocation.
type Settings struct {
	APIBaseURL string `json:"api_base_url,omitempty"`
	AdminToken string `json:"admin_token,omitempty"`
	GameID     int64  `json:"game_id,omitempty"`
}

func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".vsim")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func settingsPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

func SaveSettings(s Settings) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

// LoadSettings returns zero settings when no file has been saved yet.
func LoadSettings() (Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return Settings{}, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(body, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
