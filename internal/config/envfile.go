package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// UserEnvFile is the per-user env file, relative to the XDG config home.
const UserEnvFile = "voicecal/voicecal.env"

// LoadEnvFiles loads KEY=VALUE files into the process environment. Variables
// already set in the environment win over file values. Explicit paths must
// exist; when none are given, ./.env and the per-user file are loaded if present.
func LoadEnvFiles(paths ...string) ([]string, error) {
	if len(paths) > 0 {
		if err := godotenv.Load(paths...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
		return paths, nil
	}

	var loaded []string
	candidates := []string{".env"}
	if userFile, err := xdg.SearchConfigFile(UserEnvFile); err == nil {
		candidates = append(candidates, userFile)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("failed to load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}

	return loaded, nil
}

// WriteUserEnv stores values in the per-user env file, merging with any
// existing content, and returns the file path.
func WriteUserEnv(values map[string]string) (string, error) {
	path, err := xdg.ConfigFile(UserEnvFile)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	merged := map[string]string{}
	if existing, err := godotenv.Read(path); err == nil {
		merged = existing
	}
	for k, v := range values {
		merged[k] = v
	}

	content, err := godotenv.Marshal(merged)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}

	// The file holds the refresh token, so it is never readable by others,
	// not even between create and write.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to restrict permissions on %s: %w", path, err)
	}
	if _, err := f.WriteString(content + "\n"); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}
