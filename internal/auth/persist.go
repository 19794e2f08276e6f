package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/velodata-io/strava/internal/constants"
	"github.com/velodata-io/strava/pkg/strava"
)

// ClientSecrets is the durable client identity.
type ClientSecrets struct {
	ClientID     int64  `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// tokenFile is the on-disk shape of the ephemeral credentials.
type tokenFile struct {
	RefreshToken   string `json:"refresh_token"`
	AccessToken    string `json:"access_token,omitempty"`
	ExpirationTime int64  `json:"expiration_time,omitempty"`
}

// LoadClientSecrets reads the client identity file.
func LoadClientSecrets(path string) (*ClientSecrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &strava.ConfigError{Path: path, Err: err}
	}

	var secrets ClientSecrets

	err = json.Unmarshal(data, &secrets)
	if err != nil {
		return nil, &strava.ConfigError{Path: path, Err: err}
	}

	if secrets.ClientID == 0 {
		return nil, &strava.ConfigError{Path: path, Err: constants.ErrNoClientID}
	}

	if secrets.ClientSecret == "" {
		return nil, &strava.ConfigError{Path: path, Err: constants.ErrNoClientSecret}
	}

	return &secrets, nil
}

// SaveClientSecrets writes the client identity file.
func SaveClientSecrets(path string, secrets *ClientSecrets) error {
	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding client secrets: %w", err)
	}

	err = writeFileAtomic(path, data, constants.SecretsFilePerm)
	if err != nil {
		return fmt.Errorf("writing client secrets: %w", err)
	}

	return nil
}

// LoadTokenFile reads the persisted token. A file holding only a refresh
// token is valid; the access token is then retrieved on first use.
func LoadTokenFile(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &strava.ConfigError{Path: path, Err: err}
	}

	var file tokenFile

	err = json.Unmarshal(data, &file)
	if err != nil {
		return nil, &strava.ConfigError{Path: path, Err: err}
	}

	if file.RefreshToken == "" {
		return nil, &strava.ConfigError{Path: path, Err: constants.ErrNoRefreshToken}
	}

	token := &Token{
		AccessToken:  file.AccessToken,
		RefreshToken: file.RefreshToken,
		TokenType:    "bearer",
	}

	if file.ExpirationTime != 0 {
		token.ExpiresAt = time.Unix(file.ExpirationTime, 0)
	}

	return token, nil
}

// FileTokenPersister writes tokens to a JSON file. Every persist rewrites
// the whole file; the write is atomic so a crash never leaves a torn file.
type FileTokenPersister struct {
	Path string
}

// Persist implements TokenPersister.
func (p *FileTokenPersister) Persist(token *Token) error {
	if p.Path == "" {
		return constants.ErrNoSecretsPath
	}

	file := tokenFile{
		RefreshToken: token.RefreshToken,
		AccessToken:  token.AccessToken,
	}

	if !token.ExpiresAt.IsZero() {
		file.ExpirationTime = token.ExpiresAt.Unix()
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token file: %w", err)
	}

	err = writeFileAtomic(p.Path, data, constants.SecretsFilePerm)
	if err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, constants.SecretsDirPerm)
	if err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("writing temp file: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("closing temp file: %w", err)
	}

	err = os.Chmod(tmp.Name(), perm)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("setting file mode: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}
