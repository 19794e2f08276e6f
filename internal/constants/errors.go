package constants

import "errors"

// Configuration errors.
var (
	ErrNoClientID       = errors.New("client secrets file must have a \"client_id\" field")
	ErrNoClientSecret   = errors.New("client secrets file must have a \"client_secret\" field")
	ErrNoRefreshToken   = errors.New("token file must have a \"refresh_token\" field")
	ErrNoSecretsPath    = errors.New("no secrets path configured")
	ErrOutputFormat     = errors.New("output format must be json, yaml or table")
	ErrActivityIDNumber = errors.New("activity ID must be a number")
	ErrTimeFormat       = errors.New("time must be YYYY-MM-DD, RFC3339, or a unix epoch")
)
