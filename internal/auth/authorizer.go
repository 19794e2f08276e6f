package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/velodata-io/strava/internal/constants"
	"github.com/velodata-io/strava/pkg/strava"
)

// AuthorizeRequest carries what the consent page needs to know.
type AuthorizeRequest struct {
	ClientID int64
	Scopes   []string
}

// AuthResult is the outcome of a completed authorization flow.
type AuthResult struct {
	Code   string
	Scopes []string
}

// Authorizer obtains an authorization code from the user. Implementations
// block until the user completes (or abandons) the external consent step.
type Authorizer interface {
	Authorize(ctx context.Context, req *AuthorizeRequest) (*AuthResult, error)
}

// LocalAuthorizer opens the hosted consent page in a browser and runs a
// short-lived localhost listener that receives the redirect carrying the
// authorization code and the granted scopes. The wait is bounded and
// cancelable; exactly one inbound redirect is consumed.
type LocalAuthorizer struct {
	// AuthorizeURL is the consent page, e.g. the provider's /oauth/authorize.
	AuthorizeURL string

	// Port for the localhost redirect listener.
	Port int

	// OpenBrowser launches the user's browser at the consent URL. Defaults
	// to printing the URL through the logger so the user can open it.
	OpenBrowser func(url string) error

	// Timeout bounds the wait for the redirect.
	Timeout time.Duration

	Logger strava.Logger
}

// Authorize implements Authorizer.
func (a *LocalAuthorizer) Authorize(ctx context.Context, req *AuthorizeRequest) (*AuthResult, error) {
	logger := a.Logger
	if logger == nil {
		logger = strava.NoopLogger{}
	}

	port := a.Port
	if port == 0 {
		port = constants.CallbackPort
	}

	timeout := a.Timeout
	if timeout == 0 {
		timeout = constants.AuthorizeTimeout
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}

	redirects := make(chan url.Values, 1)

	server := &http.Server{
		ReadHeaderTimeout: constants.TokenExchangeTimeout,
		Handler: http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "text/plain")
			writer.WriteHeader(http.StatusOK)

			if request.Method == http.MethodHead {
				return
			}

			_, _ = writer.Write([]byte("Success!\nYou may close this tab and return to the command line.\n"))

			select {
			case redirects <- request.URL.Query():
			default:
				// A redirect was already captured; ignore stragglers.
			}
		}),
	}

	go func() { _ = server.Serve(listener) }()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	consentURL := a.consentURL(req, port)

	logger.Info("requesting expanded authorization", map[string]interface{}{
		"url":    consentURL,
		"scopes": strings.Join(req.Scopes, ","),
	})

	if a.OpenBrowser != nil {
		err = a.OpenBrowser(consentURL)
		if err != nil {
			return nil, fmt.Errorf("opening browser: %w", err)
		}
	}

	wait, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-wait.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
		}

		return nil, strava.ErrAuthorizationTimeout
	case query := <-redirects:
		return parseRedirect(query)
	}
}

func (a *LocalAuthorizer) consentURL(req *AuthorizeRequest, port int) string {
	query := url.Values{}
	query.Set("client_id", strconv.FormatInt(req.ClientID, 10))
	query.Set("redirect_uri", fmt.Sprintf("http://localhost:%d", port))
	query.Set("response_type", "code")
	query.Set("approval_prompt", "force")
	query.Set("scope", strings.Join(req.Scopes, ","))

	return a.AuthorizeURL + "?" + query.Encode()
}

func parseRedirect(query url.Values) (*AuthResult, error) {
	if errValue := query.Get("error"); errValue != "" {
		return nil, fmt.Errorf("%w: %s", strava.ErrAuthorizationDenied, errValue)
	}

	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: redirect carried no code", strava.ErrAuthorizationDenied)
	}

	var scopes []string
	if scope := query.Get("scope"); scope != "" {
		scopes = strings.Split(scope, ",")
	}

	return &AuthResult{Code: code, Scopes: scopes}, nil
}
