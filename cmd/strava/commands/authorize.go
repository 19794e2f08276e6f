package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/velodata-io/strava/internal/auth"
	"golang.org/x/term"
)

// NewAuthorizeCommand creates the authorize command
func NewAuthorizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Run the browser authorization flow",
		Long: `Open the Strava consent page in a browser and exchange the returned
authorization code for a token pair with the full read scopes. The
resulting tokens are written to the token file.

If the client secrets file does not exist yet, the application ID and
secret are prompted for and the file is created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secretsPath := viper.GetString("secrets")

			if _, err := os.Stat(secretsPath); errors.Is(err, os.ErrNotExist) {
				if err := promptClientSecrets(secretsPath); err != nil {
					return err
				}
			}

			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			if err := client.Authorize(ctx); err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			fmt.Printf("Authorized. Tokens written to %s\n", viper.GetString("token-file"))

			return nil
		},
	}
}

// promptClientSecrets asks for the application credentials and writes the
// secrets file. The secret is read without echo.
func promptClientSecrets(path string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Strava application client ID: ")

	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read client ID: %w", err)
	}

	clientID, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return fmt.Errorf("client ID must be a number: %w", err)
	}

	fmt.Print("Strava application client secret: ")

	byteSecret, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("failed to read client secret: %w", err)
	}

	fmt.Println()

	secrets := &auth.ClientSecrets{
		ClientID:     clientID,
		ClientSecret: strings.TrimSpace(string(byteSecret)),
	}

	if err := auth.SaveClientSecrets(path, secrets); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)

	return nil
}
