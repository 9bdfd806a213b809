package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(client *Client) *cobra.Command {
	var (
		username string
		paste    bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain a token and save it to the active profile",
		Long: "Request a dev-mode token from the server for the given username, " +
			"or paste an existing token with --paste. The token is saved to the " +
			"active profile in " + ConfigPath() + ".",
		Example: `  # Request a dev token from a non-production server
  queryd login --username alice

  # Paste a token obtained elsewhere (input is not echoed)
  queryd login --paste`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var token string
			switch {
			case paste:
				fmt.Fprint(os.Stderr, "Token: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(string(raw))
				if token == "" {
					return fmt.Errorf("empty token")
				}
			case username != "":
				var grant TokenGrant
				body := map[string]string{"username": username}
				if err := client.JSON(http.MethodPost, "/v1/auth/token", nil, body, &grant); err != nil {
					return err
				}
				token = grant.Token
			default:
				return fmt.Errorf("provide --username or --paste")
			}

			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{Profiles: map[string]Profile{}}
			}
			name := cfg.CurrentProfile
			if name == "" {
				name = "default"
				cfg.CurrentProfile = name
			}
			if cfg.Profiles == nil {
				cfg.Profiles = map[string]Profile{}
			}
			p := cfg.Profiles[name]
			p.Token = token
			cfg.Profiles[name] = p
			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "ok",
					"profile": name,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to profile %q\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username to request a dev token for")
	cmd.Flags().BoolVar(&paste, "paste", false, "Paste an existing token instead of requesting one")

	return cmd
}
