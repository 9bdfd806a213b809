package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the server-side session",
	}

	cmd.AddCommand(newSessionOpenCmd(client))
	cmd.AddCommand(newSessionCloseCmd(client))

	return cmd
}

func newSessionOpenCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open a fresh session, replacing any saved one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			clearSavedSession()
			info, err := client.OpenSession()
			if err != nil {
				return err
			}
			saveSession(client)
			if isQuiet(cmd) {
				fmt.Fprintln(cmd.OutOrStdout(), info.SessionID)
				return nil
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened session %s for %s\n", info.SessionID, info.Principal)
			return nil
		},
	}
}

func newSessionCloseCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !loadSavedSession(client) {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved session")
				return nil
			}
			err := client.CloseSession()
			clearSavedSession()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session closed")
			return nil
		},
	}
}
