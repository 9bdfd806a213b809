package cli

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func newSavedCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved queries",
	}

	cmd.AddCommand(newSavedListCmd(client))
	cmd.AddCommand(newSavedSaveCmd(client))
	cmd.AddCommand(newSavedShowCmd(client))
	cmd.AddCommand(newSavedRenameCmd(client))
	cmd.AddCommand(newSavedDeleteCmd(client))
	cmd.AddCommand(newSavedLoadCmd(client))

	return cmd
}

func savedPath(name string) string {
	return "/v1/saved-queries/" + url.PathEscape(name)
}

func newSavedListCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			var list SavedQueryList
			if err := client.JSON(http.MethodGet, "/v1/saved-queries", nil, nil, &list); err != nil {
				return err
			}
			if isQuiet(cmd) {
				for _, sq := range list.Queries {
					fmt.Fprintln(cmd.OutOrStdout(), sq.Name)
				}
				return nil
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &list)
			}
			rows := make([][]string, len(list.Queries))
			for i, sq := range list.Queries {
				rows[i] = []string{
					sq.Name,
					sq.Query.From,
					sq.UpdatedAt.Format("2006-01-02 15:04:05"),
				}
			}
			PrintTable(cmd.OutOrStdout(), []string{"name", "from", "updated"}, rows)
			return nil
		},
	}
}

func newSavedSaveCmd(client *Client) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a query definition under a name",
		Long: "Save the definition from --file or stdin under the given name. " +
			"With neither, the session's current query is saved.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := readDef(file)
			if err != nil {
				return err
			}
			if err := ensureSession(client); err != nil {
				return err
			}
			body := map[string]interface{}{"name": args[0]}
			if def != nil {
				body["query"] = def
			}
			var saved SavedQuery
			if err := client.JSON(http.MethodPost, "/v1/saved-queries", nil, body, &saved); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved query %q\n", saved.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Query definition JSON file (- for stdin)")

	return cmd
}

func newSavedShowCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved query definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			var saved SavedQuery
			if err := client.JSON(http.MethodGet, savedPath(args[0]), nil, nil, &saved); err != nil {
				return err
			}
			return PrintJSON(cmd.OutOrStdout(), &saved)
		},
	}
}

func newSavedRenameCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a saved query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			body := map[string]string{"name": args[1]}
			var saved SavedQuery
			if err := client.JSON(http.MethodPut, savedPath(args[0]), nil, body, &saved); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q\n", args[0], saved.Name)
			return nil
		},
	}
}

func newSavedDeleteCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			if err := client.JSON(http.MethodDelete, savedPath(args[0]), nil, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted saved query %q\n", args[0])
			return nil
		},
	}
}

func newSavedLoadCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "load <name>",
		Short: "Load a saved query as the session's current query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			var saved SavedQuery
			if err := client.JSON(http.MethodPost, savedPath(args[0])+"/load", nil, nil, &saved); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %q as current query\n", args[0])
			return nil
		},
	}
}
