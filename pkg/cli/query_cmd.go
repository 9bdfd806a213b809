package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"queryd/internal/domain"
)

// readDef loads a query definition from --file, or from a stdin pipe when
// no file is given. Returns nil when neither is present.
func readDef(file string) (*domain.QueryDef, error) {
	var data []byte
	switch {
	case file == "-":
		var err error
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	case file != "":
		var err error
		data, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
	default:
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return nil, nil
		}
		var err error
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var def domain.QueryDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse query definition: %w", err)
	}
	return &def, nil
}

func newQueryCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Set, run, and manage queries",
	}

	cmd.AddCommand(newQuerySetCmd(client))
	cmd.AddCommand(newQueryShowCmd(client))
	cmd.AddCommand(newQueryRunCmd(client))
	cmd.AddCommand(newQueryStartCmd(client))
	cmd.AddCommand(newQueryStatusCmd(client))
	cmd.AddCommand(newQueryCancelCmd(client))
	cmd.AddCommand(newQueryMessagesCmd(client))

	return cmd
}

func newQuerySetCmd(client *Client) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a query definition as the session's current query",
		Example: `  queryd query set --file query.json
  cat query.json | queryd query set`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := readDef(file)
			if err != nil {
				return err
			}
			if def == nil {
				return fmt.Errorf("provide a query definition via --file or stdin")
			}
			if err := ensureSession(client); err != nil {
				return err
			}
			var stored domain.QueryDef
			if err := client.JSON(http.MethodPut, "/v1/query", nil, def, &stored); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &stored)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Current query updated")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Query definition JSON file (- for stdin)")

	return cmd
}

func newQueryShowCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the session's current query definition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			var def domain.QueryDef
			if err := client.JSON(http.MethodGet, "/v1/query", nil, nil, &def); err != nil {
				return err
			}
			return PrintJSON(cmd.OutOrStdout(), &def)
		},
	}
}

func newQueryRunCmd(client *Client) *cobra.Command {
	var (
		file string
		save bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a query and print the first page of results",
		Long: "Run a query synchronously. The definition comes from --file or stdin; " +
			"with neither, the session's current query is run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := readDef(file)
			if err != nil {
				return err
			}
			if err := ensureSession(client); err != nil {
				return err
			}
			body := map[string]interface{}{}
			if def != nil {
				body["query"] = def
			}
			if save {
				body["save"] = true
			}
			var page ResultPage
			if err := client.JSON(http.MethodPost, "/v1/query/run", nil, body, &page); err != nil {
				return err
			}
			if isQuiet(cmd) {
				fmt.Fprintln(cmd.OutOrStdout(), page.Total)
				return nil
			}
			return printResultPage(cmd, &page)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Query definition JSON file (- for stdin)")
	cmd.Flags().BoolVar(&save, "save", false, "Record the definition as the session's current query")

	return cmd
}

func newQueryStartCmd(client *Client) *cobra.Command {
	var (
		file string
		save bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a query in the background and print its job id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := readDef(file)
			if err != nil {
				return err
			}
			if err := ensureSession(client); err != nil {
				return err
			}
			body := map[string]interface{}{}
			if def != nil {
				body["query"] = def
			}
			if save {
				body["save"] = true
			}
			var job JobStatus
			if err := client.JSON(http.MethodPost, "/v1/query/start", nil, body, &job); err != nil {
				return err
			}
			if isQuiet(cmd) {
				fmt.Fprintln(cmd.OutOrStdout(), job.JobID)
				return nil
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started job %s\n", job.JobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Query definition JSON file (- for stdin)")
	cmd.Flags().BoolVar(&save, "save", false, "Record the definition as the session's current query")

	return cmd
}

func newQueryStatusCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Check on a background query job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			var job JobStatus
			if err := client.JSON(http.MethodGet, "/v1/queries/"+args[0], nil, nil, &job); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &job)
			}
			fmt.Fprintln(cmd.OutOrStdout(), job.Status)
			return nil
		},
	}
}

func newQueryCancelCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cancellation of a background query job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			if err := client.JSON(http.MethodPost, "/v1/queries/"+args[0]+"/cancel", nil, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s\n", args[0])
			return nil
		},
	}
}

func newQueryMessagesCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "Drain pending session messages and errors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			var msgs SessionMessages
			if err := client.JSON(http.MethodGet, "/v1/session/messages", nil, nil, &msgs); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &msgs)
			}
			for _, m := range msgs.Messages {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			for _, e := range msgs.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", e)
			}
			if len(msgs.Messages) == 0 && len(msgs.Errors) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending messages")
			}
			return nil
		},
	}
}
