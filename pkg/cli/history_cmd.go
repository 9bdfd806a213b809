package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newHistoryCmd(client *Client) *cobra.Command {
	var (
		status string
		from   string
		to     string
		offset int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past query runs",
		Example: `  queryd history --status COMPLETED --limit 20
  queryd history --from 2026-08-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			if from != "" {
				q.Set("from", from)
			}
			if to != "" {
				q.Set("to", to)
			}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var list HistoryList
			if err := client.JSON(http.MethodGet, "/v1/history", q, nil, &list); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &list)
			}
			rows := make([][]string, len(list.Entries))
			for i, e := range list.Entries {
				detail := ""
				switch {
				case e.RowCount != nil:
					detail = fmt.Sprintf("%d rows", *e.RowCount)
				case e.ErrorMessage != nil:
					detail = *e.ErrorMessage
				}
				rows[i] = []string{
					strconv.FormatInt(e.ID, 10),
					e.Title,
					e.Status,
					e.StartedAt.Format("2006-01-02 15:04:05"),
					detail,
				}
			}
			PrintTable(cmd.OutOrStdout(), []string{"id", "title", "status", "started", "detail"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by job status (COMPLETED, FAILED, CANCELED)")
	cmd.Flags().StringVar(&from, "from", "", "Only runs started at or after this RFC 3339 time")
	cmd.Flags().StringVar(&to, "to", "", "Only runs started before this RFC 3339 time")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entry offset to start from")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to return")

	return cmd
}
