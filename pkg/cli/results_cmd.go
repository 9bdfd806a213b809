package cli

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newResultsCmd(client *Client) *cobra.Command {
	var (
		offset int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Page through the session's last published results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			q := url.Values{}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var page ResultPage
			if err := client.JSON(http.MethodGet, "/v1/results", q, nil, &page); err != nil {
				return err
			}
			return printResultPage(cmd, &page)
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Row offset to start from")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to return")

	return cmd
}
