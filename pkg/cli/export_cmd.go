package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(client *Client) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the session's last results",
		Long: "Export the session's last published results in the given format. " +
			"Spooled files are downloaded with --out; object-store exports print a presigned URL.",
		Example: `  queryd export --format csv --out results.csv
  queryd export --format parquet`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureSession(client); err != nil {
				return err
			}
			q := url.Values{"format": {format}}
			var res ExportResult
			if err := client.JSON(http.MethodGet, "/v1/results/export", q, nil, &res); err != nil {
				return err
			}

			if out != "" {
				if res.File == "" {
					return fmt.Errorf("export is not a spooled file; fetch it from %s", res.URL)
				}
				if err := downloadExport(client, res.File, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
				return nil
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), &res)
			}
			switch {
			case res.URL != "":
				fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			case res.File != "":
				fmt.Fprintln(cmd.OutOrStdout(), res.File)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format (csv, parquet, json)")
	cmd.Flags().StringVar(&out, "out", "", "Download the export to this local path")

	return cmd
}

func downloadExport(client *Client, name, dest string) error {
	resp, err := client.Do(http.MethodGet, "/v1/exports/"+url.PathEscape(name), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}
