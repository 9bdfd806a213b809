package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func isQuiet(cmd *cobra.Command) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return v
}

func validateOutputFormat(output string) error {
	switch output {
	case "", "table", "json", "csv":
		return nil
	}
	return fmt.Errorf("unsupported output format %q: use 'table', 'json', or 'csv'", output)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTable writes an aligned table with uppercased headers.
func PrintTable(w io.Writer, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func cellString(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func pageRows(page *ResultPage) [][]string {
	rows := make([][]string, len(page.Rows))
	for i, row := range page.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		rows[i] = cells
	}
	return rows
}

func printResultPage(cmd *cobra.Command, page *ResultPage) error {
	switch getOutputFormat(cmd) {
	case "json":
		return PrintJSON(cmd.OutOrStdout(), page)
	case "csv":
		w := csv.NewWriter(cmd.OutOrStdout())
		_ = w.Write(page.Columns)
		for _, row := range pageRows(page) {
			_ = w.Write(row)
		}
		w.Flush()
		return w.Error()
	}
	PrintTable(cmd.OutOrStdout(), page.Columns, pageRows(page))
	if page.HasMore {
		fmt.Fprintf(cmd.OutOrStdout(), "(showing %d-%d of %d rows)\n",
			page.Offset+1, page.Offset+len(page.Rows), page.Total)
	}
	return nil
}
