package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr bool
	}{
		{name: "table ok", output: "table", wantErr: false},
		{name: "json ok", output: "json", wantErr: false},
		{name: "csv ok", output: "csv", wantErr: false},
		{name: "empty ok", output: "", wantErr: false},
		{name: "yaml rejected", output: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOutputFormat(tt.output)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrintTable_Basic(t *testing.T) {
	var buf bytes.Buffer
	columns := []string{"name", "age"}
	rows := [][]string{
		{"Alice", "30"},
		{"Bob", "25"},
	}

	PrintTable(&buf, columns, rows)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 3, "expected header + 2 data rows")
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "AGE")
	assert.Contains(t, lines[1], "Alice")
	assert.Contains(t, lines[2], "25")
}

func TestPrintTable_EmptyColumns(t *testing.T) {
	var buf bytes.Buffer

	PrintTable(&buf, []string{}, [][]string{{"a"}})

	assert.Empty(t, buf.String(), "empty columns should produce no output")
}

func TestPrintTable_EmptyRows(t *testing.T) {
	var buf bytes.Buffer

	PrintTable(&buf, []string{"id", "value"}, nil)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 1, "only the header line should be present")
	assert.Contains(t, lines[0], "ID")
}

func TestCellString_Nil(t *testing.T) {
	assert.Equal(t, "NULL", cellString(nil))
	assert.Equal(t, "42", cellString(42))
	assert.Equal(t, "anvil", cellString("anvil"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("shorty"))
	assert.Equal(t, "eyJh****sig1", maskSecret("eyJhbGciOiJIUzI1NiJ9.sig1"))
}
