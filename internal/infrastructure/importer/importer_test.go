package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/classroll/classroll/internal/domain/shared"
)

func TestParseNames_CSV(t *testing.T) {
	in := "id,Name,age\n1,Ada,10\n2,,11\n3,  Bob ,12\n4\n5,Ada,10\n"
	names, err := ParseNames("class.CSV", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Bob", "Ada"}, names)
}

func TestParseNames_CSVWithBOMAndLeadingBlankLine(t *testing.T) {
	in := "\n\ufeffNAME\nCleo\n"
	names, err := ParseNames("x.csv", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cleo"}, names)
}

func TestParseNames_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Surname", "name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"L", "Ada"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"M", ""}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"N", "Bob"}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	names, err := ParseNames("roster.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Bob"}, names)
}

func TestWriteTemplate_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, "Ada", "Bob"))

	names, err := ParseNames("template.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Bob"}, names)
}

func TestParseNames_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
		want     error
	}{
		{"unsupported extension", "list.txt", "name\nAda\n", ErrUnsupportedFormat},
		{"missing name column", "list.csv", "first,last\nAda,L\n", ErrNoNameColumn},
		{"empty file", "list.csv", "", ErrNoNameColumn},
		{"header only", "list.csv", "name\n\n , \n", ErrNoNames},
		{"corrupt workbook", "list.xlsx", "not a zip", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNames(tt.filename, strings.NewReader(tt.body))
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
