package simpleexcel

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type row struct {
	Name     string
	Position *string
	Marks    int
}

func strPtr(s string) *string { return &s }

const layout = `
sheets:
  - name: Summary
    sections:
      - id: totals
        title: Totals
        show_header: true
        title_style:
          font: { bold: true }
        columns:
          - { field_name: label, header: Metric, width: 24 }
          - { field_name: value, header: Value }
      - id: people
        title: Per employee
        show_header: true
        header_style:
          font: { bold: true, color: "#FFFFFF" }
          fill: { color: "#4F81BD" }
        columns:
          - { field_name: Name, header: Employee, width: 30 }
          - { field_name: Position, header: Position }
          - { field_name: Marks, header: Marks, formatter: days }
`

func TestNewDataExporterFromYAML_Errors(t *testing.T) {
	_, err := NewDataExporterFromYAML([]byte("sheets: ["))
	assert.Error(t, err)

	_, err = NewDataExporterFromYAML([]byte("sheets: []"))
	assert.Error(t, err)
}

func TestDataExporter_YAMLToBytes(t *testing.T) {
	exporter, err := NewDataExporterFromYAML([]byte(layout))
	require.NoError(t, err)

	exporter.RegisterFormatter("days", func(v interface{}) interface{} {
		return fmt.Sprintf("%v d", v)
	})
	exporter.BindSectionData("totals", []map[string]interface{}{
		{"label": "Employees", "value": 2},
		{"label": "Marks", "value": 5},
	})
	exporter.BindSectionData("people", []row{
		{Name: "Ivanov", Position: strPtr("Engineer"), Marks: 3},
		{Name: "Petrov", Marks: 2},
	})

	raw, err := exporter.ToBytes()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary"}, f.GetSheetList())

	testCases := map[string]string{
		"A1": "Totals",
		"A2": "Metric",
		"A3": "Employees",
		"B4": "5",
		"A6": "Per employee",
		"A7": "Employee",
		"A8": "Ivanov",
		"B8": "Engineer",
		"C8": "3 d",
		"B9": "",
		"C9": "2 d",
	}
	for cell, want := range testCases {
		got, err := f.GetCellValue("Summary", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	merged, err := f.GetMergeCells("Summary")
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	width, err := f.GetColWidth("Summary", "A")
	require.NoError(t, err)
	assert.Equal(t, 30.0, width)
}

func TestDataExporter_TemplateIsReusable(t *testing.T) {
	exporter, err := NewDataExporterFromYAML([]byte(layout))
	require.NoError(t, err)

	exporter.BindSectionData("people", []row{{Name: "First"}})
	_, err = exporter.ToBytes()
	require.NoError(t, err)

	exporter.BindSectionData("people", []row{{Name: "Second"}})
	out, err := exporter.ToCSVBytes()
	require.NoError(t, err)

	assert.Contains(t, string(out), "Second")
	assert.NotContains(t, string(out), "First")
}

func TestDataExporter_ProgrammaticCSV(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("Marks").
		AddSection(&SectionConfig{
			ID:         "people",
			ShowHeader: true,
			Data: []row{
				{Name: "Ivanov, Ivan", Marks: 3},
				{Name: "Petrov", Marks: 0},
			},
			Columns: []ColumnConfig{
				{FieldName: "Name", Header: "Employee"},
				{FieldName: "Marks", Header: "Marks", Formatter: func(v interface{}) interface{} {
					if n, ok := v.(int); ok && n == 0 {
						return "-"
					}
					return v
				}},
			},
		})

	var buf bytes.Buffer
	require.NoError(t, exporter.ToCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Employee,Marks", lines[0])
	assert.Equal(t, `"Ivanov, Ivan",3`, lines[1])
	assert.Equal(t, "Petrov,-", lines[2])
}

func TestDataExporter_CSVEscapesFormulas(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("Marks").
		AddSection(&SectionConfig{
			ID: "people",
			Data: []row{
				{Name: `=HYPERLINK("http://x","y")`, Marks: 1},
				{Name: "+7 Ivanov", Marks: 2},
				{Name: "@Petrov", Marks: 3},
				{Name: "-5", Marks: 4},
			},
			Columns: []ColumnConfig{
				{FieldName: "Name", Header: "Employee"},
				{FieldName: "Marks", Header: "Marks"},
			},
		})

	out, err := exporter.ToCSVBytes()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"'=HYPERLINK(""http://x"",""y"")",1`, lines[0])
	assert.Equal(t, "'+7 Ivanov,2", lines[1])
	assert.Equal(t, "'@Petrov,3", lines[2])
	assert.Equal(t, "-5,4", lines[3])
}

func TestEscapeFormula(t *testing.T) {
	testCases := map[string]string{
		"Ivanov":     "Ivanov",
		"-":          "-",
		"":           "",
		"=1+1":       "'=1+1",
		"-1+cmd":     "'-1+cmd",
		"3.5":        "3.5",
		"+380":       "+380",
		"\tSUM(A1)": "'\tSUM(A1)",
	}
	for in, want := range testCases {
		assert.Equal(t, want, escapeFormula(in), "input %q", in)
	}
}

func TestExtractValue(t *testing.T) {
	name := "Ivanov"
	item := &struct {
		Name  *string
		Empty *string
		Count int
	}{Name: &name, Count: 4}

	assert.Equal(t, "Ivanov", extractValueOf(item, "Name"))
	assert.Equal(t, "", extractValueOf(item, "Empty"))
	assert.Equal(t, 4, extractValueOf(item, "Count"))
	assert.Equal(t, "", extractValueOf(item, "Nope"))
	assert.Equal(t, 7, extractValueOf(map[string]int{"n": 7}, "n"))
	assert.Equal(t, "", extractValueOf(nil, "n"))
}

func extractValueOf(v interface{}, field string) interface{} {
	return extractValue(reflect.ValueOf(v), field)
}
