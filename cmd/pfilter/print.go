package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/olekukonko/tablewriter"
	"github.com/segmentio/encoding/json"
)

type printer interface {
	Print(arrow.Record) error
	Flush() error
}

func newPrinter(format string, w io.Writer, schema *arrow.Schema) (printer, error) {
	switch format {
	case "table":
		return newTablePrinter(w, schema), nil
	case "json":
		return newJSONPrinter(w, schema), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want table or json)", format)
	}
}

// tablePrinter buffers rows and renders them as a table on Flush.
type tablePrinter struct {
	table *tablewriter.Table
}

func newTablePrinter(w io.Writer, schema *arrow.Schema) *tablePrinter {
	header := make([]string, len(schema.Fields()))
	for i, f := range schema.Fields() {
		header[i] = f.Name
	}
	table := newTable(w)
	table.SetHeader(header)
	return &tablePrinter{table: table}
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	return table
}

func (p *tablePrinter) Print(record arrow.Record) error {
	row := make([]string, record.NumCols())
	for i := range int(record.NumRows()) {
		for j, column := range record.Columns() {
			row[j] = column.ValueStr(i)
		}
		p.table.Append(row)
	}
	return nil
}

func (p *tablePrinter) Flush() error {
	p.table.Render()
	return nil
}

// jsonPrinter writes one JSON object per row.
type jsonPrinter struct {
	writer  *bufio.Writer
	encoder *json.Encoder
	row     map[string]interface{}
}

func newJSONPrinter(w io.Writer, schema *arrow.Schema) *jsonPrinter {
	writer := bufio.NewWriter(w)
	return &jsonPrinter{
		writer:  writer,
		encoder: json.NewEncoder(writer),
		row:     make(map[string]interface{}, len(schema.Fields())),
	}
}

func (p *jsonPrinter) Print(record arrow.Record) error {
	for i := range int(record.NumRows()) {
		for j, column := range record.Columns() {
			p.row[record.ColumnName(j)] = column.GetOneForMarshal(i)
		}
		if err := p.encoder.Encode(p.row); err != nil {
			return err
		}
	}
	return nil
}

func (p *jsonPrinter) Flush() error { return p.writer.Flush() }
