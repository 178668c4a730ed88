package main

import (
	"context"
	"io"
	"strconv"
	"strings"
)

func schemaCommand(ctx context.Context, config Config, args []string, stdout io.Writer) error {
	set := newFlagSet("schema", config.stderr)
	path, err := parseFile(set, args)
	if err != nil {
		return err
	}

	file, err := config.openFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	table := newTable(stdout)
	table.SetHeader([]string{"position", "name", "type", "repetition", "physical type"})
	for _, c := range file.Schema().Columns() {
		repetition := "required"
		switch {
		case c.Repeated:
			repetition = "repeated"
		case c.Optional:
			repetition = "optional"
		}
		table.Append([]string{
			strconv.Itoa(c.Position),
			c.Name,
			c.Type.String(),
			repetition,
			strings.ToLower(c.ParquetType().Kind().String()),
		})
	}
	table.Render()
	return nil
}
