package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"

	rowfilter "github.com/segmentio/parquet-rowfilter"
	"github.com/segmentio/parquet-rowfilter/pio"
)

func statsCommand(ctx context.Context, config Config, args []string, stdout io.Writer) error {
	flags := readFlags{Config: config}
	set := newFlagSet("stats", config.stderr)
	flags.register(set)

	path, err := parseFile(set, args)
	if err != nil {
		return err
	}

	source, err := pio.Open(path)
	if err != nil {
		return err
	}
	counting := pio.NewCounting(source)

	file, err := rowfilter.Open(counting,
		rowfilter.PageIndex(flags.PageIndex),
		rowfilter.BloomFilters(flags.BloomFilters),
		rowfilter.ReadAhead(flags.ReadAhead),
	)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()
	metadataReads, metadataBytes := counting.Reads(), counting.Bytes()
	counting.Reset()

	reader, err := flags.newReader(file)
	if err != nil {
		return err
	}
	defer reader.Close()

	start := time.Now()
	for batch, err := range reader.Batches(ctx) {
		if err != nil {
			return err
		}
		batch.Release()
	}
	elapsed := time.Since(start)

	stats := reader.Stats()
	_, _ = color.New(color.Bold).Fprintf(stdout, "%s: %d rows in %d row groups\n", path, file.NumRows(), file.NumRowGroups())

	table := newTable(stdout)
	table.SetHeader([]string{"counter", "value"})
	for _, row := range []struct {
		name  string
		value int64
	}{
		{"row groups", stats.RowGroups},
		{"row groups pruned", stats.RowGroupsPruned},
		{"row groups filtered", stats.RowGroupsFiltered},
		{"pages pruned", stats.PagesPruned},
		{"rows filtered", stats.RowsFiltered},
		{"rows emitted", stats.RowsEmitted},
		{"columns decoded", stats.ColumnsDecoded},
		{"batches", stats.Batches},
		{"metadata reads", metadataReads},
		{"metadata bytes", metadataBytes},
		{"data reads", counting.Reads()},
		{"data bytes", counting.Bytes()},
	} {
		table.Append([]string{row.name, strconv.FormatInt(row.value, 10)})
	}
	table.Append([]string{"elapsed", elapsed.Round(time.Microsecond).String()})
	table.Render()
	return nil
}
