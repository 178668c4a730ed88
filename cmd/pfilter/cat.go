package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
)

type catFlags struct {
	readFlags
	Limit      int64
	CPUProfile string
	MemProfile string
}

func catCommand(ctx context.Context, config Config, args []string, stdout io.Writer) error {
	flags := catFlags{readFlags: readFlags{Config: config}}
	set := newFlagSet("cat", config.stderr)
	flags.register(set)
	set.StringVar(&flags.Format, "format", flags.Format, "output format, table or json")
	set.Int64Var(&flags.Limit, "limit", 0, "maximum number of rows to print (0 for all)")
	set.StringVar(&flags.CPUProfile, "cpu-profile", "", "record a pprof CPU profile to the given file")
	set.StringVar(&flags.MemProfile, "mem-profile", "", "record a pprof memory profile to the given file")

	path, err := parseFile(set, args)
	if err != nil {
		return err
	}
	logger := flags.logger()

	if flags.CPUProfile != "" {
		f, err := os.Create(flags.CPUProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		logger.Debug().Str("path", flags.CPUProfile).Msg("started CPU profile")
		defer pprof.StopCPUProfile()
	}

	file, err := flags.openFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, err := flags.newReader(file)
	if err != nil {
		return err
	}
	defer reader.Close()

	printer, err := newPrinter(flags.Format, stdout, reader.Schema())
	if err != nil {
		return err
	}

	numRows := int64(0)
	for batch, err := range reader.Batches(ctx) {
		if err != nil {
			return err
		}
		if flags.Limit > 0 && numRows+batch.NumRows() > flags.Limit {
			slice := batch.NewSlice(0, flags.Limit-numRows)
			batch.Release()
			batch = slice
		}
		err := printer.Print(batch)
		numRows += batch.NumRows()
		batch.Release()
		if err != nil {
			return err
		}
		if flags.Limit > 0 && numRows >= flags.Limit {
			break
		}
	}
	if err := printer.Flush(); err != nil {
		return err
	}

	if flags.MemProfile != "" {
		f, err := os.Create(flags.MemProfile)
		if err != nil {
			return fmt.Errorf("could not create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("could not write memory profile: %w", err)
		}
		logger.Debug().Str("path", flags.MemProfile).Msg("wrote memory profile")
	}
	return nil
}
