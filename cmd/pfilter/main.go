// Command pfilter reads parquet files through the late materialization reader.
//
// Usage:
//
//	pfilter cat    [flags] <file>   print the rows which satisfy the filter
//	pfilter stats  [flags] <file>   print how much of the file was pruned
//	pfilter schema <file>           print the leaf columns of the file
//
// Files may be local paths, http(s) URLs or compressed files (.zst, .lz4, .br
// and .sz). Flag defaults are read from PFILTER_* environment variables and
// from a .env file in the current directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
)

var errUsage = errors.New("usage: pfilter <cat|stats|schema> [flags] <file>")

type command func(ctx context.Context, config Config, args []string, stdout io.Writer) error

var commands = map[string]command{
	"cat":    catCommand,
	"stats":  statsCommand,
	"schema": schemaCommand,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		perrorf(os.Stderr, "%s", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	config.stderr = stderr
	if config.NoColor {
		color.NoColor = true
	}
	return cmd(ctx, config, args[1:], stdout)
}

func perrorf(w io.Writer, format string, args ...interface{}) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	_, _ = color.New(color.FgRed).Fprintf(w, format, args...)
}
