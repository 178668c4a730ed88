package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	rowfilter "github.com/segmentio/parquet-rowfilter"
	"github.com/segmentio/parquet-rowfilter/pio"
)

// Config holds the defaults of the command line flags.
type Config struct {
	Debug        bool   `envconfig:"DEBUG" default:"false"`
	PageIndex    bool   `envconfig:"PAGE_INDEX" default:"true"`
	BloomFilters bool   `envconfig:"BLOOM" default:"false"`
	BatchSize    int    `envconfig:"BATCH_SIZE" default:"0"`
	ReadAhead    int    `envconfig:"READ_AHEAD" default:"0"`
	Format       string `envconfig:"FORMAT" default:"table"`
	NoColor      bool   `envconfig:"NO_COLOR" default:"false"`

	stderr io.Writer
}

func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	var config Config
	if err := envconfig.Process("pfilter", &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// readFlags are the flags shared by the commands which read rows.
type readFlags struct {
	Config
	Where         stringList
	Columns       stringList
	ExcludeFilter bool
}

func (f *readFlags) register(set *flag.FlagSet) {
	set.Var(&f.Where, "where", `predicate of the row filter, for example "utf8 = 'const'" (may be repeated)`)
	set.Var(&f.Columns, "columns", "comma separated list of output columns (default all)")
	set.BoolVar(&f.ExcludeFilter, "exclude-filter-columns", false, "leave the columns of the filter out of the output")
	set.BoolVar(&f.PageIndex, "page-index", f.PageIndex, "prune row groups and pages with statistics and the page index")
	set.BoolVar(&f.BloomFilters, "bloom", f.BloomFilters, "prune row groups with bloom filters")
	set.IntVar(&f.BatchSize, "batch-size", f.BatchSize, "maximum number of rows per batch (0 for one batch per row group)")
	set.IntVar(&f.ReadAhead, "read-ahead", f.ReadAhead, "number of concurrent reads prefetching column chunks (0 to disable)")
	set.BoolVar(&f.Debug, "debug", f.Debug, "display debugging logs")
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.SetOutput(stderr)
	return set
}

// parseFile parses the flags of a command taking a single file argument.
func parseFile(set *flag.FlagSet, args []string) (string, error) {
	if err := set.Parse(args); err != nil {
		return "", err
	}
	if set.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one file argument, got %d", set.Name(), set.NArg())
	}
	return set.Arg(0), nil
}

func (c *Config) logger() zerolog.Logger {
	if !c.Debug {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: c.stderr, NoColor: c.NoColor}).With().Timestamp().Logger()
}

func (c *Config) openFile(name string) (*rowfilter.File, error) {
	source, err := pio.Open(name)
	if err != nil {
		return nil, err
	}
	f, err := rowfilter.Open(source,
		rowfilter.PageIndex(c.PageIndex),
		rowfilter.BloomFilters(c.BloomFilters),
		rowfilter.ReadAhead(c.ReadAhead),
	)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

// newReader opens a reader configured by the flags.
func (f *readFlags) newReader(file *rowfilter.File, options ...rowfilter.ReaderOption) (*rowfilter.Reader, error) {
	schema := file.Schema()

	var predicates []rowfilter.Predicate
	for _, expr := range f.Where {
		p, err := rowfilter.ParsePredicates(schema, expr)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p...)
	}

	var leaves []int
	for _, c := range schema.Columns() {
		if !c.Repeated {
			leaves = append(leaves, c.Position)
		}
	}
	output, err := rowfilter.Leaves(schema, leaves...)
	if err != nil {
		return nil, err
	}
	if len(f.Columns) > 0 {
		var names []string
		for _, list := range f.Columns {
			for _, name := range strings.Split(list, ",") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
		}
		m, err := rowfilter.Columns(schema, names...)
		if err != nil {
			return nil, err
		}
		output = m
	}
	if f.ExcludeFilter {
		for _, p := range predicates {
			output = output.Difference(p.Mask())
		}
	}

	return rowfilter.NewReader(file, append([]rowfilter.ReaderOption{
		rowfilter.Filter(predicates...),
		rowfilter.Projection(output),
		rowfilter.PageIndex(f.PageIndex),
		rowfilter.BloomFilters(f.BloomFilters),
		rowfilter.BatchSize(f.BatchSize),
		rowfilter.Logger(f.logger()),
	}, options...)...)
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, " and ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
