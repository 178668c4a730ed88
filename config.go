package rowfilter

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
)

const (
	DefaultReadBufferSize  = 4096
	DefaultValueBufferSize = 1024
)

// The FileConfig type carries configuration options for opening parquet files.
//
// FileConfig implements the FileOption interface so it can be used directly
// as argument to the Open function when needed, for example:
//
//	f, err := rowfilter.Open(source, &rowfilter.FileConfig{
//		PageIndex: true,
//		ReadAhead: 8,
//	})
type FileConfig struct {
	PageIndex      bool
	BloomFilters   bool
	ReadBufferSize int
	ReadAhead      int
}

// DefaultFileConfig returns a new FileConfig value initialized with the
// default file configuration.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		PageIndex:      true,
		BloomFilters:   true,
		ReadBufferSize: DefaultReadBufferSize,
	}
}

// NewFileConfig constructs a new file configuration applying the options
// passed as arguments.
//
// The function returns a non-nil error if some of the options carried invalid
// configuration values.
func NewFileConfig(options ...FileOption) (*FileConfig, error) {
	config := DefaultFileConfig()
	config.Apply(options...)
	return config, config.Validate()
}

// Apply applies the given list of options to c.
func (c *FileConfig) Apply(options ...FileOption) {
	for _, opt := range options {
		opt.ConfigureFile(c)
	}
}

// ConfigureFile applies configuration options from c to config.
func (c *FileConfig) ConfigureFile(config *FileConfig) {
	*config = FileConfig{
		PageIndex:      c.PageIndex,
		BloomFilters:   c.BloomFilters,
		ReadBufferSize: coalesceInt(c.ReadBufferSize, config.ReadBufferSize),
		ReadAhead:      coalesceInt(c.ReadAhead, config.ReadAhead),
	}
}

// Validate returns a non-nil error if the configuration of c is invalid.
func (c *FileConfig) Validate() error {
	const baseName = "rowfilter.(*FileConfig)."
	return errorInvalidConfiguration(
		validatePositiveInt(baseName+"ReadBufferSize", c.ReadBufferSize),
		validateNonNegativeInt(baseName+"ReadAhead", c.ReadAhead),
	)
}

// The ReaderConfig type carries configuration options for row filter readers.
//
// ReaderConfig implements the ReaderOption interface so it can be used directly
// as argument to the NewReader function when needed.
type ReaderConfig struct {
	PageIndex       bool
	BloomFilters    bool
	BatchSize       int
	ValueBufferSize int
	// Output columns, all columns of the file when nil.
	Projection *Mask
	Predicates []Predicate
	Decoder    Decoder
	Allocator  memory.Allocator
	Logger     zerolog.Logger
	Metrics    *Metrics
}

// DefaultReaderConfig returns a new ReaderConfig value initialized with the
// default reader configuration.
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		PageIndex:       true,
		ValueBufferSize: DefaultValueBufferSize,
		Allocator:       memory.DefaultAllocator,
		Logger:          zerolog.Nop(),
	}
}

// NewReaderConfig constructs a new reader configuration applying the options
// passed as arguments.
//
// The function returns a non-nil error if some of the options carried invalid
// configuration values.
func NewReaderConfig(options ...ReaderOption) (*ReaderConfig, error) {
	config := DefaultReaderConfig()
	config.Apply(options...)
	if config.Decoder == nil {
		config.Decoder = &PageDecoder{
			Allocator:  config.Allocator,
			BufferSize: config.ValueBufferSize,
		}
	}
	return config, config.Validate()
}

// Apply applies the given list of options to c.
func (c *ReaderConfig) Apply(options ...ReaderOption) {
	for _, opt := range options {
		opt.ConfigureReader(c)
	}
}

// ConfigureReader applies configuration options from c to config.
func (c *ReaderConfig) ConfigureReader(config *ReaderConfig) {
	*config = ReaderConfig{
		PageIndex:       c.PageIndex,
		BloomFilters:    c.BloomFilters,
		BatchSize:       coalesceInt(c.BatchSize, config.BatchSize),
		ValueBufferSize: coalesceInt(c.ValueBufferSize, config.ValueBufferSize),
		Projection:      coalesce(c.Projection, config.Projection),
		Predicates:      append(config.Predicates, c.Predicates...),
		Decoder:         coalesce(c.Decoder, config.Decoder),
		Allocator:       coalesce(c.Allocator, config.Allocator),
		Logger:          c.Logger,
		Metrics:         coalesce(c.Metrics, config.Metrics),
	}
}

// Validate returns a non-nil error if the configuration of c is invalid.
func (c *ReaderConfig) Validate() error {
	const baseName = "rowfilter.(*ReaderConfig)."
	return errorInvalidConfiguration(
		validateNonNegativeInt(baseName+"BatchSize", c.BatchSize),
		validatePositiveInt(baseName+"ValueBufferSize", c.ValueBufferSize),
		validateNotNil(baseName+"Decoder", c.Decoder),
		validateNotNil(baseName+"Allocator", c.Allocator),
		validatePredicates(baseName+"Predicates", c.Predicates),
	)
}

// FileOption is an interface implemented by types that carry configuration
// options for parquet files.
type FileOption interface {
	ConfigureFile(*FileConfig)
}

// ReaderOption is an interface implemented by types that carry configuration
// options for row filter readers.
type ReaderOption interface {
	ConfigureReader(*ReaderConfig)
}

// PageIndex enables the use of the column and offset indexes.
//
// When passed to Open, it configures whether the page index is loaded. When
// passed to NewReader, it configures whether the reader uses statistics and
// the page index to skip row groups and pages, and the offset index to skip
// pages that hold no selected rows.
//
// Defaults to true.
type PageIndex bool

func (enable PageIndex) ConfigureFile(config *FileConfig)     { config.PageIndex = bool(enable) }
func (enable PageIndex) ConfigureReader(config *ReaderConfig) { config.PageIndex = bool(enable) }

// BloomFilters enables the use of bloom filters to skip row groups.
//
// Defaults to true for files, so that readers can opt-in, and to false for
// readers.
type BloomFilters bool

func (enable BloomFilters) ConfigureFile(config *FileConfig)     { config.BloomFilters = bool(enable) }
func (enable BloomFilters) ConfigureReader(config *ReaderConfig) { config.BloomFilters = bool(enable) }

// ReadBufferSize configures the size of the buffers used to read pages.
//
// Defaults to 4 KiB.
type ReadBufferSize int

func (size ReadBufferSize) ConfigureFile(config *FileConfig) { config.ReadBufferSize = int(size) }

// ReadAhead configures the number of concurrent reads issued to prefetch the
// column chunks about to be decoded. Zero disables read-ahead.
//
// Defaults to zero.
type ReadAhead int

func (n ReadAhead) ConfigureFile(config *FileConfig) { config.ReadAhead = int(n) }

// BatchSize configures the maximum number of rows in batches produced by
// readers. Zero produces one batch per row group.
//
// Defaults to zero.
type BatchSize int

func (size BatchSize) ConfigureReader(config *ReaderConfig) { config.BatchSize = int(size) }

// ValueBufferSize configures the number of values read from pages at once by
// the default decoder.
//
// Defaults to 1024.
type ValueBufferSize int

func (size ValueBufferSize) ConfigureReader(config *ReaderConfig) {
	config.ValueBufferSize = int(size)
}

// Projection configures the output columns of a reader.
//
// By default, all columns are read.
func Projection(mask Mask) ReaderOption {
	return readerOption(func(config *ReaderConfig) { config.Projection = &mask })
}

// Filter appends predicates to the row filter of a reader. Predicates are
// evaluated in the order they were given, combined by logical AND.
func Filter(predicates ...Predicate) ReaderOption {
	return readerOption(func(config *ReaderConfig) {
		config.Predicates = append(config.Predicates, predicates...)
	})
}

// WithDecoder configures the decoder used to materialize column chunks.
//
// Defaults to a PageDecoder.
func WithDecoder(decoder Decoder) ReaderOption {
	return readerOption(func(config *ReaderConfig) { config.Decoder = decoder })
}

// Allocator configures the memory allocator of arrow arrays built by readers.
func Allocator(mem memory.Allocator) ReaderOption {
	return readerOption(func(config *ReaderConfig) { config.Allocator = mem })
}

// Logger configures the logger that readers emit debug events to.
//
// By default, nothing is logged.
func Logger(logger zerolog.Logger) ReaderOption {
	return readerOption(func(config *ReaderConfig) { config.Logger = logger })
}

// WithMetrics configures the metrics updated by readers.
func WithMetrics(metrics *Metrics) ReaderOption {
	return readerOption(func(config *ReaderConfig) { config.Metrics = metrics })
}

type readerOption func(*ReaderConfig)

func (opt readerOption) ConfigureReader(config *ReaderConfig) { opt(config) }

func coalesceInt(i1, i2 int) int {
	if i1 != 0 {
		return i1
	}
	return i2
}

func coalesce[T comparable](v1, v2 T) T {
	var zero T
	if v1 != zero {
		return v1
	}
	return v2
}

func validatePositiveInt(optionName string, optionValue int) error {
	if optionValue > 0 {
		return nil
	}
	return errorInvalidOptionValue(optionName, optionValue)
}

func validateNonNegativeInt(optionName string, optionValue int) error {
	if optionValue >= 0 {
		return nil
	}
	return errorInvalidOptionValue(optionName, optionValue)
}

func validateNotNil(optionName string, optionValue interface{}) error {
	if optionValue != nil {
		return nil
	}
	return errorInvalidOptionValue(optionName, optionValue)
}

func validatePredicates(optionName string, predicates []Predicate) error {
	for i, p := range predicates {
		if p == nil {
			return errorInvalidOptionValue(fmt.Sprintf("%s[%d]", optionName, i), p)
		}
	}
	return nil
}

func errorInvalidOptionValue(optionName string, optionValue interface{}) error {
	return fmt.Errorf("invalid option value: %s: %v", optionName, optionValue)
}

func errorInvalidConfiguration(reasons ...error) error {
	var err *invalidConfiguration

	for _, reason := range reasons {
		if reason != nil {
			if err == nil {
				err = new(invalidConfiguration)
			}
			err.reasons = append(err.reasons, reason)
		}
	}

	if err != nil {
		return err
	}

	return nil
}

type invalidConfiguration struct {
	reasons []error
}

func (err *invalidConfiguration) Error() string {
	errorMessage := new(strings.Builder)
	for _, reason := range err.reasons {
		errorMessage.WriteString(reason.Error())
		errorMessage.WriteString("\n")
	}
	errorString := errorMessage.String()
	if errorString != "" {
		errorString = errorString[:len(errorString)-1]
	}
	return errorString
}

func (err *invalidConfiguration) Is(target error) bool { return target == ErrInvalidConfiguration }
