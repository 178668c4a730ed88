package rowfilter_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"

	rowfilter "github.com/segmentio/parquet-rowfilter"
)

func TestReaderConfigDefaults(t *testing.T) {
	config, err := rowfilter.NewReaderConfig()
	if err != nil {
		t.Fatal(err)
	}
	if !config.PageIndex {
		t.Error("page index is disabled by default")
	}
	if config.BloomFilters {
		t.Error("bloom filters are enabled by default")
	}
	if config.BatchSize != 0 {
		t.Errorf("default batch size is %d", config.BatchSize)
	}
	if config.Projection != nil || len(config.Predicates) != 0 {
		t.Error("default configuration has a projection or predicates")
	}
	if _, ok := config.Decoder.(*rowfilter.PageDecoder); !ok {
		t.Errorf("default decoder is %T", config.Decoder)
	}
}

func TestReaderConfigOptions(t *testing.T) {
	mem := memory.NewGoAllocator()
	decoder := new(countingDecoder)

	config, err := rowfilter.NewReaderConfig(
		rowfilter.PageIndex(false),
		rowfilter.BloomFilters(true),
		rowfilter.BatchSize(100),
		rowfilter.ValueBufferSize(64),
		rowfilter.Allocator(mem),
		rowfilter.WithDecoder(decoder),
	)
	if err != nil {
		t.Fatal(err)
	}
	if config.PageIndex || !config.BloomFilters || config.BatchSize != 100 || config.ValueBufferSize != 64 {
		t.Errorf("options were not applied: %+v", config)
	}
	if config.Allocator != mem || config.Decoder != decoder {
		t.Error("allocator or decoder option was not applied")
	}

	// A configuration can be passed as an option.
	other, err := rowfilter.NewReaderConfig(config)
	if err != nil {
		t.Fatal(err)
	}
	if other.PageIndex || !other.BloomFilters || other.BatchSize != 100 || other.Decoder != decoder {
		t.Errorf("configuration was not copied: %+v", other)
	}
}

func TestReaderConfigInvalid(t *testing.T) {
	_, err := rowfilter.NewReaderConfig(
		rowfilter.BatchSize(-1),
		rowfilter.ValueBufferSize(-2),
		rowfilter.Filter(nil),
	)
	if !errors.Is(err, rowfilter.ErrInvalidConfiguration) {
		t.Fatalf("want invalid configuration, got %v", err)
	}
	for _, option := range []string{"BatchSize", "ValueBufferSize", "Predicates[0]"} {
		if !strings.Contains(err.Error(), option) {
			t.Errorf("error does not mention %s: %v", option, err)
		}
	}
}

func TestFileConfig(t *testing.T) {
	config, err := rowfilter.NewFileConfig(
		rowfilter.PageIndex(false),
		rowfilter.ReadAhead(8),
	)
	if err != nil {
		t.Fatal(err)
	}
	if config.PageIndex || !config.BloomFilters || config.ReadAhead != 8 || config.ReadBufferSize != rowfilter.DefaultReadBufferSize {
		t.Errorf("unexpected configuration: %+v", config)
	}

	if _, err := rowfilter.NewFileConfig(rowfilter.ReadBufferSize(-1)); !errors.Is(err, rowfilter.ErrInvalidConfiguration) {
		t.Errorf("want invalid configuration, got %v", err)
	}
}

func TestFileWithoutPageIndex(t *testing.T) {
	data := fixture100k(t)
	p := mustPredicate(t, openFile(t, data).Schema(), "int64 = 0")

	got, stats := readAll(t, openFile(t, data, rowfilter.PageIndex(false)), rowfilter.Filter(p))
	if countLines(got) != 1 {
		t.Fatalf("want 1 row, got:\n%s", got)
	}
	if stats.RowGroupsPruned != 0 {
		t.Errorf("row groups were pruned: %+v", stats)
	}
}
