/*
Package rowfilter reads parquet files with late materialization.

A Reader evaluates an ordered list of predicates against the few columns that
they need, and only decodes the remaining columns of the output projection for
the rows which satisfied all of them. Before any data is decoded, row group
statistics, bloom filters and the page index are used to skip the row groups
and pages that cannot hold matching rows.

Reading

Open a file, build predicates against its schema, then pull arrow records from
a Reader:

	f, err := rowfilter.OpenFile(r, size)
	...
	p, err := rowfilter.ParsePredicate(f.Schema(), "utf8 = 'const'")
	...
	reader, err := rowfilter.NewReader(f, rowfilter.Filter(p))
	...
	for batch, err := range reader.Batches(ctx) {
		...
		batch.Release()
	}

Byte sources

The pio sub-package provides the sources that files are read from: local files,
HTTP servers supporting range requests and compressed files inflated in memory.

Tooling

The program available at ./cmd/pfilter exposes the reader on the command line.
*/
package rowfilter
