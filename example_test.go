package rowfilter_test

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/parquet-go/parquet-go"

	rowfilter "github.com/segmentio/parquet-rowfilter"
)

func Example() {
	type Contact struct {
		Name  string `parquet:"name"`
		Email string `parquet:"email"`
		Age   int32  `parquet:"age"`
	}

	buf := new(bytes.Buffer)
	if err := parquet.Write(buf, []Contact{
		{Name: "Alice", Email: "alice@example.com", Age: 34},
		{Name: "Bob", Email: "bob@example.com", Age: 27},
		{Name: "Carol", Email: "carol@example.com", Age: 41},
	}); err != nil {
		log.Fatal(err)
	}

	f, err := rowfilter.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	// Only the age column is decoded for all rows, the name column is decoded
	// for the rows where age > 30.
	adults, err := rowfilter.ParsePredicate(f.Schema(), "age > 30")
	if err != nil {
		log.Fatal(err)
	}
	names, err := rowfilter.Columns(f.Schema(), "name")
	if err != nil {
		log.Fatal(err)
	}

	r, err := rowfilter.NewReader(f, rowfilter.Filter(adults), rowfilter.Projection(names))
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	for batch, err := range r.Batches(context.Background()) {
		if err != nil {
			log.Fatal(err)
		}
		column := batch.Column(0).(*array.String)
		for i := range column.Len() {
			fmt.Println(column.Value(i))
		}
		batch.Release()
	}
	// Output:
	// Alice
	// Carol
}
