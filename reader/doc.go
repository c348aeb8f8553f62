// Package reader provides functionality for reading CSV files.
//
// This package offers a simple, high-level API for opening a CSV file,
// inferring its schema from a bounded prefix of rows, and reading the rows
// either all at once or in bounded chunks.
//
// # Basic Usage
//
// Reading a whole file:
//
//	r, err := reader.NewReader("data.csv", reader.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tbl, err := r.ReadAll()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Streaming
//
// Reading in bounded chunks:
//
//	err := r.ReadChunks(4096, func(rows [][]any) error {
//	    fmt.Println(len(rows))
//	    return nil
//	})
//
// # Schema Introspection
//
// The schema is inferred when the reader is created and never requires
// reading past the inference prefix:
//
//	for _, f := range r.Schema().Fields() {
//	    fmt.Printf("%s: %s\n", f.Name, f.Type)
//	}
//
// # Compressed Input
//
// Files compressed with gzip or zstd are detected by their magic bytes and
// decompressed on the fly using github.com/klauspost/compress.
package reader
