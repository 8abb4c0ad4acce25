package main

import (
	"flag"
	"log"
	"os"

	"github.com/23skdu/longbow-bodkin/internal/metadata"
	"github.com/23skdu/longbow-bodkin/internal/payload"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Exports every constant in the packed payload as a single Arrow IPC file,
// one row per constant, so weights can be inspected with standard Arrow
// tooling.
func main() {
	manifestPath := flag.String("manifest", "", "Path to model manifest JSON")
	payloadPath := flag.String("payload", "", "Path to packed constants binary")
	outPath := flag.String("out", "constants.arrow", "Output Arrow IPC file")
	flag.Parse()

	if *manifestPath == "" || *payloadPath == "" {
		log.Fatal("--manifest and --payload are required")
	}

	man, err := metadata.LoadFile(*manifestPath)
	if err != nil {
		log.Fatalf("Failed to load manifest: %v", err)
	}
	section, err := payload.FromFile(*payloadPath)
	if err != nil {
		log.Fatalf("Failed to load payload: %v", err)
	}
	defer section.Close()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "dtype", Type: arrow.BinaryTypes.String},
		{Name: "shape", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
		{Name: "stride", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
		{Name: "storage_offset", Type: arrow.PrimitiveTypes.Int64},
		{Name: "data", Type: arrow.BinaryTypes.Binary},
	}, nil)

	mem := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	nameB := builder.Field(0).(*array.StringBuilder)
	dtypeB := builder.Field(1).(*array.StringBuilder)
	shapeB := builder.Field(2).(*array.ListBuilder)
	shapeVals := shapeB.ValueBuilder().(*array.Int64Builder)
	strideB := builder.Field(3).(*array.ListBuilder)
	strideVals := strideB.ValueBuilder().(*array.Int64Builder)
	offsetB := builder.Field(4).(*array.Int64Builder)
	dataB := builder.Field(5).(*array.BinaryBuilder)

	var off int64
	for _, c := range man.Constants {
		raw, err := section.Slice(off, c.DataSize)
		if err != nil {
			log.Fatalf("Constant %q: %v", c.Name, err)
		}
		off += c.DataSize

		nameB.Append(c.Name)
		dtypeB.Append(c.Dtype)
		shapeB.Append(true)
		shapeVals.AppendValues(c.Shape, nil)
		strideB.Append(true)
		strideVals.AppendValues(c.Stride, nil)
		offsetB.Append(c.StorageOffset)
		dataB.Append(raw)
	}

	rec := builder.NewRecord()
	defer rec.Release()

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	writer, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		log.Fatalf("Failed to create IPC writer: %v", err)
	}
	if err := writer.Write(rec); err != nil {
		log.Fatalf("Failed to write record: %v", err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("Failed to close IPC writer: %v", err)
	}

	log.Printf("Wrote %d constants (%d payload bytes) to %s", len(man.Constants), off, *outPath)
}
