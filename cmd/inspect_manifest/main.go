package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/23skdu/longbow-bodkin/internal/metadata"
	"github.com/23skdu/longbow-bodkin/internal/model"
)

func main() {
	manifestPath := flag.String("manifest", "", "Path to model manifest JSON")
	flag.Parse()

	if *manifestPath == "" {
		log.Fatal("--manifest is required")
	}

	man, err := metadata.LoadFile(*manifestPath)
	if err != nil {
		log.Fatalf("Failed to load manifest: %v", err)
	}

	fmt.Printf("=== Model %q ===\n", man.Name)
	fmt.Printf("in_spec:  %s\n", man.InSpec)
	fmt.Printf("out_spec: %s\n", man.OutSpec)

	fmt.Println("\n=== Inputs ===")
	for i, p := range man.Inputs {
		fmt.Printf("%3d  %s\n", i, p.Name)
	}

	fmt.Println("\n=== Outputs ===")
	for i, p := range man.Outputs {
		fmt.Printf("%3d  %s\n", i, p.Name)
	}

	infos := make([]model.ConstInfo, len(man.Constants))
	var packed int64
	for i, c := range man.Constants {
		infos[i] = model.ConstInfo{
			Name:          c.Name,
			Shape:         c.Shape,
			Stride:        c.Stride,
			Dtype:         c.DtypeOf(),
			StorageOffset: c.StorageOffset,
			DataSize:      c.DataSize,
		}
		packed += c.DataSize
	}
	offsets, total := model.PlanBlobLayout(infos)

	fmt.Println("\n=== Constants ===")
	for i, c := range infos {
		fmt.Printf("%3d  %-32s %-9s shape=%v stride=%v size=%d blob_offset=%d\n",
			i, c.Name, c.Dtype, c.Shape, c.Stride, c.DataSize, offsets[i])
	}

	fmt.Printf("\npacked payload: %d bytes\n", packed)
	fmt.Printf("device blob:    %d bytes (%d-byte aligned)\n", total, model.BlobAlignment)
}
