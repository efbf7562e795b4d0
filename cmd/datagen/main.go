// Command datagen writes a deterministic synthetic GST snapshot to a
// directory, one JSON file per collection, in the layout the file snapshot
// loader reads.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gstech/itc-compliance/internal/mockdata"
)

func main() {
	var (
		out       = flag.String("out", "./data", "output directory")
		seed      = flag.Int64("seed", 2024, "PRNG seed")
		taxpayers = flag.Int("taxpayers", 50, "number of taxpayers")
		invoices  = flag.Int("invoices", 500, "number of invoices")
		rate      = flag.Float64("rate", 0.30, "fraction of invoices with a mismatch")
	)
	flag.Parse()

	gen := mockdata.NewGenerator(mockdata.Options{
		Seed:         *seed,
		Taxpayers:    *taxpayers,
		Invoices:     *invoices,
		MismatchRate: *rate,
	})
	snap := gen.Generate()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}

	files := map[string]any{
		"taxpayers.json":  snap.Taxpayers,
		"invoices.json":   snap.Invoices,
		"mismatches.json": snap.Mismatches,
		"returns.json":    snap.Returns,
		"payments.json":   snap.Payments,
	}
	for name, collection := range files {
		if err := writeJSON(filepath.Join(*out, name), collection); err != nil {
			log.Fatalf("failed to write %s: %v", name, err)
		}
	}

	for collection, n := range snap.Counts() {
		fmt.Printf("%-12s %6d\n", collection, n)
	}
	fmt.Printf("snapshot written to %s\n", *out)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
