package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Generates sample promo source files for local development. A code is
// accepted at checkout only when it appears in at least two source files,
// so the sets below deliberately overlap.
func main() {
	dataDir := "data/promos"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	sources := map[string][]string{
		"promobase1.gz": {
			"VALIDONE1",  // in files 1 and 2
			"VALIDTWO12", // in files 1 and 2
			"ALLTHREE1",  // in all 3 files
			"ONLYONE111", // only in file 1
			"SUMMER2026", // in files 1 and 3
		},
		"promobase2.gz": {
			"VALIDONE1",
			"VALIDTWO12",
			"ALLTHREE1",
			"ONLYTWO222", // only in file 2
			"WINTER2026", // in files 2 and 3
		},
		"promobase3.gz": {
			"WINTER2026",
			"SUMMER2026",
			"ALLTHREE1",
			"ONLYTHREE3", // only in file 3
		},
	}

	for filename, codes := range sources {
		filePath := filepath.Join(dataDir, filename)

		if err := createPromoFile(filePath, codes); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d codes\n", filePath, len(codes))
	}

	fmt.Println("\nValid codes (appear in at least 2 files):")
	fmt.Println("  - VALIDONE1  (files 1, 2)")
	fmt.Println("  - VALIDTWO12 (files 1, 2)")
	fmt.Println("  - ALLTHREE1  (files 1, 2, 3)")
	fmt.Println("  - SUMMER2026 (files 1, 3)")
	fmt.Println("  - WINTER2026 (files 2, 3)")
	fmt.Println("\nInvalid codes (appear in only 1 file):")
	fmt.Println("  - ONLYONE111 (file 1 only)")
	fmt.Println("  - ONLYTWO222 (file 2 only)")
	fmt.Println("  - ONLYTHREE3 (file 3 only)")
}

func createPromoFile(filePath string, codes []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, code := range codes {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", code); err != nil {
			return fmt.Errorf("failed to write code: %w", err)
		}
	}

	return nil
}
