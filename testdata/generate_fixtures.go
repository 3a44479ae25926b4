//go:build ignore

// This program generates the sample workbook used by the benchmarks and smoke tests.
package main

import (
	"fmt"
	"os"

	"github.com/klytics/sheetgraph/internal/formats/xlsx"
)

func main() {
	if err := generateXlsx(); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample.xlsx: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test fixtures generated successfully.")
}

func generateXlsx() error {
	return xlsx.WriteFile("testdata/sample.xlsx",
		xlsx.Sheet{
			Name: "Revenue",
			Rows: [][]any{
				{"Quarter", "Product", "Revenue", "Growth", "Active"},
				{"Q1 2024", "Enterprise", 1250000, 0.12, true},
				{"Q1 2024", "SMB", 450000, 0.08, true},
				{"Q1 2024", "Consumer", 320000, 0.15, false},
				{"Q2 2024", "Enterprise", 1380000, 0.10, true},
				{"Q2 2024", "SMB", 520000, nil, true},
				{"Q2 2024", "Consumer", 350000, 0.09, false},
				{"Q3 2024", "Enterprise", 1450000, 0.05, true},
				{"Q3 2024", "SMB", 580000, 0.12, true},
				{"Q3 2024", "Consumer", 410000, 0.17, nil},
				{"Q4 2024", "Enterprise", 1620000, 0.12, true},
				{"Q4 2024", "SMB", 640000, 0.10, true},
				{"Q4 2024", "Consumer", 480000, 0.17, false},
			},
		},
		xlsx.Sheet{
			Name: "Summary",
			Rows: [][]any{
				{"Metric", "Value"},
				{"Total Revenue", 8450000},
				{"YoY Growth", "12.3%"},
				{"Top Product", "Enterprise"},
				{"Fastest Growth", "Consumer"},
			},
		},
		xlsx.Sheet{Name: "Scratch"},
	)
}
