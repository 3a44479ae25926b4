// Command sheetgraph turns spreadsheets into semantic graphs.
package main

import "github.com/klytics/sheetgraph/cmd"

func main() {
	cmd.Execute()
}
