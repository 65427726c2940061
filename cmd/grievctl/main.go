// Grievctl runs the complaint classification and lifecycle rules offline, for
// checking keyword table or threshold changes against real text.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
