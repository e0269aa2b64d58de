// ABOUTME: Entry point for the equiplend CLI
// ABOUTME: Terminal client and mock backend for the EquipLend lending service

package main

import (
	"fmt"
	"os"

	"github.com/markalston/equiplend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
