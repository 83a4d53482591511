// Package main is the entry point for the etlaudit application
package main

import "github.com/ethpandaops/etlaudit/cmd"

func main() {
	cmd.Execute()
}
