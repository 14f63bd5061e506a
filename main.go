// Package main is the entry point for the symveil CLI.
package main

import "symveil.dev/pkg/symveil/cmd"

func main() {
	cmd.Execute()
}
