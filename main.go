package main

import (
	"fmt"
	"os"

	"github.com/tyemirov/pilot/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the pilot task runner.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
