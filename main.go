package main

import (
	"os"

	"github.com/ecamozu/career-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
