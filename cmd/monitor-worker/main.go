package main

import (
	"os"

	"github.com/citewatch/citewatch/monitorworker"
)

func main() {
	if err := monitorworker.Run(); err != nil {
		os.Exit(1)
	}
}
