package main

import (
	"os"

	"github.com/citewatch/citewatch/citewatchservice"
)

func main() {
	if err := citewatchservice.Run(); err != nil {
		os.Exit(1)
	}
}
