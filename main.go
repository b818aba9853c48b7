package main

import (
	"os"

	"github.com/kyleking/catalog-chat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
