package main

import (
	"os"

	"github.com/shanehull/wsbscraper/cmd/scraper/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
