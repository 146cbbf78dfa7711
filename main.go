// The main package for the zoopla-scraper executable.
package main

import (
	"github.com/lettingsradar/zoopla-scraper/cmd"
)

func main() {
	cmd.Execute()
}
