// Command seoscan is a local-only, headless-browser SEO auditing crawler.
package main

import (
	cmd "github.com/wraithcrawl/seoscan/internal/cli"
)

func main() {
	cmd.Execute()
}
