//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// defaultStartURL is the documentation site the demo corpus is built from.
const defaultStartURL = "https://slack.com/intl/en-in/help"

// Crawl builds the CLI and fetches the demo documentation site into corpus/pages.
func Crawl() error {
	mg.Deps(Build)
	return sh.RunV("bin/"+binName, "crawl", defaultStartURL)
}

// Index builds the CLI and ingests crawled pages into the corpus database.
func Index() error {
	mg.Deps(Build)
	return sh.RunV("bin/"+binName, "index")
}
