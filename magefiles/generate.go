// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Generate builds the CLI and writes a Markdown paper and BibTeX file for
// topic into output/papers/.
func Generate(topic string) error {
	mg.Deps(Init, Build)
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(topic), "-"), "-")
	if slug == "" {
		return fmt.Errorf("topic %q has no usable characters", topic)
	}
	base := filepath.Join("output", "papers", slug)
	return sh.RunV(binPath, "generate", topic,
		"--format", "markdown",
		"--out", base+".md",
		"--bib", base+".bib",
	)
}

// Retrieve builds the CLI and prints the literature found for topic.
func Retrieve(topic string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "retrieve", topic)
}

// Serve builds the CLI and runs the HTTP service.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "serve")
}
