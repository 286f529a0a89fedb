// Package main is the entry point for the tickseq API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tickseq/tickseq/pkg/api"
	"github.com/tickseq/tickseq/pkg/converter"
	"github.com/tickseq/tickseq/pkg/logging"
	"github.com/tickseq/tickseq/pkg/mapping"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	mappingsFile := flag.String("mappings", "", "Controller mapping table (YAML)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logLevel, "tickseq-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}

	table := mapping.Default()
	if *mappingsFile != "" {
		if table, err = mapping.LoadFile(*mappingsFile); err != nil {
			logger.Fatal("failed to load mappings", "file", *mappingsFile, "err", err)
		}
	}

	if err := api.StartServer(*port, converter.New(table, nil, nil), logger); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
