package main

import (
	"flag"
	"log"

	"github.com/tracesmith/tracesmith/pkg/mcp"
)

func main() {
	apiURL := flag.String("api", "http://127.0.0.1:8098", "Base URL of tracesmith-d API")
	flag.Parse()

	s := mcp.NewServer(*apiURL)
	if err := s.Serve(); err != nil {
		log.Fatalf("mcp server failed: %v", err)
	}
}
