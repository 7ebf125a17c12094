package main

import (
	"flag"
	"log"

	"alertmon/internal/config"
	"alertmon/internal/generator"
)

func main() {
	once := flag.Bool("once", false, "run one monitoring cycle and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gen := generator.New(cfg.Monitor)

	if *once {
		gen.RunCycle()
		return
	}
	gen.RunContinuous()
}
