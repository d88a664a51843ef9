// cmd/engoview/main.go
package main

import (
	"flag"
	"log"
	"os"

	"github.com/opd-ai/go-quadcollide/pkg/config"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
	engorender "github.com/opd-ai/go-quadcollide/pkg/render/engo"
)

func main() {
	configPath := flag.String("config", "quadsim.yaml", "Path to configuration file (.yaml or .json)")
	width := flag.Int("width", 1024, "Window width")
	height := flag.Int("height", 768, "Window height")
	flag.Parse()

	var cfg *config.Config
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		log.Printf("Configuration file not found, using default configuration")
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		log.Fatalf("Failed to apply environment configuration: %v", err)
	}

	log.Printf("Starting Engo viewer (%dx%d) with %d bodies", *width, *height, cfg.Simulation.Bodies)
	engorender.Run(cfg, logging.NewLogger(), *width, *height)
}
