package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/app"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/app/agent"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/config"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = agent.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Bridge agent stopped: %v\n", err)
		os.Exit(1)
	}
}
