// Package main runs the standalone coaching server: a read-only MCP surface
// over saved navigator sessions. It needs no external databases, only the
// local session store.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shaneb74/senior-navigator-core/internal/config"
	"github.com/shaneb74/senior-navigator-core/internal/mcp"
	"github.com/shaneb74/senior-navigator-core/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI()
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	_ = godotenv.Load()

	cfg := config.LoadLiteConfig()

	// Logs go to stderr: stdout belongs to the MCP transport.
	log.SetOutput(os.Stderr)
	log.Printf("Starting navigator coach with transport: %s", cfg.Transport)
	log.Printf("Data directory: %s", cfg.DataDir)

	server, err := mcp.NewCoachServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create coach server: %v", err)
	}
	defer server.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx); err != nil {
		log.Fatalf("Coach server failed: %v", err)
	}

	log.Println("Navigator coach stopped")
}
