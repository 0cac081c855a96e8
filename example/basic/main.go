package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	acs "github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer"
)

func main() {
	cfg, err := acs.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := acs.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("analyzer runtime exited: %v", err)
	}
}
