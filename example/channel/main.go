package main

import (
	"context"
	"fmt"
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

	sink, captures, closeCaptures := acs.NewChannelSink("fanout", 32)
	defer closeCaptures()

	go fanoutWorker("analysis", captures)

	rt, err := acs.NewRuntime(cfg, acs.WithCaptureSink(sink))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, captures <-chan *acs.Capture) {
	for c := range captures {
		n := c.End - c.Start
		fmt.Printf("[%s] capture of %d samples, trigger at %d\n", name, n, c.TriggerIndex)
	}
}
