package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	acs "github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer"
)

func main() {
	cfg, err := acs.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	callback := func(c *acs.Capture) error {
		fmt.Printf("%s capture region=[%d,%d) trigger=%d forced=%v channels=%d\n",
			c.CreatedAt.Format(time.RFC3339Nano),
			c.Start, c.End,
			c.TriggerIndex,
			c.Forced,
			len(c.Samples),
		)
		return nil
	}

	rt, err := acs.NewRuntime(cfg, acs.WithCaptureSink(acs.NewCallbackSink("stdout", callback)))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
