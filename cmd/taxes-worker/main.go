package main

import (
	"context"
	"log"

	"github.com/enzopoeta/i2a2-final/internal/app/bootstrap"
)

func main() {
	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap taxes worker runtime: %v", err)
	}
	if err := runtime.RunTaxesWorker(ctx); err != nil {
		log.Fatalf("run taxes worker: %v", err)
	}
}
