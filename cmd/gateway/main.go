package main

import (
	"log"

	"github.com/tech-arch1tect/edgeguard"
)

func main() {
	app, err := edgeguard.NewGateway(nil)
	if err != nil {
		log.Fatalf("failed to build gateway: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("gateway stopped: %v", err)
	}
}
