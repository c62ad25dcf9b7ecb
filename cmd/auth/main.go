package main

import (
	"log"

	"github.com/tech-arch1tect/edgeguard"
)

func main() {
	app, err := edgeguard.NewAuthService(nil)
	if err != nil {
		log.Fatalf("failed to build auth service: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("auth service stopped: %v", err)
	}
}
