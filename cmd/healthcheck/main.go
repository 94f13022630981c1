// Package main is a container health probe: it checks the gateway's
// health endpoint and, optionally, one websocket handshake, and exits
// non-zero on failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"sharkspread/internal/adapter"
	"sharkspread/internal/domain"
	"sharkspread/internal/probe"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "gateway base URL")
	wsURL := flag.String("ws", "", "optional websocket URL to handshake against")
	timeout := flag.Duration("timeout", 5*time.Second, "overall deadline")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backend := adapter.NewBackend(adapter.BackendOptions{BaseURL: *baseURL})
	if err := backend.Healthz(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
		os.Exit(1)
	}

	if *wsURL != "" {
		p := probe.New(probe.Options{Endpoint: *wsURL, HandshakeTimeout: *timeout})
		if state := p.Check(ctx); state != domain.ConnConnected {
			fmt.Fprintf(os.Stderr, "websocket unhealthy: %s\n", state)
			os.Exit(1)
		}
	}

	fmt.Println("ok")
}
