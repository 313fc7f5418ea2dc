// ABOUTME: Entry point for the snapline game client
// ABOUTME: Parses CLI flags and starts the client application
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/snapline/internal/app"
	"github.com/harperreed/snapline/internal/snapshot"
)

var (
	serverAddr       = flag.String("server", "", "Manual server address host:port (skip mDNS)")
	name             = flag.String("name", "", "Player name sent on login (default: hostname-snapline)")
	renderDelayMs    = flag.Int("render-delay-ms", int(snapshot.DefaultRenderDelay/time.Millisecond), "How far behind the server clock to render, in milliseconds")
	fps              = flag.Int("fps", 60, "Render rate in frames per second")
	logFile          = flag.String("log-file", "snapline.log", "Log file path")
	noTUI            = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	discoveryTimeout = flag.Duration("discovery-timeout", 10*time.Second, "How long to wait for an mDNS server")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI owns the terminal: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-snapline", hostname)
	}

	if *renderDelayMs <= 0 {
		log.Fatalf("render delay must be positive, got %dms", *renderDelayMs)
	}

	a := app.New(app.Config{
		ServerAddr:       *serverAddr,
		Name:             playerName,
		RenderDelay:      time.Duration(*renderDelayMs) * time.Millisecond,
		FPS:              *fps,
		UseTUI:           useTUI,
		DiscoveryTimeout: *discoveryTimeout,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down...", sig)
		a.Stop()
	}()

	if err := a.Run(); err != nil {
		if errors.Is(err, app.ErrConnectionLost) {
			log.Printf("Server closed the connection")
		}
		log.Printf("Client error: %v", err)
		fmt.Fprintf(os.Stderr, "snapline: %v\n", err)
		os.Exit(1)
	}

	log.Printf("Client stopped")
}
