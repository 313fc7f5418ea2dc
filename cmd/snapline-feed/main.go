// ABOUTME: Entry point for the snapline feed server
// ABOUTME: Parses CLI flags, loads or generates a track and serves it
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/harperreed/snapline/internal/feed"
)

var (
	port      = flag.Int("port", 8080, "WebSocket server port")
	name      = flag.String("name", "", "Server friendly name (default: hostname-snapline-feed)")
	trackFile = flag.String("track", "", "JSON-lines recording of update messages. Empty plays the orbit demo")
	bots      = flag.Int("bots", 4, "Bots in the orbit demo")
	tickMs    = flag.Int("tick-ms", 50, "Update interval of the orbit demo in milliseconds")
	jitterMs  = flag.Int("jitter-ms", 0, "Random extra delay per update, up to this many milliseconds")
	loops     = flag.Int("loops", 0, "Replays per viewer before sending end (0 = forever)")
	logFile   = flag.String("log-file", "snapline-feed.log", "Log file path")
	noMDNS    = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI     = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-snapline-feed", hostname)
	}

	track, trackName, err := loadTrack()
	if err != nil {
		log.Fatalf("Failed to load track: %v", err)
	}

	log.Printf("Starting snapline feed: %s on port %d", serverName, *port)
	log.Printf("Logging to: %s", *logFile)

	srv := feed.New(feed.Config{
		Port:       *port,
		Name:       serverName,
		Track:      track,
		TrackName:  trackName,
		Jitter:     time.Duration(*jitterMs) * time.Millisecond,
		Loops:      *loops,
		EnableMDNS: !*noMDNS,
		UseTUI:     useTUI,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}

func loadTrack() (*feed.Track, string, error) {
	if *trackFile == "" {
		return feed.GenerateTrack(feed.GenerateConfig{
			Bots:     *bots,
			Interval: time.Duration(*tickMs) * time.Millisecond,
		}), "orbit demo", nil
	}

	r, err := os.Open(*trackFile)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	track, err := feed.LoadTrack(r)
	if err != nil {
		return nil, "", err
	}
	return track, filepath.Base(*trackFile), nil
}
