package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fastdl/mapsync/internal/app"
)

func main() {
	// Optional; deployments may carry settings paths in a .env file.
	godotenv.Load()

	cfgPath := flag.String("c", envOr("MAPSYNC_SETTINGS", "settings.yml"), "Path to settings file")
	sourcesPath := flag.String("sources", envOr("MAPSYNC_SOURCES", "sources.json"), "Path to sources file")
	doIndex := flag.Bool("index", false, "Index sources and print the summary, download nothing")
	doSync := flag.Bool("sync", false, "Run the full pipeline: index, download, decompress, cleanup")
	doDetect := flag.Bool("detect", false, "Print the auto-detected hl2mp directory")
	doProbe := flag.Bool("probe", false, "HEAD every source and print latencies")
	doList := flag.Bool("list", false, "List known sources")
	addURL := flag.String("add", "", "Add a source URL (or re-enable an existing one)")
	flag.Parse()

	a, err := app.New(*cfgPath, *sourcesPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintln(os.Stderr, "Cancelling...")
		a.Cancel()
	}()

	switch {
	case *addURL != "":
		err = a.AddSource(*addURL)
	case *doList:
		a.ListSources()
	case *doDetect:
		err = a.Detect()
	case *doProbe:
		err = a.Probe(ctx)
	case *doIndex:
		err = a.Index(ctx)
	case *doSync:
		err = a.Sync(ctx)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
