package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile = flag.String("config", "", "Path to analysis configuration YAML (defaults apply if omitted)")
	inputPath  = flag.String("input", ".", "Pixel CSV file or directory of dated CSV exports")
	outDir     = flag.String("out", "results", "Directory for JSON/CSV/image outputs")
	analyses   = flag.String("analysis", "all", "Comma-separated analyses to run: "+strings.Join(knownAnalyses, ", ")+", or all")
	renderMaps = flag.Bool("render", false, "Write heatmap/classification/outline images alongside numeric results")
	workers    = flag.Int("workers", 4, "Number of grids processed concurrently")
)

func main() {
	flag.Parse()
	fmt.Printf("geogrid version: %s\n", Version)

	app := NewApp()
	opts := AppOptions{
		ConfigFile: *configFile,
		InputPath:  *inputPath,
		OutDir:     *outDir,
		Analyses:   *analyses,
		Render:     *renderMaps,
		Workers:    *workers,
	}
	if err := app.ApplyOptions(opts); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
}
