package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kortuz/geogrid/geo"
)

// AppOptions carries the CLI flag values into the application.
type AppOptions struct {
	ConfigFile string
	InputPath  string
	OutDir     string
	Analyses   string
	Render     bool
	Workers    int
}

// App encapsulates the analysis pipeline state and dependencies.
type App struct {
	Config *geo.AnalysisConfig

	ConfigFile string
	InputPath  string
	OutDir     string
	Analyses   map[string]bool
	Render     bool
	Workers    int
}

// NewApp creates a new App instance with default configuration.
func NewApp() *App {
	return &App{
		Config:   geo.DefaultAnalysisConfig(),
		Analyses: map[string]bool{"all": true},
		Workers:  4,
	}
}

// knownAnalyses lists the selectable analysis steps for -analysis.
var knownAnalyses = []string{
	"stats", "smooth", "hotspots", "regions", "kmeans", "dbscan",
	"moran", "quadrants", "diff", "trend",
}

// ApplyOptions applies CLI options to the App instance.
func (a *App) ApplyOptions(opts AppOptions) error {
	a.ConfigFile = opts.ConfigFile
	a.InputPath = opts.InputPath
	a.OutDir = opts.OutDir
	a.Render = opts.Render
	a.Workers = opts.Workers
	if a.Workers < 1 {
		a.Workers = 1
	}

	selected, err := parseAnalyses(opts.Analyses)
	if err != nil {
		return err
	}
	a.Analyses = selected

	if opts.ConfigFile != "" {
		cfg, err := geo.LoadConfig(opts.ConfigFile)
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	return nil
}

func parseAnalyses(list string) (map[string]bool, error) {
	selected := make(map[string]bool)
	if list == "" || list == "all" {
		selected["all"] = true
		return selected, nil
	}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		known := false
		for _, k := range knownAnalyses {
			if name == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown analysis %q (available: %s)", name, strings.Join(knownAnalyses, ", "))
		}
		selected[name] = true
	}
	return selected, nil
}

func (a *App) enabled(name string) bool {
	return a.Analyses["all"] || a.Analyses[name]
}

// GridInput is one pixel CSV export, with the acquisition date parsed
// from the filename when present (e.g. ndvi-2024-03-01.csv).
type GridInput struct {
	Path string
	Name string
	Date *time.Time
}

// DateResult bundles the per-grid analysis outputs that go into the
// JSON summary. Rasters and masks are written separately.
type DateResult struct {
	Name          string             `json:"name"`
	Date          *time.Time         `json:"date,omitempty"`
	Stats         geo.GridStats      `json:"stats"`
	Advanced      *geo.AdvancedStats `json:"advanced,omitempty"`
	Heterogeneity string             `json:"heterogeneity,omitempty"`
	Hotspots      *HotspotSummary    `json:"hotspots,omitempty"`
	Moran         *geo.MoranResult   `json:"moran,omitempty"`
	Regions       *RegionSummary     `json:"regions,omitempty"`
	KMeansZones   []geo.ZoneStats    `json:"kmeansZones,omitempty"`
	DBSCANZones   []geo.ZoneStats    `json:"dbscanZones,omitempty"`
	DBSCANNoise   float64            `json:"dbscanNoisePct,omitempty"`
	Quadrants     []geo.ZoneStats    `json:"quadrantZones,omitempty"`

	grid *geo.Grid
}

// HotspotSummary is the scalar part of a hotspot detection, without the
// cell masks.
type HotspotSummary struct {
	Method          string  `json:"method"`
	NHotspots       int     `json:"nHotspots"`
	NColdspots      int     `json:"nColdspots"`
	PctHot          float64 `json:"pctHot"`
	PctCold         float64 `json:"pctCold"`
	MeanHot         float64 `json:"meanHot,omitempty"`
	MeanHotDefined  bool    `json:"meanHotDefined"`
	MeanCold        float64 `json:"meanCold,omitempty"`
	MeanColdDefined bool    `json:"meanColdDefined"`
}

// RegionSummary is the scalar part of a region labeling, without the
// label map.
type RegionSummary struct {
	NRegions int     `json:"nRegions"`
	MeanSize float64 `json:"meanSize"`
	MinSize  int     `json:"minSize"`
	MaxSize  int     `json:"maxSize"`
}

// SeriesResult is the cross-date output written once per run.
type SeriesResult struct {
	Dates       []time.Time            `json:"dates"`
	Means       []float64              `json:"means"`
	Trend       *geo.TrendResult       `json:"trend,omitempty"`
	MannKendall *geo.MannKendallResult `json:"mannKendall,omitempty"`
	Velocity    []geo.VelocityPoint    `json:"velocity,omitempty"`
	Diff        *DiffSummary           `json:"diff,omitempty"`
}

// DiffSummary is the scalar part of a first-to-last grid comparison.
type DiffSummary struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Threshold float64 `json:"threshold"`
	PctIncr   float64 `json:"pctIncrease"`
	PctDecr   float64 `json:"pctDecrease"`
	PctSame   float64 `json:"pctNoChange"`
}

// Run executes the configured analyses over every input grid.
func (a *App) Run() error {
	inputs, err := a.discoverInputs()
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no csv inputs found at %s", a.InputPath)
	}
	if err := os.MkdirAll(a.OutDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	log.Printf("Processing %d grid(s) with %d worker(s)", len(inputs), a.Workers)

	results := make([]*DateResult, len(inputs))
	errs := make([]error, len(inputs))

	sem := make(chan struct{}, a.Workers)
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in GridInput) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = a.processGrid(in)
		}(i, in)
	}
	wg.Wait()

	processed := make([]*DateResult, 0, len(results))
	for i, err := range errs {
		if err != nil {
			log.Printf("Warning: %s: %v", inputs[i].Name, err)
			continue
		}
		processed = append(processed, results[i])
	}
	if len(processed) == 0 {
		return fmt.Errorf("no grid could be processed")
	}

	for _, res := range processed {
		if err := a.writeGridOutputs(res); err != nil {
			return err
		}
	}

	if a.enabled("trend") || a.enabled("diff") {
		if err := a.writeSeriesOutputs(processed); err != nil {
			return err
		}
	}

	log.Printf("Results written to %s", a.OutDir)
	return nil
}

// discoverInputs resolves -input into a sorted list of CSV files. A
// directory is scanned for *.csv; a single file is taken as is.
func (a *App) discoverInputs() ([]GridInput, error) {
	info, err := os.Stat(a.InputPath)
	if err != nil {
		return nil, fmt.Errorf("input path: %w", err)
	}

	var files []string
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(a.InputPath, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("scanning input directory: %w", err)
		}
		sort.Strings(files)
	} else {
		files = []string{a.InputPath}
	}

	inputs := make([]GridInput, 0, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		inputs = append(inputs, GridInput{Path: f, Name: name, Date: dateFromName(name)})
	}
	return inputs, nil
}

// dateFromName parses a trailing YYYY-MM-DD out of a file stem, the
// naming convention of dated exports.
func dateFromName(name string) *time.Time {
	if len(name) < 10 {
		return nil
	}
	d, err := time.Parse("2006-01-02", name[len(name)-10:])
	if err != nil {
		return nil
	}
	return &d
}

// processGrid loads one CSV, cleans it, and runs the selected analyses.
// Analyses that come back empty or degenerate are logged and skipped;
// only load failures abort the grid.
func (a *App) processGrid(in GridInput) (*DateResult, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", in.Path, err)
	}
	defer f.Close()

	raw, err := geo.LoadPixelCSV(f)
	if err != nil {
		return nil, err
	}
	g := raw.Clean(a.Config.InvalidValues...)

	if a.enabled("smooth") {
		smoothed, err := geo.SmoothGaussian(g, a.Config.SmoothSigma)
		if err != nil {
			return nil, fmt.Errorf("smoothing %s: %w", in.Name, err)
		}
		g = smoothed
	}

	res := &DateResult{Name: in.Name, Date: in.Date, grid: g}
	res.Stats = geo.Describe(g)

	if a.enabled("stats") {
		adv := geo.DescribeAdvanced(g)
		res.Advanced = &adv
		res.Heterogeneity = string(geo.Heterogeneity(g))
	}

	if a.enabled("hotspots") {
		method, err := geo.ParseHotspotMethod(a.Config.Hotspot.Method)
		if err != nil {
			return nil, err
		}
		hs, err := geo.DetectHotspots(g, method, a.Config.Hotspot.Threshold)
		if skippable(err) {
			log.Printf("%s: hotspots skipped: %v", in.Name, err)
		} else if err != nil {
			return nil, err
		} else {
			res.Hotspots = &HotspotSummary{
				Method:          method.String(),
				NHotspots:       hs.NHotspots,
				NColdspots:      hs.NColdspots,
				PctHot:          hs.PctHot,
				PctCold:         hs.PctCold,
				MeanHot:         hs.MeanHot,
				MeanHotDefined:  hs.MeanHotDefined,
				MeanCold:        hs.MeanCold,
				MeanColdDefined: hs.MeanColdDefined,
			}
			if a.Render {
				if err := a.writePNG(in.Name+"-hotspots.png", geo.RenderHotspotMapWithLegend(g, hs, a.Config.Render.Scale)); err != nil {
					return nil, err
				}
			}
			if a.Config.Transform != nil {
				if err := a.writeGeoJSON(in.Name+"-hotspots.geojson", geo.HotspotsToGeoJSON(g, hs, *a.Config.Transform)); err != nil {
					return nil, err
				}
			}
		}

		if res.Hotspots != nil && a.enabled("regions") {
			regions, err := geo.LabelRegions(hs.Hotspots, geo.Conn8)
			if err != nil {
				return nil, err
			}
			res.Regions = &RegionSummary{
				NRegions: regions.NRegions,
				MeanSize: regions.MeanSize,
				MinSize:  regions.MinSize,
				MaxSize:  regions.MaxSize,
			}
			if a.Config.Transform != nil && regions.NRegions > 0 {
				if err := a.writeGeoJSON(in.Name+"-regions.geojson", geo.RegionsToGeoJSON(regions, *a.Config.Transform)); err != nil {
					return nil, err
				}
			}
		}
	}

	if a.enabled("moran") {
		hood, err := geo.ParseNeighborhood(a.Config.Moran.Neighborhood)
		if err != nil {
			return nil, err
		}
		moran, err := geo.MoranI(g, hood)
		if skippable(err) {
			log.Printf("%s: moran skipped: %v", in.Name, err)
		} else if err != nil {
			return nil, err
		} else {
			res.Moran = moran
		}
	}

	includeCoords := a.Config.Cluster.IncludeCoords == nil || *a.Config.Cluster.IncludeCoords

	if a.enabled("kmeans") {
		km, err := geo.ClusterKMeans(g, a.Config.Cluster.K, includeCoords)
		if skippable(err) {
			log.Printf("%s: kmeans skipped: %v", in.Name, err)
		} else if err != nil {
			return nil, err
		} else {
			res.KMeansZones = km.Zones
			if a.Render {
				if err := a.writePNG(in.Name+"-kmeans.png", geo.RenderClassification(km.Assignment, a.Config.Render.Scale)); err != nil {
					return nil, err
				}
			}
		}
	}

	if a.enabled("dbscan") {
		db, err := geo.ClusterDBSCAN(g, a.Config.Cluster.Eps, a.Config.Cluster.MinSamples, includeCoords)
		if skippable(err) {
			log.Printf("%s: dbscan skipped: %v", in.Name, err)
		} else if err != nil {
			return nil, err
		} else {
			res.DBSCANZones = db.Zones
			res.DBSCANNoise = db.PctNoise
			if a.Render {
				if err := a.writePNG(in.Name+"-dbscan.png", geo.RenderClassification(db.Assignment, a.Config.Render.Scale)); err != nil {
					return nil, err
				}
			}
		}
	}

	if a.enabled("quadrants") {
		quads, err := geo.PartitionQuadrants(g, a.Config.Quadrants.Rows, a.Config.Quadrants.Cols)
		if err != nil {
			return nil, err
		}
		zones := make([]geo.ZoneStats, 0, len(quads.Quadrants))
		for _, q := range quads.Quadrants {
			zones = append(zones, q.Stats)
		}
		res.Quadrants = zones
		if a.Render {
			out, err := os.Create(filepath.Join(a.OutDir, in.Name+"-quadrants.svg"))
			if err != nil {
				return nil, fmt.Errorf("creating quadrant svg: %w", err)
			}
			zr := geo.NewZoneOutlineRenderer()
			if err := zr.RenderSVG(out, g, quads); err != nil {
				out.Close()
				return nil, fmt.Errorf("rendering %s quadrants: %w", in.Name, err)
			}
			if err := out.Close(); err != nil {
				return nil, err
			}
		}
		if a.Config.Transform != nil {
			if err := a.writeGeoJSON(in.Name+"-quadrants.geojson", geo.QuadrantsToGeoJSON(quads, *a.Config.Transform)); err != nil {
				return nil, err
			}
		}
	}

	return res, nil
}

// skippable reports whether an analysis error means "no result for this
// grid" rather than a misconfiguration.
func skippable(err error) bool {
	return errors.Is(err, geo.ErrNoData) ||
		errors.Is(err, geo.ErrInsufficientData) ||
		errors.Is(err, geo.ErrDegenerate)
}

func (a *App) writeGridOutputs(res *DateResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary for %s: %w", res.Name, err)
	}
	if err := os.WriteFile(filepath.Join(a.OutDir, res.Name+".json"), data, 0644); err != nil {
		return fmt.Errorf("writing summary for %s: %w", res.Name, err)
	}

	if len(res.KMeansZones) > 0 {
		if err := a.writeZoneCSV(res.Name+"-kmeans.csv", res.KMeansZones); err != nil {
			return err
		}
	}
	if len(res.Quadrants) > 0 {
		if err := a.writeZoneCSV(res.Name+"-quadrants.csv", res.Quadrants); err != nil {
			return err
		}
	}

	if a.Render {
		ramp, err := geo.RampByName(a.Config.Render.Palette)
		if err != nil {
			return err
		}
		if err := a.writePNG(res.Name+"-heatmap.png", geo.RenderHeatmapWithLegend(res.grid, ramp, a.Config.Render.Scale)); err != nil {
			return err
		}
	}
	return nil
}

// writeSeriesOutputs runs the cross-date analyses over the dated subset
// of the processed grids and writes series.json.
func (a *App) writeSeriesOutputs(results []*DateResult) error {
	dated := make([]*DateResult, 0, len(results))
	for _, r := range results {
		if r.Date != nil && r.Stats.N > 0 {
			dated = append(dated, r)
		}
	}
	if len(dated) < 2 {
		log.Printf("Series analyses need at least 2 dated grids, have %d", len(dated))
		return nil
	}
	sort.Slice(dated, func(i, j int) bool { return dated[i].Date.Before(*dated[j].Date) })

	series := &SeriesResult{}
	for _, r := range dated {
		series.Dates = append(series.Dates, *r.Date)
		series.Means = append(series.Means, r.Stats.Mean)
	}

	if a.enabled("trend") {
		trend, err := geo.LinearTrend(series.Dates, series.Means)
		if skippable(err) {
			log.Printf("Trend skipped: %v", err)
		} else if err != nil {
			return err
		} else {
			series.Trend = trend
		}

		mk, err := geo.MannKendall(series.Means)
		if skippable(err) {
			log.Printf("Mann-Kendall skipped: %v", err)
		} else if err != nil {
			return err
		} else {
			series.MannKendall = mk
		}

		if vel, err := geo.RollingVelocity(series.Dates, series.Means); err == nil {
			series.Velocity = vel
		}
	}

	if a.enabled("diff") {
		first, last := dated[0], dated[len(dated)-1]
		diff, err := geo.DiffGrids(first.grid, last.grid)
		if skippable(err) {
			log.Printf("Diff skipped: %v", err)
		} else if err != nil {
			return err
		} else {
			series.Diff = &DiffSummary{
				From:      first.Name,
				To:        last.Name,
				Mean:      diff.Mean,
				Std:       diff.Std,
				Threshold: diff.Threshold,
				PctIncr:   diff.PctIncr,
				PctDecr:   diff.PctDecr,
				PctSame:   diff.PctSame,
			}
			if a.Render {
				if err := a.writePNG("diff.png", geo.RenderHeatmapWithLegend(diff.Diff, geo.DivergingRamp, a.Config.Render.Scale)); err != nil {
					return err
				}
			}
		}
	}

	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding series summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.OutDir, "series.json"), data, 0644); err != nil {
		return fmt.Errorf("writing series summary: %w", err)
	}
	return nil
}

func (a *App) writeZoneCSV(name string, zones []geo.ZoneStats) error {
	f, err := os.Create(filepath.Join(a.OutDir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()
	if err := geo.WriteZoneStatsCSV(f, zones); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (a *App) writePNG(name string, img image.Image) error {
	f, err := os.Create(filepath.Join(a.OutDir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()
	if err := geo.EncodePNG(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return nil
}

func (a *App) writeGeoJSON(name string, fc json.Marshaler) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(a.OutDir, name), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
