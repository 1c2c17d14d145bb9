// Package main is the entry point for the watplot waterfall viewer.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sxyu/watplot/internal/blfile"
	"github.com/sxyu/watplot/internal/cache"
	"github.com/sxyu/watplot/internal/config"
	"github.com/sxyu/watplot/internal/data"
	"github.com/sxyu/watplot/internal/region"
	"github.com/sxyu/watplot/internal/render"
	"github.com/sxyu/watplot/internal/service"
	"github.com/sxyu/watplot/internal/sysmem"
)

const usage = `usage: watplot [flags] [stat] <data_file_path> [f_start[%%] f_stop[%%] [t_start[%%] t_stop[%%]]]

stat: display header information only (range arguments are ignored).
f_start, f_stop: frequency range. Append '%%' to use percent of the data range,
                 e.g., watplot file 0%% 50%%.
t_start, t_stop: time range.
formats supported: %s

flags:
`

// options holds the parsed command line.
type options struct {
	configPath string
	output     string
	serve      bool
	width      int
	height     int
	cmap       string
	logScale   bool
	axes       bool
	set        map[string]bool

	stat   bool
	path   string
	ranges []string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("watplot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := &options{set: make(map[string]bool)}
	fs.StringVar(&opts.configPath, "config", "config/watplot.yaml", "Path to configuration file")
	fs.StringVar(&opts.output, "o", "waterfall.png", "Output PNG path")
	fs.BoolVar(&opts.serve, "serve", false, "Serve the file and configured files over HTTP")
	fs.IntVar(&opts.width, "width", 0, "Plot width in pixels (default from config)")
	fs.IntVar(&opts.height, "height", 0, "Plot height in pixels (default from config)")
	fs.StringVar(&opts.cmap, "cmap", "", "Colormap name (default from config)")
	fs.BoolVar(&opts.logScale, "log", false, "Use a log color scale")
	fs.BoolVar(&opts.axes, "axes", true, "Draw axes and colorbar")
	fs.Usage = func() {
		fmt.Fprintf(stderr, usage, fmt.Sprint(data.Extensions))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	rest := fs.Args()
	if len(rest) > 0 && rest[0] == "stat" {
		opts.stat = true
		rest = rest[1:]
	}
	switch {
	case len(rest) == 0 && opts.serve && !opts.stat:
		return opts, nil
	case len(rest) != 1 && len(rest) != 3 && len(rest) != 5:
		fs.Usage()
		return nil, flag.ErrHelp
	}
	opts.path, opts.ranges = rest[0], rest[1:]
	return opts, nil
}

// applyRanges narrows full by the positional frequency and time ranges.
func applyRanges(full region.Rect, ranges []string) (region.Rect, error) {
	rect := full
	if len(ranges) >= 2 {
		lo, hi, err := region.ParseRange(ranges[0], ranges[1], full.Y, full.Height)
		if err != nil {
			return region.Rect{}, fmt.Errorf("frequency range: %w", err)
		}
		rect = rect.WithFreq(lo, hi)
	}
	if len(ranges) >= 4 {
		lo, hi, err := region.ParseRange(ranges[2], ranges[3], full.X, full.Width)
		if err != nil {
			return region.Rect{}, fmt.Errorf("time range: %w", err)
		}
		rect = rect.WithTime(lo, hi)
	}
	return rect, nil
}

// exitCode maps load and range errors onto process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, blfile.ErrUnknownKeyword):
		return 2
	case errors.Is(err, blfile.ErrUnsupportedBits):
		return 3
	case errors.Is(err, blfile.ErrBadSignature):
		return 4
	case errors.Is(err, blfile.ErrUnknownFormat):
		return 5
	case errors.Is(err, blfile.ErrEmptyRange):
		return 6
	}
	return 1
}

// applyFlags overrides config render settings with flags given explicitly.
func applyFlags(cfg *config.Config, opts *options) {
	if opts.width > 0 {
		cfg.Render.Width = opts.width
	}
	if opts.height > 0 {
		cfg.Render.Height = opts.height
	}
	if opts.cmap != "" {
		cfg.Render.DefaultColormap = opts.cmap
	}
	if opts.set["log"] {
		cfg.Render.LogScale = opts.logScale
	}
	if opts.set["axes"] {
		axes := opts.axes
		cfg.Render.Axes = &axes
	}
}

// newViewService wires a loaded file to the shared cache and renderer.
func newViewService(id string, f blfile.File, cfg *config.Config, cm *cache.Manager, budget int64) *service.ViewService {
	return service.NewViewService(service.ViewServiceConfig{
		FileID:     id,
		File:       f,
		Cache:      cm,
		Renderer:   render.NewWaterfallRenderer(render.Config{DefaultColormap: cfg.Render.DefaultColormap}),
		ViewBudget: budget / int64(max(cfg.Cache.Views, 1)),
	})
}

func newCache(cfg *config.Config) (*cache.Manager, error) {
	return cache.NewManager(cache.Config{
		ImageCacheSizeMB: cfg.Cache.ImageSizeMB,
		ImageTTL:         time.Duration(cfg.Cache.ImageTTLMinutes) * time.Minute,
		ViewCacheSize:    cfg.Cache.Views,
	})
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cfg, opts)
	budget := sysmem.Budget(cfg.Memory.Fraction)

	if opts.serve {
		return serve(cfg, opts.path, budget)
	}

	f, err := data.Load(opts.path, budget)
	if err != nil {
		return err
	}
	defer f.Close()

	if opts.stat {
		if len(opts.ranges) > 0 {
			log.Printf("WARNING: stat specified, range arguments ignored")
		}
		f.Meta().Summary(stdout, f.FormatName())
		return nil
	}

	rect, err := applyRanges(f.Meta().DataRect, opts.ranges)
	if err != nil {
		return err
	}
	return snapshot(cfg, f, rect, opts.output, budget)
}

// snapshot renders rect to a PNG file.
func snapshot(cfg *config.Config, f blfile.File, rect region.Rect, output string, budget int64) error {
	cm, err := newCache(cfg)
	if err != nil {
		return err
	}
	defer cm.Close()

	svc := newViewService(config.FileID(f.Meta().Path), f, cfg, cm, budget)
	img, err := svc.RenderPNG(service.RenderRequest{
		Rect:     rect,
		Width:    cfg.Render.Width,
		Height:   cfg.Render.Height,
		Colormap: cfg.Render.DefaultColormap,
		LogScale: cfg.Render.LogScale,
		Axes:     cfg.Render.ShowAxes(),
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, img, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	log.Printf("Wrote %s (%s)", output, rect)
	return nil
}

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
