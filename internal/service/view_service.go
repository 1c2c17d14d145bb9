// Package service provides view computation and plot rendering for loaded
// waterfall files.
package service

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/sxyu/watplot/internal/blfile"
	"github.com/sxyu/watplot/internal/cache"
	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/region"
	"github.com/sxyu/watplot/internal/render"
)

// ViewServiceConfig contains view service configuration.
type ViewServiceConfig struct {
	FileID   string
	File     blfile.File
	Cache    *cache.Manager
	Renderer *render.WaterfallRenderer
	// ViewBudget bounds the bytes of one computed view matrix.
	ViewBudget int64
}

// ViewService computes and renders views of one file. View computation on
// the file is serialized; cached views and images are shared.
type ViewService struct {
	fileID   string
	file     blfile.File
	cache    *cache.Manager
	renderer *render.WaterfallRenderer
	budget   int64

	mu sync.Mutex // guards file.View
}

// ViewInfo describes how a requested rectangle maps onto the file.
type ViewInfo struct {
	Requested region.Rect `json:"requested"`
	Resolved  region.Rect `json:"resolved"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	TimeStep  int         `json:"time_step"`
	FreqStep  int         `json:"freq_step"`
	Native    bool        `json:"native"`
}

// RenderRequest describes a plot to render. A zero Rect plots the whole file.
type RenderRequest struct {
	Rect     region.Rect
	Width    int
	Height   int
	Colormap string
	LogScale bool
	Axes     bool
}

// NewViewService creates a new view service.
func NewViewService(cfg ViewServiceConfig) *ViewService {
	fileID := cfg.FileID
	if fileID == "" {
		fileID = "default"
	}
	return &ViewService{
		fileID:   fileID,
		file:     cfg.File,
		cache:    cfg.Cache,
		renderer: cfg.Renderer,
		budget:   cfg.ViewBudget,
	}
}

// Meta returns the file's metadata.
func (s *ViewService) Meta() *blfile.Record { return s.file.Meta() }

// FormatName names the file's format.
func (s *ViewService) FormatName() string { return s.file.FormatName() }

// FileID returns the id the service was registered under.
func (s *ViewService) FileID() string { return s.fileID }

// Close closes the underlying file.
func (s *ViewService) Close() error { return s.file.Close() }

// rect fills in the whole data range for a zero rectangle.
func (s *ViewService) rect(r region.Rect) region.Rect {
	r = r.Normalize()
	if r.Width == 0 && r.Height == 0 {
		return s.file.Meta().DataRect
	}
	return r
}

// ViewLimits returns the time and frequency bin limits for a plot of
// plotW x plotH pixels. The view is oversampled by the largest factor that
// keeps the matrix within the view budget; a file too short along one axis
// passes its spare share to the other.
func (s *ViewService) ViewLimits(plotW, plotH int) (maxW, maxH int) {
	plotW, plotH = max(plotW, 1), max(plotH, 1)
	rec := s.file.Meta()
	limit := float64(s.budget / 8)

	// time runs vertically, frequency horizontally
	scaleT := math.Floor(math.Sqrt(limit / float64(plotW*plotH)))
	scaleF := scaleT
	if float64(plotH)*scaleT > float64(rec.NInts) {
		scaleT = float64(rec.NInts) / float64(plotH)
		scaleF = math.Floor(limit/float64(max(rec.NInts, 1))) / float64(plotW)
	} else if float64(plotW)*scaleF > float64(rec.Header.NChans) {
		scaleF = float64(rec.Header.NChans) / float64(plotW)
		scaleT = math.Floor(limit/float64(rec.Header.NChans)) / float64(plotH)
	}
	maxW = max(int(float64(plotH)*scaleT), 1)
	maxH = max(int(float64(plotW)*scaleF), 1)
	return maxW, maxH
}

// Describe resolves rect without reading data.
func (s *ViewService) Describe(rect region.Rect, maxW, maxH int) (ViewInfo, error) {
	rect = s.rect(rect)
	rec := s.file.Meta()
	res := rec.Resolve(rect, maxW, maxH)
	if res.Empty() {
		return ViewInfo{}, fmt.Errorf("%s: %w", rect, blfile.ErrEmptyRange)
	}
	return ViewInfo{
		Requested: rect,
		Resolved:  res.Rect,
		Width:     res.OutW,
		Height:    res.OutH,
		TimeStep:  res.TStep,
		FreqStep:  res.FStep,
		Native:    res.Native(rec.NInts, rec.Header.NChans),
	}, nil
}

// View returns the prefix-summed view of rect, computing it on a cache miss.
func (s *ViewService) View(rect region.Rect, maxW, maxH int) (*cache.View, error) {
	rect = s.rect(rect)
	if s.file.Meta().Resolve(rect, maxW, maxH).Empty() {
		return nil, fmt.Errorf("%s: %w", rect, blfile.ErrEmptyRange)
	}
	key := cache.ViewKey(s.fileID, rect, maxW, maxH)
	if v, ok := s.cache.GetView(key); ok {
		return v, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.GetView(key); ok {
		return v, nil
	}

	m := grid.NewMatrix(0, 0)
	resolved, err := s.file.View(rect, m, maxW, maxH)
	if err != nil {
		return nil, fmt.Errorf("failed to compute view %s: %w", rect, err)
	}
	v := &cache.View{Matrix: m, Resolved: resolved}
	s.cache.SetView(key, v)
	log.Printf("[View] %s: %s -> %dx%d bins", s.fileID, resolved, m.Width(), m.Height())
	return v, nil
}

// Mean returns the mean sample value over rect, computed from a view of at
// most maxW x maxH bins, and the rectangle it covers.
func (s *ViewService) Mean(rect region.Rect, maxW, maxH int) (float64, region.Rect, error) {
	v, err := s.View(rect, maxW, maxH)
	if err != nil {
		return 0, region.Rect{}, err
	}
	m := v.Matrix
	return m.RectMean(0, 0, m.Height(), m.Width()), v.Resolved, nil
}

// RenderPNG renders req as a PNG image, using cached images when possible.
func (s *ViewService) RenderPNG(req RenderRequest) ([]byte, error) {
	rect := s.rect(req.Rect)
	maxW, maxH := s.ViewLimits(req.Width, req.Height)
	imageKey := cache.ImageKey(cache.ViewKey(s.fileID, rect, maxW, maxH),
		req.Width, req.Height, req.Colormap, req.LogScale, req.Axes)
	if data, ok := s.cache.GetImage(imageKey); ok {
		return data, nil
	}

	v, err := s.View(rect, maxW, maxH)
	if err != nil {
		return nil, err
	}
	plot := render.Plot{Matrix: v.Matrix, View: v.Resolved, Render: rect}
	scale := render.AutoScale(s.file.Meta().Stats, req.LogScale)
	data, err := s.renderer.Render(plot, scale, render.Options{
		Width:    req.Width,
		Height:   req.Height,
		Colormap: req.Colormap,
		Axes:     req.Axes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", rect, err)
	}

	if err := s.cache.SetImage(imageKey, data); err != nil {
		log.Printf("[View] %s: image not cached: %v", s.fileID, err)
	}
	return data, nil
}
