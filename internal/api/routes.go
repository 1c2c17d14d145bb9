// Package api provides HTTP handlers for the watplot preview server.
package api

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/zstd"

	"github.com/sxyu/watplot/internal/blfile"
	"github.com/sxyu/watplot/internal/region"
	"github.com/sxyu/watplot/internal/service"
)

// maxPlotSize bounds requested plot and bin dimensions.
const maxPlotSize = 8192

// RenderDefaults are used for parameters a request leaves out.
type RenderDefaults struct {
	Width    int
	Height   int
	Colormap string
	LogScale bool
	Axes     bool
}

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *FileRegistry
	CORSOrigins []string
	Render      RenderDefaults
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Bins-Width", "X-Bins-Height", "X-Resolved-Rect"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.With(gzipJSON).Get("/api/files", filesHandler(cfg.Registry))

	// File-scoped routes: /f/{file}/...
	r.Route("/f/{file}", func(r chi.Router) {
		r.Use(fileMiddleware(cfg.Registry))

		r.Get("/view.png", viewPNGHandler(cfg.Render))
		r.Get("/bins", binsHandler(cfg.Render))

		r.Route("/api", func(r chi.Router) {
			r.Use(gzipJSON)
			r.Get("/header", headerHandler)
			r.Get("/view", viewHandler(cfg.Render))
			r.Get("/mean", meanHandler(cfg.Render))
		})
	})

	return r
}

func gzipJSON(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

// Context key for file service
type ctxKey string

const fileServiceKey ctxKey = "fileService"

// fileMiddleware resolves the file from URL and injects its view service into context.
func fileMiddleware(registry *FileRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fileID := chi.URLParam(r, "file")
			svc := registry.Get(fileID)
			if svc == nil {
				http.Error(w, "file not found: "+fileID, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), fileServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getFileService(r *http.Request) *service.ViewService {
	if svc, ok := r.Context().Value(fileServiceKey).(*service.ViewService); ok {
		return svc
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

// writeError maps view errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, blfile.ErrEmptyRange) || errors.Is(err, errBadParam) {
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

var errBadParam = errors.New("bad parameter")

// parseRect reads f_start/f_stop and t_start/t_stop, each pair optional and
// defaulting to the full data range. Bounds accept a trailing '%'.
func parseRect(q url.Values, full region.Rect) (region.Rect, error) {
	rect := full
	pairs := []struct {
		start, stop string
		lo, span    float64
		set         func(lo, hi float64)
	}{
		{"f_start", "f_stop", full.Y, full.Height, func(lo, hi float64) { rect = rect.WithFreq(lo, hi) }},
		{"t_start", "t_stop", full.X, full.Width, func(lo, hi float64) { rect = rect.WithTime(lo, hi) }},
	}
	for _, p := range pairs {
		a, b := q.Get(p.start), q.Get(p.stop)
		if a == "" && b == "" {
			continue
		}
		if a == "" || b == "" {
			return region.Rect{}, fmt.Errorf("%s and %s must be given together: %w", p.start, p.stop, errBadParam)
		}
		lo, hi, err := region.ParseRange(a, b, p.lo, p.span)
		if err != nil {
			if !errors.Is(err, region.ErrEmptyRange) {
				err = fmt.Errorf("%v: %w", err, errBadParam)
			}
			return region.Rect{}, err
		}
		p.set(lo, hi)
	}
	return rect, nil
}

// parseSize reads a positive integer parameter capped at maxPlotSize.
func parseSize(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, errBadParam)
	}
	return min(v, maxPlotSize), nil
}

func parseBool(q url.Values, key string, def bool) (bool, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, errBadParam)
	}
	return v, nil
}

// parseLimits reads max_w/max_h, falling back to the view limits of a
// width x height plot.
func parseLimits(q url.Values, svc *service.ViewService, defaults RenderDefaults) (int, int, error) {
	width, err := parseSize(q, "width", defaults.Width)
	if err != nil {
		return 0, 0, err
	}
	height, err := parseSize(q, "height", defaults.Height)
	if err != nil {
		return 0, 0, err
	}
	maxW, maxH := svc.ViewLimits(width, height)
	if maxW, err = parseSize(q, "max_w", maxW); err != nil {
		return 0, 0, err
	}
	if maxH, err = parseSize(q, "max_h", maxH); err != nil {
		return 0, 0, err
	}
	return maxW, maxH, nil
}

// filesHandler returns the list of available files.
func filesHandler(registry *FileRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"default": registry.DefaultFileID(),
			"files":   registry.Files(),
		})
	}
}

func headerHandler(w http.ResponseWriter, r *http.Request) {
	svc := getFileService(r)
	writeJSON(w, map[string]interface{}{
		"id":     svc.FileID(),
		"format": svc.FormatName(),
		"file":   svc.Meta(),
	})
}

func viewHandler(defaults RenderDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := getFileService(r)
		q := r.URL.Query()
		rect, err := parseRect(q, svc.Meta().DataRect)
		if err != nil {
			writeError(w, err)
			return
		}
		maxW, maxH, err := parseLimits(q, svc, defaults)
		if err != nil {
			writeError(w, err)
			return
		}
		info, err := svc.Describe(rect, maxW, maxH)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, info)
	}
}

func meanHandler(defaults RenderDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := getFileService(r)
		q := r.URL.Query()
		rect, err := parseRect(q, svc.Meta().DataRect)
		if err != nil {
			writeError(w, err)
			return
		}
		maxW, maxH, err := parseLimits(q, svc, defaults)
		if err != nil {
			writeError(w, err)
			return
		}
		mean, covered, err := svc.Mean(rect, maxW, maxH)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]interface{}{
			"mean":     mean,
			"resolved": covered,
		})
	}
}

// binsHandler streams the bin means of a view as zstd-compressed
// little-endian float64 rows, one row per frequency bin in ascending
// frequency, each row ascending in time.
func binsHandler(defaults RenderDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := getFileService(r)
		q := r.URL.Query()
		rect, err := parseRect(q, svc.Meta().DataRect)
		if err != nil {
			writeError(w, err)
			return
		}
		maxW, maxH, err := parseLimits(q, svc, defaults)
		if err != nil {
			writeError(w, err)
			return
		}
		v, err := svc.View(rect, maxW, maxH)
		if err != nil {
			writeError(w, err)
			return
		}

		m := v.Matrix
		res := v.Resolved
		w.Header().Set("Content-Type", "application/zstd")
		w.Header().Set("X-Bins-Width", strconv.Itoa(m.Width()))
		w.Header().Set("X-Bins-Height", strconv.Itoa(m.Height()))
		w.Header().Set("X-Resolved-Rect", fmt.Sprintf("%g,%g,%g,%g", res.X, res.Y, res.Width, res.Height))

		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			writeError(w, err)
			return
		}
		row := make([]float64, m.Width())
		for j := 0; j < m.Height(); j++ {
			for i := range row {
				row[i] = m.RectMean(j, i, j+1, i+1)
			}
			if err := binary.Write(enc, binary.LittleEndian, row); err != nil {
				log.Printf("[API] %s: bins write aborted: %v", svc.FileID(), err)
				enc.Close()
				return
			}
		}
		if err := enc.Close(); err != nil {
			log.Printf("[API] %s: bins write aborted: %v", svc.FileID(), err)
		}
	}
}

func viewPNGHandler(defaults RenderDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := getFileService(r)
		q := r.URL.Query()
		rect, err := parseRect(q, svc.Meta().DataRect)
		if err != nil {
			writeError(w, err)
			return
		}
		req := service.RenderRequest{Rect: rect, Colormap: defaults.Colormap}
		if req.Width, err = parseSize(q, "width", defaults.Width); err != nil {
			writeError(w, err)
			return
		}
		if req.Height, err = parseSize(q, "height", defaults.Height); err != nil {
			writeError(w, err)
			return
		}
		if cmap := q.Get("cmap"); cmap != "" {
			req.Colormap = cmap
		}
		if req.LogScale, err = parseBool(q, "log", defaults.LogScale); err != nil {
			writeError(w, err)
			return
		}
		if req.Axes, err = parseBool(q, "axes", defaults.Axes); err != nil {
			writeError(w, err)
			return
		}

		data, err := svc.RenderPNG(req)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}
