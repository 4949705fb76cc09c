package web

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"costlens/connectors/config"
	ccsv "costlens/connectors/csv"
	"costlens/domain/usage"
)

// summaryState owns the current Summary outside the engine. The engine
// stays stateless; the server replaces the held value wholesale after
// each upload.
type summaryState struct {
	mu      sync.RWMutex
	summary usage.Summary
	loaded  bool
}

func (s *summaryState) set(sum usage.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
	s.loaded = true
}

func (s *summaryState) get() (usage.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, s.loaded
}

// Run starts an Echo web server exposing the usage summary as JSON APIs
// and an optional SPA dashboard.
//
// Usage:
//
//	costlens web [-addr :8080] [-ui ./ui/dist] [-file export.csv]
//
// Endpoints:
//
//	POST /api/upload                      -> multipart field "file": decode + aggregate, replace summary
//	GET  /api/summary                     -> full Summary (404 until something is uploaded)
//	GET  /api/summary/daily               -> dailyCosts
//	GET  /api/summary/services            -> serviceBreakdown
//	GET  /api/summary/resource_groups     -> resourceGroupCosts
//
// When -ui points to a built Vite app (index.html exists), static files are served at / and
// unknown routes fall back to index.html for SPA routing.
func Run(args []string) error {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", "", "http listen address (host:port), default :8080 or server.addr from config")
	uiDir := fs.String("ui", "", "directory containing built UI (Vite dist), default ./ui/dist or server.ui_dir from config")
	file := fs.String("file", "", "usage export CSV to preload (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Flags win over config, config over defaults (same precedence as import).
	cfgPath := config.Path()
	if *addr == "" || *uiDir == "" {
		if _, err := os.Stat(cfgPath); err == nil {
			if cfg, err := config.Load(cfgPath); err == nil {
				if *addr == "" {
					*addr = cfg.Server.Addr
				}
				if *uiDir == "" {
					*uiDir = cfg.Server.UIDir
				}
			}
		}
	}
	if *addr == "" {
		*addr = ":8080"
	}
	if *uiDir == "" {
		*uiDir = "./ui/dist"
	}

	st := &summaryState{}
	if *file != "" {
		records, err := ccsv.ReadUsageFile(*file)
		if err != nil {
			slog.Error("web.preload.error", "file", *file, "error", err)
			return err
		}
		st.set(usage.Aggregate(records))
		slog.Info("web.preload.done", "file", *file, "records", len(records))
	}

	e := newServer(st, *uiDir)
	slog.Info("web.start", "addr", *addr)
	return e.Start(*addr)
}

// newServer wires the API routes and the optional static UI.
func newServer(st *summaryState, uiDir string) *echo.Echo {
	e := echo.New()

	e.POST("/api/upload", handleUpload(st))
	e.GET("/api/summary", handleSummary(st, func(s usage.Summary) any { return s }))
	e.GET("/api/summary/daily", handleSummary(st, func(s usage.Summary) any { return s.DailyCosts }))
	e.GET("/api/summary/services", handleSummary(st, func(s usage.Summary) any { return s.ServiceBreakdown }))
	e.GET("/api/summary/resource_groups", handleSummary(st, func(s usage.Summary) any { return s.ResourceGroupCosts }))

	// Static UI (optional)
	indexPath := filepath.Join(uiDir, "index.html")
	if fi, err := os.Stat(indexPath); err == nil && !fi.IsDir() {
		// Serve built assets under /
		e.Static("/", uiDir)
		// Root path -> index.html
		e.GET("/", func(c echo.Context) error { return c.File(indexPath) })

		// Fallback to index.html for non-API 404s (SPA routing) while keeping static assets working
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			// If it's a 404 and not under /api, serve the SPA index instead
			if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusNotFound {
				p := c.Request().URL.Path
				if !strings.HasPrefix(p, "/api") {
					// Try to serve index.html
					_ = c.File(indexPath)
					return
				}
			}
			e.DefaultHTTPErrorHandler(err, c)
		}
	}

	return e
}

func handleUpload(st *summaryState) echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error":   "missing file",
				"message": "multipart field \"file\" is required",
			})
		}
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error":   err.Error(),
				"message": "failed to open upload",
			})
		}
		defer f.Close()

		records, err := ccsv.DecodeUsage(f)
		if err != nil {
			slog.Warn("web.upload.decode.error", "name", fh.Filename, "error", err)
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error":   err.Error(),
				"message": "failed to decode usage export",
			})
		}

		summary, err := aggregateSafe(records)
		if err != nil {
			// Keep the server alive and present the documented empty state.
			st.set(usage.EmptySummary())
			slog.Error("web.upload.aggregate.error", "name", fh.Filename, "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":   err.Error(),
				"message": "aggregation failed, summary reset",
			})
		}

		st.set(summary)
		slog.Info("web.upload.done", "name", fh.Filename, "records", len(records), "total_cost", summary.TotalCost)
		return c.JSON(http.StatusOK, summary)
	}
}

func handleSummary(st *summaryState, section func(usage.Summary) any) echo.HandlerFunc {
	return func(c echo.Context) error {
		sum, ok := st.get()
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]any{
				"error":   "no data",
				"message": "upload a usage export first",
			})
		}
		return c.JSON(http.StatusOK, section(sum))
	}
}

// aggregateSafe runs the aggregation behind a recover boundary so an
// unexpected fault in the engine cannot take the server down.
func aggregateSafe(records []usage.UsageRecord) (s usage.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregation fault: %v", r)
		}
	}()
	return usage.Aggregate(records), nil
}
