package e2etesting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

type RouteInfo struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	HitCount int    `json:"hit_count,omitempty"`
}

func (r RouteInfo) String() string {
	return r.Method + " " + r.Path
}

type CoverageStats struct {
	TotalRoutes   int
	CoveredRoutes int
	MissingRoutes []RouteInfo
	Coverage      float64
}

// CoverageTracker records which registered routes a test run reached.
type CoverageTracker struct {
	mu               sync.RWMutex
	registeredRoutes map[string]RouteInfo
	hitRoutes        map[string]int
	excludePatterns  []string
}

func NewCoverageTracker() *CoverageTracker {
	return &CoverageTracker{
		registeredRoutes: make(map[string]RouteInfo),
		hitRoutes:        make(map[string]int),
		excludePatterns:  []string{"github.com/labstack/echo/v4"},
	}
}

func routeKey(method, path string) string {
	return method + ":" + path
}

func (ct *CoverageTracker) RegisterRoutes(e *echo.Echo) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	for _, route := range e.Routes() {
		if ct.excluded(route) {
			continue
		}
		ct.registeredRoutes[routeKey(route.Method, route.Path)] = RouteInfo{
			Method: route.Method,
			Path:   route.Path,
		}
	}
}

func (ct *CoverageTracker) excluded(route *echo.Route) bool {
	for _, pattern := range ct.excludePatterns {
		if strings.Contains(route.Name, pattern) || strings.HasPrefix(route.Path, pattern) {
			return true
		}
	}
	return false
}

func (ct *CoverageTracker) AddExcludePattern(pattern string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.excludePatterns = append(ct.excludePatterns, pattern)
}

func (ct *CoverageTracker) TrackingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ct.RecordHit(c.Request().Method, c.Path())
			return next(c)
		}
	}
}

func (ct *CoverageTracker) RecordHit(method, path string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.hitRoutes[routeKey(method, path)]++
}

func (ct *CoverageTracker) GetHitCount(method, path string) int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.hitRoutes[routeKey(method, path)]
}

func (ct *CoverageTracker) GetStats() CoverageStats {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	var missing []RouteInfo
	covered := 0
	for key, route := range ct.registeredRoutes {
		if ct.hitRoutes[key] > 0 {
			covered++
		} else {
			missing = append(missing, route)
		}
	}
	sortRoutes(missing)

	total := len(ct.registeredRoutes)
	var coverage float64
	if total > 0 {
		coverage = float64(covered) / float64(total) * 100
	}

	return CoverageStats{
		TotalRoutes:   total,
		CoveredRoutes: covered,
		MissingRoutes: missing,
		Coverage:      coverage,
	}
}

func (ct *CoverageTracker) PrintReportTo(w io.Writer) {
	stats := ct.GetStats()
	fmt.Fprintf(w, "Route coverage: %d/%d (%.1f%%)\n", stats.CoveredRoutes, stats.TotalRoutes, stats.Coverage)
	for _, route := range stats.MissingRoutes {
		fmt.Fprintf(w, "  missing: %s\n", route)
	}
}

func sortRoutes(routes []RouteInfo) {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
}
