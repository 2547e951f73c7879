package server

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/component"
)

// systemPaths are the probe and metadata routes registered by
// RegisterDefaultEndpoints.
var systemPaths = map[string]bool{
	"/health":          true,
	"/alive":           true,
	"/ready":           true,
	"/version":         true,
	"/metrics/runtime": true,
}

// routes lists the engine's routes, API routes first, then system routes,
// each group ordered by path and method.
func routes(engine *gin.Engine) []component.Route {
	ginRoutes := engine.Routes()
	sort.Slice(ginRoutes, func(i, j int) bool {
		iSys, jSys := systemPaths[ginRoutes[i].Path], systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return methodOrder(ginRoutes[i].Method) < methodOrder(ginRoutes[j].Method)
	})

	out := make([]component.Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		handler := formatHandlerName(r.Handler)
		if systemPaths[r.Path] {
			handler += " (system)"
		}
		out = append(out, component.Route{Method: r.Method, Path: r.Path, Handler: handler})
	}
	return out
}

// formatHandlerName turns Gin's full handler path into a short name:
//
//	"github.com/kbukum/primesieve/server.(*PrimesHandler).List-fm" -> "PrimesHandler.List"
//	"github.com/kbukum/primesieve/server/endpoint.Health.func1"   -> "health"
func formatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
	}

	// Drop a lowercase package prefix.
	if pkg, rest, ok := strings.Cut(name, "."); ok && rest != "" && strings.ToLower(pkg) == pkg {
		name = rest
	}
	return name
}

// methodOrder returns a sort key for HTTP methods, GET first.
func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}
