// Package proxy forwards authenticated traffic to the backing services by
// route prefix.
package proxy

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	transporthttp "github.com/aBasicDream/tc/internal/transport/httputil"
)

// Route maps a path prefix to a backend base URL.
type Route struct {
	Prefix string
	Target *url.URL
}

// Handler routes requests to the backend whose prefix matches longest.
type Handler struct {
	routes []route
	logger *slog.Logger
}

type route struct {
	prefix string
	proxy  *httputil.ReverseProxy
}

// New builds a routing handler. Targets that share a prefix keep the last
// entry; lookup prefers the longest matching prefix.
func New(logger *slog.Logger, routes []Route) *Handler {
	h := &Handler{logger: logger}
	for _, r := range routes {
		rp := httputil.NewSingleHostReverseProxy(r.Target)
		rp.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
			logger.Error("backend unreachable",
				slog.String("path", req.URL.Path),
				slog.String("error", err.Error()),
			)
			transporthttp.WriteErrorMessage(w, req, http.StatusBadGateway, "backend unavailable")
		}
		h.routes = append(h.routes, route{prefix: r.Prefix, proxy: rp})
	}
	// Longest prefix first so lookup can take the first match.
	sort.SliceStable(h.routes, func(i, j int) bool {
		return len(h.routes[i].prefix) > len(h.routes[j].prefix)
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range h.routes {
		if strings.HasPrefix(r.URL.Path, rt.prefix) {
			rt.proxy.ServeHTTP(w, r)
			return
		}
	}
	transporthttp.WriteErrorMessage(w, r, http.StatusNotFound, "no route for path")
}
