// Package httpapi is the HTTP front door onto a [manager.Manager]: the
// thinnest possible translation from the wire protocol to Manager method
// calls.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quay/zlog"

	"github.com/larchio/larch"
	"github.com/larchio/larch/manager"
)

var _ http.Handler = (*HTTP)(nil)

// HTTP is the gateway's HTTP handler, routing requests onto the Manager's
// operations.
type HTTP struct {
	*http.ServeMux
	mgr *manager.Manager
}

// NewHandler builds the HTTP front door over mgr. reg is the Prometheus
// registry /metrics exposes; it should be the same registry mgr was
// constructed with so its collectors show up there.
func NewHandler(mgr *manager.Manager, reg *prometheus.Registry) *HTTP {
	h := &HTTP{mgr: mgr}
	m := http.NewServeMux()
	m.HandleFunc("/layer/", h.Layer)
	m.HandleFunc("/file/", h.File)
	m.HandleFunc("/range/", h.Range)
	m.HandleFunc("/cache/", h.Cache)
	m.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	m.HandleFunc("/healthz", h.Healthz)
	h.ServeMux = m
	return h
}

// Healthz is a liveness probe: if the process can answer HTTP at all, it
// answers this with 200.
func (h *HTTP) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Layer serves GET /layer/<name> (stream the full layer) and
// POST /layer/<name> (ingest request body as a new layer).
func (h *HTTP) Layer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := parseName(r.URL.Path, "/layer/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ctx = zlog.ContextWithValues(ctx, "layer", name.String())

	switch r.Method {
	case http.MethodGet:
		size, stream, ok, err := h.mgr.GetLayer(ctx, name)
		if err != nil {
			zlog.Error(ctx).Err(err).Msg("get layer failed")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "Layer not found", http.StatusNotFound)
			return
		}
		defer stream.Close()
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, stream)
	case http.MethodPost:
		if err := h.mgr.UploadLayer(ctx, name, r.Body); err != nil {
			zlog.Error(ctx).Err(err).Msg("upload layer failed")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "invalid method", http.StatusBadRequest)
	}
}

// File serves GET /file/<name>/<subfile>: stream one sub-file of a layer.
func (h *HTTP) File(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		http.Error(w, "invalid method", http.StatusBadRequest)
		return
	}
	name, tag, err := parseNameAndTag(r.URL.Path, "/file/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ctx = zlog.ContextWithValues(ctx, "layer", name.String(), "subfile", string(tag))

	size, stream, ok, err := h.mgr.GetLayerFile(ctx, name, tag)
	if err != nil {
		zlog.Error(ctx).Err(err).Msg("get layer file failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Layer or sub-file not found", http.StatusNotFound)
		return
	}
	defer stream.Close()
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, stream)
}

// Range serves GET /range/<name>/<subfile>: report the absolute byte range
// of a sub-file as plain text "<start>-<end-inclusive>".
func (h *HTTP) Range(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		http.Error(w, "invalid method", http.StatusBadRequest)
		return
	}
	name, tag, err := parseNameAndTag(r.URL.Path, "/range/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ctx = zlog.ContextWithValues(ctx, "layer", name.String(), "subfile", string(tag))

	rng, ok, err := h.mgr.GetLayerFileRange(ctx, name, tag)
	if err != nil {
		zlog.Error(ctx).Err(err).Msg("get layer file range failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Layer or sub-file not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%d-%d", rng.Start, rng.End-1)
}

// Cache serves POST /cache/<name>: fire a background promotion and return
// immediately. The outcome, even failure, is never reported to the caller.
func (h *HTTP) Cache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		http.Error(w, "invalid method", http.StatusBadRequest)
		return
	}
	name, err := parseName(r.URL.Path, "/cache/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Detach from the request context: the promotion must outlive this
	// handler returning, the same way Manager's own background promotions
	// do (see manager.schedulePromotion).
	go h.mgr.TryPromote(context.WithoutCancel(ctx), name)
	w.WriteHeader(http.StatusNoContent)
}

func parseName(path, prefix string) (larch.LayerName, error) {
	s := strings.TrimPrefix(path, prefix)
	name, err := larch.ParseLayerName(s)
	if err != nil {
		return larch.LayerName{}, fmt.Errorf("malformed layer name %q: %w", s, err)
	}
	return name, nil
}

func parseNameAndTag(path, prefix string) (larch.LayerName, larch.SubFileTag, error) {
	rest := strings.TrimPrefix(path, prefix)
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return larch.LayerName{}, "", fmt.Errorf("malformed path %q: expected <name>/<subfile>", path)
	}
	name, err := larch.ParseLayerName(rest[:idx])
	if err != nil {
		return larch.LayerName{}, "", fmt.Errorf("malformed layer name in %q: %w", path, err)
	}
	return name, larch.SubFileTag(rest[idx+1:]), nil
}
