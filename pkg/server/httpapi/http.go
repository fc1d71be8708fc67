// Package httpapi serves blob bytes over HTTP so content URLs handed out by
// the provider backend resolve to real data.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacktea/mofs/pkg/blobstore"
	"github.com/jacktea/mofs/pkg/server/middleware"
	"github.com/jacktea/mofs/pkg/xerrors"
)

// sniffLen bounds the prefix used to detect a content type.
const sniffLen = 3072

// Server exposes a blob table over HTTP.
type Server struct {
	Blobs blobstore.Store
	// Authority, when set, is the only authority Resolve accepts.
	Authority string
	Log       logr.Logger
	// Gatherer, when set, is served on /metrics.
	Gatherer prometheus.Gatherer
	Opts     Options
}

// Options configure auth and rate limiting.
type Options struct {
	APIKey    string
	RateLimit middleware.RateLimitOptions
}

// Ref addresses a byte range of a blob.
type Ref struct {
	ID     string
	Offset int64
	// Size is -1 when the range runs to the end of the blob.
	Size int64
	Type string
}

// Path is the request path serving r.
func (r Ref) Path() string {
	q := url.Values{}
	if r.Offset != 0 {
		q.Set("offset", strconv.FormatInt(r.Offset, 10))
	}
	if r.Size >= 0 {
		q.Set("size", strconv.FormatInt(r.Size, 10))
	}
	if r.Type != "" {
		q.Set("type", r.Type)
	}
	p := "/blob/" + url.PathEscape(r.ID)
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return p
}

// Resolve parses a content://<authority>/blob/<id> URL.
func (s *Server) Resolve(contentURL string) (Ref, error) {
	const op = "resolve"
	u, err := url.Parse(contentURL)
	if err != nil {
		return Ref{}, xerrors.Wrap(xerrors.KindInvalid, op, contentURL, err)
	}
	if u.Scheme != "content" {
		return Ref{}, xerrors.Wrap(xerrors.KindInvalid, op, contentURL, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if s.Authority != "" && u.Host != s.Authority {
		return Ref{}, xerrors.Wrap(xerrors.KindNotFound, op, contentURL, fmt.Errorf("unknown authority %q", u.Host))
	}
	ref, err := refFromRequest(u.Path, u.Query())
	if err != nil {
		return Ref{}, xerrors.Wrap(xerrors.KindInvalid, op, contentURL, err)
	}
	return ref, nil
}

func refFromRequest(p string, q url.Values) (Ref, error) {
	id, ok := strings.CutPrefix(p, "/blob/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return Ref{}, fmt.Errorf("not a blob path: %q", p)
	}
	ref := Ref{ID: id, Size: -1, Type: q.Get("type")}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return Ref{}, fmt.Errorf("invalid offset %q", raw)
		}
		ref.Offset = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return Ref{}, fmt.Errorf("invalid size %q", raw)
		}
		ref.Size = n
	}
	return ref, nil
}

// Start begins listening on addr until ctx is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/blob/", s.handleBlob)
	if s.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return s.applyMiddleware(mux)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ref, err := refFromRequest(r.URL.Path, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.serveBlob(r.Context(), w, r, ref)
}

func (s *Server) serveBlob(ctx context.Context, w http.ResponseWriter, r *http.Request, ref Ref) {
	meta, err := s.Blobs.Stat(ctx, ref.ID)
	if err != nil {
		httpError(w, err)
		return
	}
	if ref.Offset > meta.Size {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", meta.Size))
		http.Error(w, "offset beyond blob", http.StatusRequestedRangeNotSatisfiable)
		return
	}
	size := meta.Size - ref.Offset
	if ref.Size >= 0 && ref.Size < size {
		size = ref.Size
	}
	start, end := int64(0), size-1
	status := http.StatusOK
	w.Header().Set("Accept-Ranges", "bytes")
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, end, err = parseRangeHeader(rangeHeader, size)
		if err != nil {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			http.Error(w, "invalid range", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		status = http.StatusPartialContent
	}
	length := end - start + 1
	var body []byte
	if length > 0 {
		body, err = s.Blobs.ReadRange(ctx, ref.ID, ref.Offset+start, length)
		if err != nil {
			httpError(w, err)
			return
		}
	}
	w.Header().Set("Content-Type", s.contentType(ctx, ref, meta, body, start))
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(body)), 10))
	if meta.Name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", meta.Name))
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		s.logger().V(1).Info("write blob", "id", ref.ID, "error", err.Error())
	}
}

// contentType prefers the URL's type, then the stored type, then sniffing.
func (s *Server) contentType(ctx context.Context, ref Ref, meta blobstore.Meta, body []byte, start int64) string {
	if ref.Type != "" {
		return ref.Type
	}
	if meta.Type != "" {
		return meta.Type
	}
	head := body
	if start != 0 {
		var err error
		head, err = s.Blobs.ReadRange(ctx, ref.ID, ref.Offset, sniffLen)
		if err != nil {
			return "application/octet-stream"
		}
	}
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return mimetype.Detect(head).String()
}

func (s *Server) logger() logr.Logger {
	if s.Log.GetSink() == nil {
		return logr.Discard()
	}
	return s.Log
}

func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch xerrors.KindOf(err) {
	case xerrors.KindNotFound:
		status = http.StatusNotFound
	case xerrors.KindAlreadyExists:
		status = http.StatusConflict
	case xerrors.KindPermission:
		status = http.StatusForbidden
	case xerrors.KindRange:
		status = http.StatusRequestedRangeNotSatisfiable
	case xerrors.KindInvalid:
		status = http.StatusBadRequest
	case xerrors.KindNotSupported:
		status = http.StatusNotImplemented
	case xerrors.KindClosed:
		status = http.StatusGone
	}
	http.Error(w, err.Error(), status)
}

func parseRangeHeader(header string, size int64) (int64, int64, error) {
	if size <= 0 {
		return 0, 0, fmt.Errorf("resource empty")
	}
	if !strings.HasPrefix(header, "bytes=") {
		return 0, 0, fmt.Errorf("unsupported range unit")
	}
	rangeSpec := strings.TrimSpace(strings.TrimPrefix(header, "bytes="))
	if rangeSpec == "" || strings.Contains(rangeSpec, ",") {
		return 0, 0, fmt.Errorf("invalid range")
	}
	if strings.HasPrefix(rangeSpec, "-") {
		n, err := strconv.ParseInt(strings.TrimPrefix(rangeSpec, "-"), 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("invalid suffix range")
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}
	parts := strings.SplitN(rangeSpec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range spec")
	}
	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("invalid range start")
	}
	var end int64
	if parts[1] == "" {
		end = size - 1
	} else {
		end, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || end < 0 {
			return 0, 0, fmt.Errorf("invalid range end")
		}
	}
	if start >= size {
		return 0, 0, fmt.Errorf("start beyond size")
	}
	if end >= size {
		end = size - 1
	}
	if start > end {
		return 0, 0, fmt.Errorf("start greater than end")
	}
	return start, end, nil
}

func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return middleware.Wrap(handler,
		middleware.AccessLog(s.Log),
		middleware.APIKeyAuth(s.Opts.APIKey),
		middleware.RateLimit(s.Opts.RateLimit),
	)
}
