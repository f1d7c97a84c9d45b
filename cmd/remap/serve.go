// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package main

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/dsnet/compress/brotli"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"remap.256lights.llc/pkg"
	"remap.256lights.llc/pkg/internal/mappingstore"
	"remap.256lights.llc/pkg/internal/xnet"
	"zombiezen.com/go/log"
	"zombiezen.com/go/uritemplate"
)

// maxRequestSize is the largest request body the server will read.
const maxRequestSize = 4 * 1024 * 1024

type serveOptions struct {
	listen      string
	allowRemote bool
}

func newServeCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "serve [options]",
		Short:                 "run an HTTP replacement server",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(serveOptions)
	c.Flags().StringVar(&opts.listen, "listen", "", "`address` to listen on (defaults to configuration)")
	c.Flags().BoolVar(&opts.allowRemote, "allow-remote", false, "accept requests from other machines")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		if opts.listen == "" {
			opts.listen = g.Listen
		}
		return runServe(cmd.Context(), g, opts)
	}
	return c
}

func runServe(ctx context.Context, g *globalConfig, opts *serveOptions) error {
	l, err := listen(ctx, opts)
	if err != nil {
		return err
	}
	store, err := g.openStore()
	if err != nil {
		l.Close()
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()

	srv := &http.Server{
		Handler: (&apiServer{
			store:        store,
			defaultOrder: g.DefaultOrder,
			allowRemote:  opts.allowRemote,
		}).handler(),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
		ReadHeaderTimeout: 10 * time.Second,
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Infof(ctx, "Listening on http://%v/", l.Addr())
		notifySystemd(ctx, daemon.SdNotifyReady)
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		// Once the context is Done, stop accepting requests
		// and wait for in-flight requests to finish.
		<-grpCtx.Done()
		log.Infof(ctx, "Shutting down...")
		notifySystemd(ctx, daemon.SdNotifyStopping)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return grp.Wait()
}

// listen returns the first socket passed in by systemd socket activation
// or a new TCP listener on opts.listen if there are none.
// The loopback restriction only applies to opts.listen:
// activated sockets are configured by the system administrator.
func listen(ctx context.Context, opts *serveOptions) (net.Listener, error) {
	activated, err := activation.Listeners()
	if err != nil {
		return nil, fmt.Errorf("socket activation: %v", err)
	}
	var l net.Listener
	for _, al := range activated {
		switch {
		case al == nil:
		case l == nil:
			l = al
		default:
			log.Warnf(ctx, "Ignoring extra activated socket %v", al.Addr())
			al.Close()
		}
	}
	if l != nil {
		log.Debugf(ctx, "Using activated socket %v", l.Addr())
		return l, nil
	}

	if !opts.allowRemote && !xnet.IsLoopbackListenAddr(opts.listen) {
		return nil, fmt.Errorf("refusing to listen on non-loopback address %s without --allow-remote", opts.listen)
	}
	return (&net.ListenConfig{}).Listen(ctx, "tcp", opts.listen)
}

// notifySystemd sends a service state change to systemd
// if the process is running under a systemd service.
func notifySystemd(ctx context.Context, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Warnf(ctx, "Notify systemd of %s: %v", state, err)
	}
}

type apiServer struct {
	store        *mappingstore.Store
	defaultOrder remap.Order
	allowRemote  bool
}

func (srv *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/replace", handlers.MethodHandler{
		http.MethodPost: srv.newHandler(srv.replace),
	})
	mux.Handle("/join", handlers.MethodHandler{
		http.MethodPost: srv.newHandler(srv.join),
	})
	mux.Handle("/mappings/{$}", handlers.MethodHandler{
		http.MethodGet:  srv.newHandler(srv.listMappings),
		http.MethodHead: srv.newHandler(srv.listMappings),
	})
	mux.Handle("/mappings/{name}", handlers.MethodHandler{
		http.MethodGet:    srv.newHandler(srv.getMapping),
		http.MethodHead:   srv.newHandler(srv.getMapping),
		http.MethodPut:    srv.newHandler(srv.putMapping),
		http.MethodDelete: srv.newHandler(srv.deleteMapping),
	})

	var h http.Handler = mux
	if !srv.allowRemote {
		h = xnet.LocalOnly(h)
	}
	return handlers.CustomLoggingHandler(io.Discard, h, logRequest)
}

// apiResponse is the result of an API handler.
// A nil body results in an empty response.
type apiResponse struct {
	statusCode int
	location   string
	body       any
}

// httpError is an error with an associated HTTP status code.
type httpError struct {
	statusCode int
	err        error
}

func (e *httpError) Error() string { return e.err.Error() }
func (e *httpError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &httpError{statusCode: http.StatusBadRequest, err: err}
}

func (srv *apiServer) newHandler(f func(ctx context.Context, r *http.Request) (*apiResponse, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var resp *apiResponse
		body, err := decompressBody(http.MaxBytesReader(w, r.Body, maxRequestSize), r.Header.Get("Content-Encoding"))
		if err != nil {
			resp = errorResponse(ctx, err)
		} else {
			// Limit the decompressed size too.
			r.Body = http.MaxBytesReader(w, body, maxRequestSize)
			resp, err = f(ctx, r)
			if err != nil {
				resp = errorResponse(ctx, err)
			}
		}
		w.Header().Set("Cache-Control", "no-store")
		if resp.location != "" {
			w.Header().Set("Location", resp.location)
		}
		if resp.body == nil {
			w.WriteHeader(resp.statusCode)
			return
		}
		data, err := jsonv2.Marshal(resp.body)
		if err != nil {
			log.Errorf(ctx, "Encode response for %s: %v", r.URL.Path, err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		data = append(data, '\n')
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(resp.statusCode)
		if r.Method != http.MethodHead {
			w.Write(data)
		}
	})
}

func errorResponse(ctx context.Context, err error) *apiResponse {
	statusCode := http.StatusInternalServerError
	var he *httpError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesError):
		statusCode = http.StatusRequestEntityTooLarge
	case errors.As(err, &he):
		statusCode = he.statusCode
	case errors.Is(err, mappingstore.ErrNotFound):
		statusCode = http.StatusNotFound
	}
	msg := err.Error()
	if statusCode == http.StatusInternalServerError {
		log.Errorf(ctx, "%v", err)
		msg = http.StatusText(statusCode)
	}
	return &apiResponse{
		statusCode: statusCode,
		body:       map[string]string{"error": msg},
	}
}

// acceptEncoding is the value of an [Accept-Encoding header]
// that advertises the request body encodings that [decompressBody] supports.
//
// [Accept-Encoding header]: https://developer.mozilla.org/en-US/docs/Web/HTTP/Reference/Headers/Accept-Encoding
const acceptEncoding = "br, gzip, deflate"

// decompressBody returns a reader for the decoded content of a request body
// sent with the given Content-Encoding.
func decompressBody(r io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch contentEncoding {
	case "", "identity":
		return r, nil
	case "br":
		return brotli.NewReader(r, nil)
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, badRequest(fmt.Errorf("decode gzip body: %v", err))
		}
		return zr, nil
	case "deflate":
		return flate.NewReader(r), nil
	default:
		return nil, &httpError{
			statusCode: http.StatusUnsupportedMediaType,
			err:        fmt.Errorf("unsupported Content-Encoding %s (supported: %s)", contentEncoding, acceptEncoding),
		}
	}
}

// decodeBody unmarshals the request's JSON body into v.
// Object members with duplicate names are permitted
// so that mappings can repeat keys.
func decodeBody(r *http.Request, v any) error {
	err := jsonv2.UnmarshalRead(r.Body, v, jsontext.AllowDuplicateNames(true))
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return err
		}
		return badRequest(fmt.Errorf("decode request: %v", err))
	}
	return nil
}

type replaceRequest struct {
	Text    string         `json:"text"`
	Mapping *remap.Mapping `json:"mapping"`
	Order   *remap.Order   `json:"order"`
	Name    string         `json:"name"`
}

type replaceResponse struct {
	Text    string        `json:"text"`
	Matches []remap.Match `json:"matches"`
}

func (srv *apiServer) replace(ctx context.Context, r *http.Request) (*apiResponse, error) {
	req := new(replaceRequest)
	if err := decodeBody(r, req); err != nil {
		return nil, err
	}
	// Inline entries override the stored mapping's entries by key,
	// like --set does for remap replace.
	m := req.Mapping
	order := srv.defaultOrder
	if req.Name != "" {
		entry, err := srv.store.Get(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		m = entry.Mapping.Clone()
		m.Merge(req.Mapping)
		order = entry.Order
	}
	if req.Order != nil {
		if !req.Order.IsValid() {
			return nil, badRequest(fmt.Errorf("invalid order %v", *req.Order))
		}
		order = *req.Order
	}

	replacer := remap.NewReplacer(m, order)
	matches := replacer.Matches(req.Text)
	return &apiResponse{
		statusCode: http.StatusOK,
		body: &replaceResponse{
			Text:    replacer.Replace(req.Text),
			Matches: matches,
		},
	}, nil
}

type joinRequest struct {
	Items     []any  `json:"items"`
	Separator string `json:"separator"`
}

func (srv *apiServer) join(ctx context.Context, r *http.Request) (*apiResponse, error) {
	req := new(joinRequest)
	if err := decodeBody(r, req); err != nil {
		return nil, err
	}
	return &apiResponse{
		statusCode: http.StatusOK,
		body:       map[string]string{"text": remap.Join(req.Items, req.Separator)},
	}, nil
}

type mappingSummary struct {
	Href     string      `json:"href"`
	Name     string      `json:"name"`
	Len      int         `json:"len"`
	Order    remap.Order `json:"order"`
	Revision string      `json:"revision"`
	Updated  time.Time   `json:"updated"`
}

func (srv *apiServer) listMappings(ctx context.Context, r *http.Request) (*apiResponse, error) {
	summaries, err := srv.store.List(ctx)
	if err != nil {
		return nil, err
	}
	body := make([]*mappingSummary, 0, len(summaries))
	for _, s := range summaries {
		href, err := mappingURL(s.Name)
		if err != nil {
			return nil, err
		}
		body = append(body, &mappingSummary{
			Href:     href,
			Name:     s.Name,
			Len:      s.Len,
			Order:    s.Order,
			Revision: s.Revision.String(),
			Updated:  s.Updated,
		})
	}
	return &apiResponse{statusCode: http.StatusOK, body: body}, nil
}

func (srv *apiServer) getMapping(ctx context.Context, r *http.Request) (*apiResponse, error) {
	entry, err := srv.store.Get(ctx, r.PathValue("name"))
	if err != nil {
		return nil, err
	}
	return &apiResponse{statusCode: http.StatusOK, body: newStoredMapping(entry)}, nil
}

type putMappingRequest struct {
	Mapping *remap.Mapping `json:"mapping"`
	Order   *remap.Order   `json:"order"`
}

func (srv *apiServer) putMapping(ctx context.Context, r *http.Request) (*apiResponse, error) {
	name := r.PathValue("name")
	if err := mappingstore.ValidateName(name); err != nil {
		return nil, badRequest(err)
	}
	req := new(putMappingRequest)
	if err := decodeBody(r, req); err != nil {
		return nil, err
	}
	order := srv.defaultOrder
	if req.Order != nil {
		order = *req.Order
	}
	if !order.IsValid() {
		return nil, badRequest(fmt.Errorf("invalid order %v", order))
	}
	m := req.Mapping
	if m == nil {
		m = new(remap.Mapping)
	}
	entry, err := srv.store.Put(ctx, name, m, order)
	if err != nil {
		return nil, err
	}
	log.Infof(ctx, "Stored mapping %s (revision %v)", entry.Name, entry.Revision)
	location, err := mappingURL(entry.Name)
	if err != nil {
		return nil, err
	}
	return &apiResponse{
		statusCode: http.StatusOK,
		location:   location,
		body:       newStoredMapping(entry),
	}, nil
}

func (srv *apiServer) deleteMapping(ctx context.Context, r *http.Request) (*apiResponse, error) {
	name := r.PathValue("name")
	if err := srv.store.Delete(ctx, name); err != nil {
		return nil, err
	}
	log.Infof(ctx, "Deleted mapping %s", name)
	return &apiResponse{statusCode: http.StatusNoContent}, nil
}

// mappingURL returns the path of the stored mapping resource with the given name.
func mappingURL(name string) (string, error) {
	return uritemplate.Expand("/mappings/{name}", map[string]string{"name": name})
}

// logRequest is a [handlers.LogFormatter] that sends access logs
// to the process's logger instead of the writer.
func logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	ctx := params.Request.Context()
	log.Infof(ctx, "%s %s %d %d", params.Request.Method, params.URL.RequestURI(), params.StatusCode, params.Size)
}
