// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// gzipResponseWriter holds the status until the first body byte so that
// bodiless responses never advertise gzip. A pooled writer is taken only
// when there is something to compress.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz         *gzip.Writer
	status     int
	headerSent bool
	compress   bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if !w.headerSent {
		h := w.Header()
		w.compress = bodyAllowed(w.status) && h.Get("Content-Encoding") == ""
		if w.compress {
			h.Del("Content-Length")
			h.Set("Content-Encoding", "gzip")
		}
		w.sendHeader()
	}
	if !w.compress {
		return w.ResponseWriter.Write(b)
	}
	if w.gz == nil {
		gz, _ := gzipWriterPool.Get().(*gzip.Writer)
		if gz == nil {
			gz = gzip.NewWriter(io.Discard)
		}
		gz.Reset(w.ResponseWriter)
		w.gz = gz
	}
	return w.gz.Write(b)
}

func (w *gzipResponseWriter) sendHeader() {
	w.headerSent = true
	w.Header().Add("Vary", "Accept-Encoding")
	w.ResponseWriter.WriteHeader(w.status)
}

// finish sends a held status and closes the gzip stream.
func (w *gzipResponseWriter) finish() {
	if !w.headerSent && w.status != 0 {
		w.sendHeader()
	}
	if w.gz == nil {
		return
	}
	_ = w.gz.Close() // response already sent
	gzipWriterPool.Put(w.gz)
	w.gz = nil
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}

// Compression gzips response bodies for clients that accept it. Datasets for
// wide tables compress well. WebSocket upgrades pass through untouched, as
// do bodiless statuses such as 204.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
			strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		gw := &gzipResponseWriter{ResponseWriter: w}
		defer gw.finish()
		next.ServeHTTP(gw, r)
	})
}
