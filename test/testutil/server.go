// Package testutil provides a synthetic FastDL server for tests: it renders
// Apache-style directory listing pages over an in-memory file tree and
// serves the file payloads with declared lengths.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
)

// FastDLServer serves an in-memory map tree. Keys of files are
// slash-separated paths relative to the root, e.g. "dm_lockdown.bsp.bz2" or
// "custom/dm_booty.bsp.bz2".
type FastDLServer struct {
	Server *httptest.Server

	mu    sync.RWMutex
	files map[string][]byte
}

// NewFastDLServer starts a FastDL server over the given tree. The server is
// closed automatically when the test finishes.
func NewFastDLServer(t *testing.T, files map[string][]byte) *FastDLServer {
	t.Helper()
	s := &FastDLServer{files: files}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Server.Close)
	return s
}

// RootURL returns the listing root (with trailing slash).
func (s *FastDLServer) RootURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse(s.Server.URL + "/")
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	return u
}

// SetFile adds or replaces one file in the tree.
func (s *FastDLServer) SetFile(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
}

func (s *FastDLServer) handle(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/")

	if p == "" || strings.HasSuffix(p, "/") {
		s.serveListing(w, p)
		return
	}

	s.mu.RLock()
	data, ok := s.files[p]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}

// serveListing renders an Apache-style index of the entries directly under
// prefix, complete with the navigation links a real listing carries.
func (s *FastDLServer) serveListing(w http.ResponseWriter, prefix string) {
	children := s.childrenOf(prefix)
	if children == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var b strings.Builder
	b.WriteString("<html><head><title>Index of /" + prefix + "</title></head><body>\n")
	b.WriteString("<h1>Index of /" + prefix + "</h1><pre>\n")
	b.WriteString(`<a href="?C=N;O=D">Name</a> <a href="?C=M;O=A">Last modified</a> <a href="?C=S;O=A">Size</a>` + "\n<hr>\n")
	b.WriteString(`<a href="../">Parent Directory</a>` + "\n")
	for _, c := range children {
		b.WriteString(`<a href="` + c + `">` + c + "</a>\n")
	}
	b.WriteString("</pre></body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

// childrenOf returns the immediate children of prefix, directories with a
// trailing slash, or nil when the directory does not exist.
func (s *FastDLServer) childrenOf(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	found := prefix == ""
	for key := range s.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		found = true
		rest := strings.TrimPrefix(key, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			seen[rest[:idx+1]] = struct{}{}
		} else {
			seen[rest] = struct{}{}
		}
	}
	if !found {
		return nil
	}
	children := make([]string, 0, len(seen))
	for c := range seen {
		children = append(children, c)
	}
	sort.Strings(children)
	return children
}
