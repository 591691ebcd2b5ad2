// Package listing discovers the remote map inventory: it fetches HTTP
// directory-listing pages, extracts map file links, probes file sizes and
// aggregates multiple FastDL roots into one deduplicated inventory.
package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/model"
)

const defaultUserAgent = "mapsync/1.0"

// HTMLSource scrapes standard HTTP directory-listing pages (Apache, nginx
// and friends) for map file links. It also serves as the size prober.
type HTMLSource struct {
	client    *http.Client
	userAgent string
}

// NewHTMLSource creates a listing source with the given request timeout.
func NewHTMLSource(timeout time.Duration, userAgent string) *HTMLSource {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTMLSource{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// List fetches dir and returns the map files and sub-directories it links
// to. Navigation links, sort-order links and links leaving the directory's
// origin are excluded.
func (s *HTMLSource) List(ctx context.Context, dir *url.URL) (Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dir.String(), http.NoBody)
	if err != nil {
		return Listing{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return Listing{}, errors.Wrap(errors.ErrSourceUnreachable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Listing{}, errors.Wrapf(errors.ErrSourceUnreachable, "unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return Listing{}, errors.Wrapf(errors.ErrNotAListing, "content type %q", ct)
	}

	return parseListing(resp.Body, dir)
}

// parseListing tokenizes an HTML index page and classifies every anchor.
func parseListing(r io.Reader, dir *url.URL) (Listing, error) {
	var out Listing
	tok := html.NewTokenizer(r)
	for {
		switch tok.Next() {
		case html.ErrorToken:
			if tok.Err() == io.EOF {
				return out, nil
			}
			return Listing{}, errors.Wrap(errors.ErrNotAListing, tok.Err().Error())
		case html.StartTagToken:
			name, hasAttr := tok.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			if href, ok := anchorHref(tok); ok {
				classifyLink(href, dir, &out)
			}
		}
	}
}

func anchorHref(tok *html.Tokenizer) (string, bool) {
	for {
		key, val, more := tok.TagAttr()
		if string(key) == "href" {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}

// classifyLink resolves one href against the listed directory and appends
// it to the listing when it is a map file or a strict sub-directory.
func classifyLink(href string, dir *url.URL, out *Listing) {
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}
	ref, err := url.Parse(href)
	if err != nil {
		return
	}
	resolved := dir.ResolveReference(ref)

	// Sort-order links (?C=M;O=A) and anything off-origin are navigation,
	// not content.
	if resolved.RawQuery != "" || resolved.Fragment != "" {
		return
	}
	if resolved.Scheme != dir.Scheme || resolved.Host != dir.Host {
		return
	}
	// Parent links and absolute links above the directory escape the root;
	// a strict path-prefix check covers "..", "../" and "/".
	if !strings.HasPrefix(resolved.Path, dir.Path) || resolved.Path == dir.Path {
		return
	}

	if strings.HasSuffix(resolved.Path, "/") {
		out.Dirs = append(out.Dirs, resolved)
		return
	}
	if model.IsMapFile(path.Base(resolved.Path)) {
		out.Files = append(out.Files, resolved)
	}
}

// ProbeSize issues a metadata-only HEAD request for u and returns the
// declared content length.
func (s *HTMLSource) ProbeSize(ctx context.Context, u *url.URL) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), http.NoBody)
	if err != nil {
		return model.SizeUnknown, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return model.SizeUnknown, errors.Wrap(errors.ErrProbeFailed, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return model.SizeUnknown, errors.Wrapf(errors.ErrProbeFailed, "unexpected status code: %d", resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		return model.SizeUnknown, fmt.Errorf("no content length for %s: %w", u, errors.ErrProbeFailed)
	}
	return resp.ContentLength, nil
}
