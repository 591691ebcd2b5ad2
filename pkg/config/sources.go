package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hl2dm-community/mapsync/pkg/errors"
)

// NormalizeRootURL parses a FastDL root URL and guarantees the trailing
// slash that relative listing links resolve against.
func NormalizeRootURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidSourceURL, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Wrapf(errors.ErrInvalidSourceURL, "unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidSourceURL, "missing host in %q", raw)
	}
	return u, nil
}

// LoadSourcesFile reads the legacy plain-text sources format: one URL per
// line, blank lines and '#' comments ignored, trailing slash normalized.
func LoadSourcesFile(path string) ([]*SourceConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sources file %s", path)
	}
	defer func() { _ = f.Close() }()

	var sources []*SourceConfig
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		u, err := NormalizeRootURL(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		sources = append(sources, &SourceConfig{
			Name:    u.Host,
			URL:     u.String(),
			Enabled: true,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}
	return sources, nil
}

// RootURLs resolves the enabled sources into parsed root URLs, preserving
// configuration order.
func (c *Config) RootURLs() ([]*url.URL, error) {
	enabled := c.EnabledSources()
	roots := make([]*url.URL, 0, len(enabled))
	for _, src := range enabled {
		u, err := NormalizeRootURL(src.URL)
		if err != nil {
			return nil, err
		}
		roots = append(roots, u)
	}
	return roots, nil
}
