// Package listing finds raw files by reading the archive's HTML directory
// listings.
package listing

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// DefaultBase is the root of the OOI raw data archive.
const DefaultBase = "https://rawdata.oceanobservatories.org/files"

// DefaultExtension is the suffix of raw echosounder files.
const DefaultExtension = ".raw"

// URL returns the directory listing URL for an instrument and day:
// {base}/{site}/{node}/{sensor}/{YYYY}/{MM}/{DD}/.
func URL(base string, refdes echo.Refdes, day echo.Day) string {
	return strings.TrimSuffix(base, "/") + "/" + refdes.Site() + "/" + refdes.Node() + "/" + refdes.Sensor() + "/" + day.String() + "/"
}

// ListerOption is a functional option type for Lister.
type ListerOption func(l *Lister)

// OptListerBase sets the archive root.
func OptListerBase(base string) ListerOption {
	return func(l *Lister) {
		l.base = base
	}
}

// OptListerClient sets the HTTP client.
func OptListerClient(c *http.Client) ListerOption {
	return func(l *Lister) {
		l.client = c
	}
}

// OptListerExtension sets the file suffix to keep.
func OptListerExtension(ext string) ListerOption {
	return func(l *Lister) {
		l.ext = ext
	}
}

// OptListerLogger sets the logger.
func OptListerLogger(log echo.Logger) ListerOption {
	return func(l *Lister) {
		l.log = log
	}
}

// Lister is an echo.Lister over HTTP directory listings.
type Lister struct {
	base   string
	ext    string
	client *http.Client
	log    echo.Logger
}

var _ echo.Lister = &Lister{}

// NewLister gets a new Lister for the default archive.
func NewLister(opts ...ListerOption) *Lister {
	l := &Lister{
		base:   DefaultBase,
		ext:    DefaultExtension,
		client: &http.Client{Timeout: time.Minute},
		log:    echo.NopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// List implements echo.Lister.
func (l *Lister) List(ctx context.Context, day echo.Day, refdes echo.Refdes) echo.Listing {
	res := echo.Listing{Day: day, URL: URL(l.base, refdes, day)}
	req, err := http.NewRequest(http.MethodGet, res.URL, nil)
	if err != nil {
		res.Status, res.Err = echo.Unreachable, errors.Wrap(err, "building request")
		return res
	}
	resp, err := l.client.Do(req.WithContext(ctx))
	if err != nil {
		res.Status, res.Err = echo.Unreachable, errors.Wrap(err, "requesting listing")
		return res
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		res.Status = echo.NotFound
		return res
	case resp.StatusCode != http.StatusOK:
		res.Status, res.Err = echo.Unreachable, errors.Errorf("unexpected status %s", resp.Status)
		return res
	}

	page, err := url.Parse(res.URL)
	if err != nil {
		res.Status, res.Err = echo.Unreachable, errors.Wrap(err, "parsing listing url")
		return res
	}
	files, err := Links(resp.Body, page, l.ext)
	if err != nil {
		res.Status, res.Err = echo.Unreachable, err
		return res
	}
	l.log.Debugf("%s lists %d %s files", res.URL, len(files), l.ext)
	if len(files) == 0 {
		res.Status = echo.Empty
		return res
	}
	res.Status, res.Files = echo.Found, files
	return res
}

// Links returns the absolute, sorted and deduplicated targets of the anchors
// in an HTML page which end in ext. Directories, parent links and query links
// are skipped.
func Links(r io.Reader, page *url.URL, ext string) ([]string, error) {
	seen := make(map[string]struct{})
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				files := make([]string, 0, len(seen))
				for f := range seen {
					files = append(files, f)
				}
				sort.Strings(files)
				return files, nil
			}
			return nil, errors.Wrap(z.Err(), "parsing listing")
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					if u := target(string(val), page, ext); u != "" {
						seen[u] = struct{}{}
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func target(href string, page *url.URL, ext string) string {
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") || strings.HasSuffix(href, "/") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil || ref.RawQuery != "" {
		return ""
	}
	if !strings.HasSuffix(ref.Path, ext) {
		return ""
	}
	return page.ResolveReference(ref).String()
}
