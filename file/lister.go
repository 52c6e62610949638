package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/listing"
	"github.com/pkg/errors"
)

// Lister is an echo.Lister over a local mirror of the raw data archive,
// laid out like the archive itself: root/site/node/sensor/YYYY/MM/DD/.
type Lister struct {
	root string
	ext  string
}

// NewLister gets a Lister for the mirror at root, keeping files ending in
// ext.
func NewLister(root, ext string) (*Lister, error) {
	abs, err := filepath.Abs(strings.TrimPrefix(root, "file://"))
	if err != nil {
		return nil, errors.Wrap(err, "getting absolute path")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(err, "statting archive root")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("archive root %s is not a directory", abs)
	}
	return &Lister{root: abs, ext: ext}, nil
}

// List implements echo.Lister. Files are returned as file:// locators in name
// order.
func (l *Lister) List(ctx context.Context, day echo.Day, refdes echo.Refdes) echo.Listing {
	dir := filepath.FromSlash(listing.URL(filepath.ToSlash(l.root), refdes, day))
	res := echo.Listing{Day: day, URL: "file://" + filepath.ToSlash(dir)}
	infos, err := ioutil.ReadDir(dir)
	if os.IsNotExist(err) {
		res.Status = echo.NotFound
		return res
	} else if err != nil {
		res.Status, res.Err = echo.Unreachable, errors.Wrap(err, "reading directory")
		return res
	}
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), l.ext) {
			continue
		}
		res.Files = append(res.Files, "file://"+filepath.ToSlash(filepath.Join(dir, info.Name())))
	}
	sort.Strings(res.Files)
	if len(res.Files) == 0 {
		res.Status = echo.Empty
		return res
	}
	res.Status = echo.Found
	return res
}
