package mock

import (
	"context"
	"sync"

	echo "github.com/ooi-data/rca-echo-tools"
)

// Lister is an echo.Lister answering from a map of day to files. Days not in
// Files are NotFound unless listed in Unreachable or Empty.
type Lister struct {
	Files       map[string][]string
	Empty       map[string]bool
	Unreachable map[string]error

	mu    sync.Mutex
	Calls []string
}

// List implements echo.Lister.
func (l *Lister) List(ctx context.Context, day echo.Day, refdes echo.Refdes) echo.Listing {
	l.mu.Lock()
	l.Calls = append(l.Calls, day.String())
	l.mu.Unlock()

	key := day.String()
	res := echo.Listing{Day: day, URL: "mock://" + refdes.String() + "/" + key + "/"}
	if err, ok := l.Unreachable[key]; ok {
		res.Status, res.Err = echo.Unreachable, err
		return res
	}
	if l.Empty[key] {
		res.Status = echo.Empty
		return res
	}
	files, ok := l.Files[key]
	if !ok {
		res.Status = echo.NotFound
		return res
	}
	res.Status = echo.Found
	res.Files = append([]string(nil), files...)
	return res
}
