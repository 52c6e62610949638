// Package calibrate runs an external calibration program to turn raw
// echosounder files into Sv datasets.
//
// The program is invoked once per file as
//
//    <command> [args...] --input FILE --sonar-model MODEL --waveform-mode CW|BB --encode-mode power|complex
//
// and must write a Document as JSON to stdout.
package calibrate

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

// DefaultCommand is the calibration program looked up on PATH.
const DefaultCommand = "echo-sv"

var _ echo.Calibrator = &Command{}

// Command is an echo.Calibrator running an external program. Remote raw
// files are downloaded to a temporary directory first.
type Command struct {
	Path    string
	Args    []string
	TempDir string
	Client  *http.Client
	Log     echo.Logger
}

// NewCommand gets a Command running path.
func NewCommand(path string, args ...string) *Command {
	return &Command{
		Path:   path,
		Args:   args,
		Client: &http.Client{Timeout: 10 * time.Minute},
		Log:    echo.NopLogger{},
	}
}

type rawFile struct {
	locator string
	path    string
	model   string
	temp    bool
}

func (r *rawFile) Locator() string { return r.locator }

func (r *rawFile) Close() error {
	if !r.temp {
		return nil
	}
	return errors.Wrapf(os.Remove(r.path), "removing %s", r.path)
}

// OpenRaw implements echo.Calibrator. http(s) locators are downloaded;
// file:// locators and plain paths are used in place.
func (c *Command) OpenRaw(ctx context.Context, locator, sonarModel string) (echo.Recording, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, errors.Wrap(err, "parsing locator")
	}
	switch u.Scheme {
	case "http", "https":
	case "file":
		return &rawFile{locator: locator, path: u.Path, model: sonarModel}, nil
	case "":
		return &rawFile{locator: locator, path: locator, model: sonarModel}, nil
	default:
		return nil, errors.Errorf("unsupported locator scheme '%s'", u.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, locator, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := c.Client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "downloading")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("downloading: unexpected status %s", resp.Status)
	}
	f, err := ioutil.TempFile(c.TempDir, "*-"+path.Base(u.Path))
	if err != nil {
		return nil, errors.Wrap(err, "creating temp file")
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, errors.Wrap(err, "downloading")
	}
	c.Log.Debugf("downloaded %d bytes of %s to %s", n, locator, f.Name())
	return &rawFile{locator: locator, path: f.Name(), model: sonarModel, temp: true}, nil
}

// ComputeSv implements echo.Calibrator.
func (c *Command) ComputeSv(ctx context.Context, rec echo.Recording, waveformMode, encodeMode string) (*echo.Dataset, error) {
	r, ok := rec.(*rawFile)
	if !ok {
		return nil, errors.Errorf("recording %s was not opened by this calibrator", rec.Locator())
	}
	args := append(append([]string(nil), c.Args...),
		"--input", r.path,
		"--sonar-model", r.model,
		"--waveform-mode", waveformMode,
		"--encode-mode", encodeMode,
	)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.Stdout, cmd.Stderr = stdout, stderr
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "running %s: %s", c.Path, strings.TrimSpace(stderr.String()))
	}
	c.Log.Debugf("%s took %v for %s", c.Path, time.Since(start), r.locator)
	return Decode(stdout)
}
