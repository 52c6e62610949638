package echogram

import (
	"context"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/chunkstore"
	"github.com/ooi-data/rca-echo-tools/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultVizBucket receives uploaded echograms.
const DefaultVizBucket = "s3://ooi-rca-qaqc-prod"

// Main holds the config for rendering one day of echograms.
type Main struct {
	Date        string `help:"Day to render, YYYY/MM/DD."`
	Refdes      string `help:"Reference designator of the echosounder."`
	DataBucket  string `help:"Location of the store, as for harvest."`
	OutDir      string `help:"Directory the PNG files are written to. Empty means a temporary directory."`
	PingTimeBin string `help:"Width of a ping time bin, e.g. 4s."`
	RangeBin    string `help:"Height of a range bin in meters, e.g. 0.1m."`
	Vmin        int    `help:"Sv (dB) drawn at the bottom of the color scale."`
	Vmax        int    `help:"Sv (dB) drawn at the top of the color scale."`
	Workers     int    `help:"Channels rendered concurrently."`
	Upload      bool   `help:"Upload the echograms to viz-bucket after rendering."`
	VizBucket   string `help:"Where echograms are uploaded to."`
	Verbose     bool   `help:"Enable verbose logging."`

	// Files are the echograms written by the last Run.
	Files []string `flag:"-"`
	// Keys are the keys uploaded by the last Run.
	Keys []string `flag:"-"`
}

// NewMain gets a Main with default values.
func NewMain() *Main {
	return &Main{
		DataBucket:  "s3://ooi-data",
		PingTimeBin: DefaultPingTimeBin.String(),
		RangeBin:    strconv.FormatFloat(DefaultRangeBin, 'g', -1, 64) + "m",
		Vmin:        DefaultVmin,
		Vmax:        DefaultVmax,
		Workers:     4,
		VizBucket:   DefaultVizBucket,
	}
}

// ParseRangeBin parses a bin height with an optional trailing "m".
func ParseRangeBin(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "m"), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing range bin '%s'", s)
	}
	if v <= 0 {
		return 0, errors.Errorf("range bin must be positive, got %s", s)
	}
	return v, nil
}

// Run renders the echograms of Date, and uploads them if Upload is set.
func (m *Main) Run(ctx context.Context) error {
	zl, err := zap.NewProduction()
	if m.Verbose {
		zl, err = zap.NewDevelopment()
	}
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	defer func() { _ = zl.Sync() }()
	logger := echo.NewZapLogger(zl.With(zap.String("refdes", m.Refdes)))

	refdes, err := echo.ParseRefdes(m.Refdes)
	if err != nil {
		return &echo.ConfigError{Msg: err.Error()}
	}
	day, err := echo.ParseDay(m.Date)
	if err != nil {
		return &echo.ConfigError{Msg: err.Error()}
	}
	pingBin, err := time.ParseDuration(m.PingTimeBin)
	if err != nil || pingBin <= 0 {
		return &echo.ConfigError{Msg: "invalid ping time bin '" + m.PingTimeBin + "'"}
	}
	rangeBin, err := ParseRangeBin(m.RangeBin)
	if err != nil {
		return &echo.ConfigError{Msg: err.Error()}
	}
	if m.Vmin >= m.Vmax {
		return &echo.ConfigError{Msg: "vmin must be below vmax"}
	}
	creds := storage.CredentialsFromEnv()
	uris := []string{m.DataBucket}
	if m.Upload {
		uris = append(uris, m.VizBucket)
	}
	if err := storage.RequireCredentials(creds, uris...); err != nil {
		return err
	}

	outDir := m.OutDir
	if outDir == "" {
		if outDir, err = ioutil.TempDir("", "echograms"); err != nil {
			return errors.Wrap(err, "making output directory")
		}
		defer os.RemoveAll(outDir)
	}

	data, err := storage.Open(m.DataBucket, creds)
	if err != nil {
		return errors.Wrap(err, "opening data bucket")
	}
	defer data.Close()
	r := NewRenderer(chunkstore.New(data, echo.StorePrefix(refdes)), refdes, outDir)
	r.PingTimeBin, r.RangeBin = pingBin, rangeBin
	r.Vmin, r.Vmax = float64(m.Vmin), float64(m.Vmax)
	r.Workers = m.Workers
	r.Log = logger

	m.Files, err = r.Daily(ctx, day)
	if err != nil {
		return errors.Wrapf(err, "rendering %s", day)
	}
	logger.Printf("rendered %d echograms for %s on %s", len(m.Files), refdes, day)
	if !m.Upload || len(m.Files) == 0 {
		return nil
	}

	viz, err := storage.Open(m.VizBucket, creds)
	if err != nil {
		return errors.Wrap(err, "opening viz bucket")
	}
	defer viz.Close()
	m.Keys, err = Sync(ctx, viz, outDir, refdes, day, logger)
	return errors.Wrap(err, "uploading echograms")
}
