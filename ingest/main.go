// Package ingest wires the pieces of a harvest run together from
// configuration.
package ingest

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/calibrate"
	"github.com/ooi-data/rca-echo-tools/chunkstore"
	"github.com/ooi-data/rca-echo-tools/fake"
	"github.com/ooi-data/rca-echo-tools/file"
	"github.com/ooi-data/rca-echo-tools/kafka"
	"github.com/ooi-data/rca-echo-tools/leveldb"
	"github.com/ooi-data/rca-echo-tools/listing"
	"github.com/ooi-data/rca-echo-tools/storage"
	"github.com/ooi-data/rca-echo-tools/termstat"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Default locations.
const (
	DefaultDataBucket     = "s3://ooi-data"
	DefaultMetadataBucket = "s3://flow-process-bucket"
)

// FakeCalibrator selects the synthetic calibrator instead of a command.
const FakeCalibrator = "fake"

// Main holds all config for a harvest run.
type Main struct {
	StartDate       string   `help:"First day to harvest, YYYY/MM/DD."`
	EndDate         string   `help:"Last day to harvest (inclusive), YYYY/MM/DD."`
	Refdes          string   `help:"Reference designator of the echosounder, e.g. CE04OSPS-PC01B-05-ZPLSCA102."`
	WaveformMode    string   `help:"Waveform mode: CW (narrowband) or BB (broadband)."`
	EncodeMode      string   `help:"Encode mode: power or complex."`
	SonarModel      string   `help:"Sonar model of the echosounder, e.g. EK60 or EK80."`
	DataBucket      string   `help:"Where stores are kept: an s3://, file:// or bolt:// URI, or a local directory."`
	MetadataBucket  string   `help:"Where harvest ledgers are kept, in the same forms as data-bucket."`
	RunType         string   `help:"append, refresh or prepend."`
	BatchSizeDays   int      `help:"Number of days of raw files calibrated and committed together. Larger batches use more memory."`
	ChunkSize       int      `help:"Pings per store chunk when creating a store."`
	Cloud           bool     `help:"Dispatch the run to harvest workers over Kafka instead of running it here."`
	ListingBase     string   `help:"Root URL of the raw data archive, or a file:// URI or directory holding a mirror of it."`
	ListingCache    string   `help:"Directory of a leveldb cache of past listings. Empty disables caching."`
	Calibrator      string   `help:"Calibration command run once per raw file. 'fake' generates synthetic data."`
	StrictVariables bool     `help:"Fail when a required variable is missing after sanitizing."`
	LogPath         string   `help:"Log file to write to. Empty means stderr."`
	Verbose         bool     `help:"Enable verbose logging."`
	Stats           bool     `help:"Print running counters to stderr."`
	KafkaHosts      []string `help:"Comma separated list of Kafka hosts and ports, for cloud runs."`
	Topic           string   `help:"Kafka topic carrying run requests."`

	// Observe, if set, is passed to the harvester.
	Observe func(s echo.State, w echo.DayRange) `flag:"-"`

	request echo.Request
	report  *echo.Report

	log   echo.Logger
	stats echo.Statter
	zlog  *zap.Logger
}

// NewMain gets a Main with default values.
func NewMain() *Main {
	return &Main{
		WaveformMode:    "CW",
		EncodeMode:      "power",
		SonarModel:      "EK60",
		DataBucket:      DefaultDataBucket,
		MetadataBucket:  DefaultMetadataBucket,
		RunType:         "append",
		BatchSizeDays:   1,
		ChunkSize:       chunkstore.DefaultChunkSize,
		ListingBase:     listing.DefaultBase,
		Calibrator:      calibrate.DefaultCommand,
		StrictVariables: true,
		KafkaHosts:      []string{"localhost:9092"},
		Topic:           kafka.DefaultTopic,
	}
}

// FromRunRequest gets a Main for a dispatched run. Settings not carried by
// the request keep their defaults from base.
func FromRunRequest(base Main, r kafka.RunRequest) *Main {
	m := base
	m.StartDate, m.EndDate = r.StartDate, r.EndDate
	m.Refdes = r.Refdes
	m.WaveformMode, m.EncodeMode, m.SonarModel = r.WaveformMode, r.EncodeMode, r.SonarModel
	m.DataBucket, m.MetadataBucket = r.DataBucket, r.MetadataBucket
	m.RunType = r.RunType
	m.BatchSizeDays = r.BatchSizeDays
	m.StrictVariables = r.StrictVariables
	m.Cloud = false
	m.report = nil
	return &m
}

// Report is the report of the last local run, nil if there was none.
func (m *Main) Report() *echo.Report { return m.report }

// Log gets the logger set up by Run.
func (m *Main) Log() echo.Logger { return m.log }

// Run validates the configuration and harvests, or dispatches the run if
// Cloud is set.
func (m *Main) Run(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return errors.Wrap(err, "setting up")
	}
	defer func() {
		if c, ok := m.stats.(io.Closer); ok {
			_ = c.Close()
		}
		_ = m.zlog.Sync()
	}()
	if err := m.validate(); err != nil {
		return err
	}
	if m.Cloud {
		return m.dispatch()
	}
	return m.harvest(ctx)
}

func (m *Main) setup() error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	if m.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if m.LogPath != "" {
		cfg.OutputPaths = []string{m.LogPath}
	}
	var err error
	m.zlog, err = cfg.Build()
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	m.log = echo.NewZapLogger(m.zlog.With(zap.String("refdes", m.Refdes)))

	if m.Stats {
		m.stats = termstat.NewCollector(os.Stderr)
	} else {
		m.stats = echo.NopStatter{}
	}
	return nil
}

// validate checks everything that can be checked without remote I/O.
func (m *Main) validate() error {
	refdes, err := echo.ParseRefdes(m.Refdes)
	if err != nil {
		return &echo.ConfigError{Msg: err.Error()}
	}
	r, err := echo.ParseDayRange(m.StartDate, m.EndDate)
	if err != nil {
		return &echo.ConfigError{Msg: err.Error()}
	}
	params, err := echo.NewParams(m.WaveformMode, m.EncodeMode, m.SonarModel)
	if err != nil {
		return err
	}
	runType, err := echo.ParseRunType(m.RunType)
	if err != nil {
		return err
	}
	if m.BatchSizeDays < 1 {
		return &echo.ConfigError{Msg: "batch size must be at least one day"}
	}
	if err := storage.RequireCredentials(storage.CredentialsFromEnv(), m.DataBucket, m.MetadataBucket); err != nil {
		return err
	}
	m.request = echo.Request{
		Range:         r,
		Refdes:        refdes,
		Params:        params,
		RunType:       runType,
		BatchSizeDays: m.BatchSizeDays,
	}
	return nil
}

// RunRequest describes the validated run for dispatch.
func (m *Main) RunRequest() kafka.RunRequest {
	req := m.request
	return kafka.RunRequest{
		RunName:         kafka.RunName(req.Refdes.String(), req.Range.Start.String(), req.Range.End.String()),
		Refdes:          req.Refdes.String(),
		StartDate:       req.Range.Start.String(),
		EndDate:         req.Range.End.String(),
		WaveformMode:    req.Params.WaveformMode,
		EncodeMode:      req.Params.EncodeMode,
		SonarModel:      req.Params.SonarModel,
		DataBucket:      m.DataBucket,
		MetadataBucket:  m.MetadataBucket,
		RunType:         req.RunType.String(),
		BatchSizeDays:   req.BatchSizeDays,
		StrictVariables: m.StrictVariables,
	}
}

func (m *Main) dispatch() error {
	d, err := kafka.NewDispatcher(m.KafkaHosts, m.Topic, m.log)
	if err != nil {
		return errors.Wrap(err, "connecting to kafka")
	}
	defer d.Close()
	return d.Dispatch(m.RunRequest())
}

func (m *Main) harvest(ctx context.Context) error {
	creds := storage.CredentialsFromEnv()
	data, err := storage.Open(m.DataBucket, creds)
	if err != nil {
		return errors.Wrap(err, "opening data bucket")
	}
	defer data.Close()
	meta := data
	if m.MetadataBucket != m.DataBucket {
		meta, err = storage.Open(m.MetadataBucket, creds)
		if err != nil {
			return errors.Wrap(err, "opening metadata bucket")
		}
		defer meta.Close()
	}

	var lister echo.Lister
	if isLocal(m.ListingBase) {
		lister, err = file.NewLister(m.ListingBase, listing.DefaultExtension)
		if err != nil {
			return &echo.ConfigError{Msg: "opening local archive: " + err.Error()}
		}
	} else {
		lister = listing.NewLister(
			listing.OptListerBase(m.ListingBase),
			listing.OptListerLogger(m.log),
		)
	}
	if m.ListingCache != "" {
		cache, err := leveldb.NewListingCache(m.ListingCache, lister, m.log)
		if err != nil {
			return errors.Wrap(err, "opening listing cache")
		}
		defer cache.Close()
		lister = cache
	}

	var cal echo.Calibrator
	if m.Calibrator == FakeCalibrator {
		cal = fake.NewCalibrator(time.Now().UnixNano())
	} else {
		cmd := calibrate.NewCommand(m.Calibrator)
		cmd.Log = m.log
		cal = cmd
	}

	refdes := m.request.Refdes
	store := chunkstore.New(data, echo.StorePrefix(refdes),
		chunkstore.OptChunkSize(m.ChunkSize),
		chunkstore.OptLogger(m.log),
	)
	ledger := echo.NewObjectLedger(meta, echo.LedgerKey(refdes))

	h := echo.NewHarvester(lister, cal, store, ledger)
	h.Sanitizer.Strict = m.StrictVariables
	h.Sanitizer.Log = m.log
	h.Log = m.log
	h.Stats = m.stats
	h.Observe = m.Observe

	m.log.Printf("harvesting %s %s (%s) into %s, ledger at %s",
		refdes, m.request.Range, m.request.RunType, join(m.DataBucket, echo.StorePrefix(refdes)), join(m.MetadataBucket, ledger.Key()))
	start := time.Now()
	m.report, err = h.Run(ctx, m.request)
	if err != nil {
		return err
	}
	m.log.Printf("harvest of %s done in %v: %d windows committed, %d skipped, %d files, %d pings",
		refdes, time.Since(start), len(m.report.Committed), len(m.report.Skipped), m.report.Files, m.report.Pings)
	return nil
}

func join(bucket, key string) string {
	return strings.TrimSuffix(bucket, "/") + "/" + key
}

func isLocal(base string) bool {
	return strings.HasPrefix(base, "file://") || !strings.Contains(base, "://")
}
