package ingest

import (
	"context"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/kafka"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WorkerMain holds the config of a worker harvesting runs dispatched over
// Kafka. Settings which are not part of a run request apply to every run.
type WorkerMain struct {
	KafkaHosts   []string `help:"Comma separated list of Kafka hosts and ports."`
	Topic        string   `help:"Kafka topic carrying run requests."`
	Group        string   `help:"Kafka consumer group shared by all workers."`
	ListingBase  string   `help:"Root URL of the raw data archive."`
	ListingCache string   `help:"Directory of a leveldb cache of past listings. Empty disables caching."`
	Calibrator   string   `help:"Calibration command run once per raw file. 'fake' generates synthetic data."`
	ChunkSize    int      `help:"Pings per store chunk when creating a store."`
	LogPath      string   `help:"Log file to write to. Empty means stderr."`
	Verbose      bool     `help:"Enable verbose logging."`
}

// NewWorkerMain gets a WorkerMain with default values.
func NewWorkerMain() *WorkerMain {
	m := NewMain()
	return &WorkerMain{
		KafkaHosts:  m.KafkaHosts,
		Topic:       m.Topic,
		Group:       "echo-harvest",
		ListingBase: m.ListingBase,
		Calibrator:  m.Calibrator,
		ChunkSize:   m.ChunkSize,
	}
}

// base is the Main every dispatched run starts from.
func (w *WorkerMain) base() Main {
	m := NewMain()
	m.ListingBase = w.ListingBase
	m.ListingCache = w.ListingCache
	m.Calibrator = w.Calibrator
	m.ChunkSize = w.ChunkSize
	m.LogPath = w.LogPath
	m.Verbose = w.Verbose
	return *m
}

// Runner harvests one dispatched run.
func (w *WorkerMain) Runner() kafka.Runner {
	return func(ctx context.Context, r kafka.RunRequest) error {
		return FromRunRequest(w.base(), r).Run(ctx)
	}
}

// Run consumes run requests until ctx is done.
func (w *WorkerMain) Run(ctx context.Context) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if w.LogPath != "" {
		cfg.OutputPaths = []string{w.LogPath}
	}
	zl, err := cfg.Build()
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	defer func() { _ = zl.Sync() }()
	log := echo.NewZapLogger(zl.With(zap.String("group", w.Group)))

	worker, err := kafka.NewWorker(w.KafkaHosts, w.Topic, w.Group, w.Runner(), log)
	if err != nil {
		return errors.Wrap(err, "getting worker")
	}
	log.Printf("consuming run requests from %s as %s", w.Topic, w.Group)
	return worker.Consume(ctx)
}
