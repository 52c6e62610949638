// Package chunkstore implements echo.ArrayStore as a chunked array store
// laid over any echo.ObjectStore.
//
// A store lives under a key prefix and is made of:
//
//    store.json          metadata: variable schema and the list of chunks
//    chunks/NNNNNNNNNN   gzipped gob encoded ping_time slices of a dataset
//    static/NNNNNNNNNN   gzipped gob encoded variables with no ping_time
//
// A write puts its chunk objects first and the metadata last. The metadata
// put is the commit point: chunks it doesn't reference are never read, so an
// interrupted write leaves the store as it was before the write began.
package chunkstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

const (
	metaKey = "store.json"
	format  = 1

	// DefaultChunkSize is the number of pings per chunk object.
	DefaultChunkSize = 512
)

// ErrNoStore is returned by Read and by appending Writes when the store has
// not been created.
var ErrNoStore = errors.New("store does not exist")

var _ echo.ArrayStore = &Store{}

// Store is a chunked array store for one instrument.
type Store struct {
	objects   echo.ObjectStore
	prefix    string
	chunkSize int
	log       echo.Logger
}

// Option is a functional option for Store.
type Option func(s *Store)

// OptChunkSize sets the number of pings per chunk object.
func OptChunkSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// OptLogger sets the logger.
func OptLogger(l echo.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New returns a Store under prefix in objects. prefix should end in a slash
// unless it is empty.
func New(objects echo.ObjectStore, prefix string, opts ...Option) *Store {
	s := &Store{
		objects:   objects,
		prefix:    prefix,
		chunkSize: DefaultChunkSize,
		log:       echo.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type meta struct {
	Format    int                `json:"format"`
	AppendDim string             `json:"append_dim"`
	ChunkSize int                `json:"chunk_size"`
	Commits   int                `json:"commits"`
	Variables map[string]varMeta `json:"variables"`
	Chunks    []chunkMeta        `json:"chunks"`
	Static    string             `json:"static,omitempty"`
	Updated   time.Time          `json:"updated"`
}

type varMeta struct {
	Dims []string `json:"dims"`
	Text bool     `json:"text,omitempty"`
}

type chunkMeta struct {
	Key   string    `json:"key"`
	Pings int       `json:"pings"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Exists reports whether the store has been created.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	ok, err := s.objects.Exists(ctx, s.prefix+metaKey)
	return ok, errors.Wrap(err, "checking store metadata")
}

func (s *Store) readMeta(ctx context.Context) (*meta, error) {
	data, err := s.objects.Get(ctx, s.prefix+metaKey)
	if errors.Cause(err) == echo.ErrObjectNotFound {
		return nil, ErrNoStore
	} else if err != nil {
		return nil, errors.Wrap(err, "reading store metadata")
	}
	m := &meta{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(err, "decoding store metadata")
	}
	if m.Format != format {
		return nil, errors.Errorf("unsupported store format %d", m.Format)
	}
	return m, nil
}

// Write commits ds. Create replaces anything under the prefix; Append
// extends ping_time and requires every variable of ds to already be in the
// store's schema with the same dimensions. Variables of the store missing
// from ds read back as missing values for ds's pings. Static variables are
// outer joined with the stored ones, the values of ds winning.
func (s *Store) Write(ctx context.Context, ds *echo.Dataset, mode echo.WriteMode) error {
	if ds.NumPings() == 0 {
		return errors.New("dataset has no pings")
	}
	if err := ds.Validate(); err != nil {
		return errors.Wrap(err, "validating dataset")
	}
	var m *meta
	switch mode {
	case echo.Create:
		if err := s.clear(ctx); err != nil {
			return errors.Wrap(err, "clearing store")
		}
		m = &meta{
			Format:    format,
			AppendDim: echo.PingTime,
			ChunkSize: s.chunkSize,
			Variables: make(map[string]varMeta),
		}
	case echo.Append:
		var err error
		m, err = s.readMeta(ctx)
		if err != nil {
			return errors.Wrap(err, "appending")
		}
	default:
		return errors.Errorf("unknown write mode %d", mode)
	}

	for _, name := range ds.VarNames() {
		v := ds.Vars[name]
		vm, ok := m.Variables[name]
		if !ok {
			if mode == echo.Append {
				return errors.Errorf("variable %s is not in the store schema", name)
			}
			m.Variables[name] = varMeta{Dims: v.Dims, Text: v.IsText()}
			continue
		}
		if !equalDims(vm.Dims, v.Dims) || vm.Text != v.IsText() {
			return errors.Errorf("variable %s has dimensions %v, store has %v", name, v.Dims, vm.Dims)
		}
	}

	timed, static := ds.Split()
	var oldStatic string
	m.Commits++
	seq := len(m.Chunks)
	for i := 0; i < timed.NumPings(); i += m.ChunkSize {
		j := i + m.ChunkSize
		if j > timed.NumPings() {
			j = timed.NumPings()
		}
		part := timed.ISel(i, j)
		key := fmt.Sprintf("chunks/%010d", seq)
		if err := s.put(ctx, key, part); err != nil {
			return errors.Wrapf(err, "writing chunk %s", key)
		}
		m.Chunks = append(m.Chunks, chunkMeta{
			Key:   key,
			Pings: part.NumPings(),
			Start: minTime(part.PingTime),
			End:   maxTime(part.PingTime),
		})
		seq++
	}
	if len(static.Vars) > 0 {
		if m.Static != "" {
			old, err := s.get(ctx, m.Static)
			if err != nil {
				return errors.Wrapf(err, "reading static variables %s", m.Static)
			}
			if static, err = echo.Concat(static, old); err != nil {
				return errors.Wrap(err, "merging static variables")
			}
		}
		key := fmt.Sprintf("static/%010d", m.Commits)
		if err := s.put(ctx, key, static); err != nil {
			return errors.Wrapf(err, "writing static variables %s", key)
		}
		oldStatic, m.Static = m.Static, key
	}

	m.Updated = time.Now().UTC()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding store metadata")
	}
	if err := s.objects.Put(ctx, s.prefix+metaKey, data); err != nil {
		return errors.Wrap(err, "writing store metadata")
	}
	s.log.Debugf("committed %d pings to %s in %d chunks", ds.NumPings(), s.prefix, len(m.Chunks))

	if oldStatic != "" {
		if err := s.objects.Delete(ctx, s.prefix+oldStatic); err != nil {
			s.log.Printf("removing replaced static variables %s: %v", oldStatic, err)
		}
	}
	return nil
}

// Read returns the pings with from <= ping_time < to in time order, plus the
// static variables joined by label onto the channels those pings have.
// Chunks which can't overlap the range are not fetched.
func (s *Store) Read(ctx context.Context, from, to time.Time) (*echo.Dataset, error) {
	m, err := s.readMeta(ctx)
	if err != nil {
		return nil, err
	}
	var chunks []chunkMeta
	for _, c := range m.Chunks {
		if !from.IsZero() && c.End.Before(from) {
			continue
		}
		if !to.IsZero() && !c.Start.Before(to) {
			continue
		}
		chunks = append(chunks, c)
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Start.Before(chunks[j].Start) })

	parts := make([]*echo.Dataset, 0, len(chunks))
	for _, c := range chunks {
		part, err := s.get(ctx, c.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "reading chunk %s", c.Key)
		}
		parts = append(parts, part.SelectTime(from, to))
	}
	out := echo.NewDataset()
	if len(parts) > 0 {
		out, err = echo.Concat(parts...)
		if err != nil {
			return nil, errors.Wrap(err, "joining chunks")
		}
		out = out.SortByTime()
	}
	if m.Static != "" {
		static, err := s.get(ctx, m.Static)
		if err != nil {
			return nil, errors.Wrapf(err, "reading static variables %s", m.Static)
		}
		out = out.Merge(static)
	}
	return out, nil
}

// clear deletes every object under the prefix.
func (s *Store) clear(ctx context.Context) error {
	keys, err := s.objects.List(ctx, s.prefix)
	if err != nil {
		return errors.Wrap(err, "listing store objects")
	}
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil && errors.Cause(err) != echo.ErrObjectNotFound {
			return errors.Wrapf(err, "deleting %s", key)
		}
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, ds *echo.Dataset) error {
	buf := &bytes.Buffer{}
	zw := gzip.NewWriter(buf)
	if err := gob.NewEncoder(zw).Encode(ds); err != nil {
		return errors.Wrap(err, "encoding")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "compressing")
	}
	return s.objects.Put(ctx, s.prefix+key, buf.Bytes())
}

func (s *Store) get(ctx context.Context, key string) (*echo.Dataset, error) {
	data, err := s.objects.Get(ctx, s.prefix+key)
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decompressing")
	}
	raw, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing")
	}
	ds := echo.NewDataset()
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(ds); err != nil {
		return nil, errors.Wrap(err, "decoding")
	}
	return ds, nil
}

func equalDims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func minTime(ts []time.Time) time.Time {
	m := ts[0]
	for _, t := range ts[1:] {
		if t.Before(m) {
			m = t
		}
	}
	return m
}

func maxTime(ts []time.Time) time.Time {
	m := ts[0]
	for _, t := range ts[1:] {
		if t.After(m) {
			m = t
		}
	}
	return m
}
