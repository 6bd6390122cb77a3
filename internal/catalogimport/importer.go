// Package catalogimport bulk-loads gzip'd JSON-lines catalog dumps.
//
// Dumps are processed in three concurrent passes. Pass 1 builds a bloom
// filter of valid product IDs per file. Pass 2 re-reads every file and
// collects the IDs that another file's filter may contain; merging the
// per-file bitmasks gives the exact set of IDs present in two or more files. Pass 3 upserts
// every record, taking a duplicated ID only from the last file that has a
// valid copy of it.
package catalogimport

import (
	"bufio"
	"bytes"
	"context"
	"math/bits"
	"os"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/nilecart/internal/domain/product"
)

const maxLineSize = 1 << 20

// Upserter stores imported products.
type Upserter interface {
	Upsert(ctx context.Context, p product.Product) error
}

// Options tunes an Importer. Zero values select the defaults.
type Options struct {
	// BloomCapacity is the expected number of IDs per file.
	BloomCapacity uint
	// BloomFPR is the bloom filter false positive rate.
	BloomFPR float64
	// ProgressEvery logs progress every N lines per file.
	ProgressEvery uint64
	// DefaultSeller is used for records without sellerId.
	DefaultSeller string
	// Approve publishes imported products immediately.
	Approve bool
	Now     func() time.Time
}

func (o *Options) setDefaults() {
	if o.BloomCapacity == 0 {
		o.BloomCapacity = 10_000_000
	}
	if o.BloomFPR <= 0 {
		o.BloomFPR = 0.001
	}
	if o.ProgressEvery == 0 {
		o.ProgressEvery = 1_000_000
	}
	if o.DefaultSeller == "" {
		o.DefaultSeller = "nilecart"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Stats summarizes an import run.
type Stats struct {
	Files int
	// Duplicates is the number of IDs found in two or more files.
	Duplicates int
	// Upserted counts records written to the store.
	Upserted uint64
	// Shadowed counts records skipped because a later file has the same ID.
	Shadowed uint64
	// Invalid counts lines that could not be decoded.
	Invalid uint64
}

// Importer loads catalog dumps into an Upserter.
type Importer struct {
	store Upserter
	lg    *zap.Logger
	opts  Options
}

// New creates an Importer.
func New(store Upserter, lg *zap.Logger, opts Options) *Importer {
	opts.setDefaults()
	return &Importer{store: store, lg: lg, opts: opts}
}

// Run imports files. Later files win over earlier ones for the same ID.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	if len(files) == 0 {
		return Stats{}, errors.New("no input files")
	}
	if len(files) > bits.UintSize {
		return Stats{}, errors.Errorf("at most %d files per run, got %d", bits.UintSize, len(files))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return Stats{}, errors.Wrapf(err, "check file %s", f)
		}
	}

	im.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	filters, err := im.buildFilters(ctx, files)
	if err != nil {
		return Stats{}, errors.Wrap(err, "build bloom filters")
	}

	im.lg.Info("Pass 2: finding duplicated IDs")
	owners, err := im.findDuplicates(ctx, files, filters)
	if err != nil {
		return Stats{}, errors.Wrap(err, "find duplicates")
	}
	im.lg.Info("Duplicated IDs found", zap.Int("count", len(owners)))

	im.lg.Info("Pass 3: upserting products")
	stats, err := im.upsert(ctx, files, owners)
	if err != nil {
		return stats, errors.Wrap(err, "upsert")
	}
	stats.Files = len(files)
	stats.Duplicates = len(owners)

	im.lg.Info("Import complete",
		zap.Uint64("upserted", stats.Upserted),
		zap.Uint64("shadowed", stats.Shadowed),
		zap.Uint64("invalid", stats.Invalid),
	)
	return stats, nil
}

func (im *Importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.opts.BloomCapacity, im.opts.BloomFPR)
			var count uint64
			err := streamLines(ctx, path, func(line []byte) error {
				id, err := validID(line)
				if err != nil {
					return nil
				}
				filter.AddString(id)
				count++
				if count%im.opts.ProgressEvery == 0 {
					im.lg.Info("Pass 1 progress", zap.Int("file", i+1), zap.Uint64("ids", count))
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "file %d", i+1)
			}
			im.lg.Info("Pass 1 complete", zap.Int("file", i+1), zap.Uint64("ids", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findDuplicates returns, for every ID present in two or more files, the
// index of the last file containing it.
func (im *Importer) findDuplicates(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]int, error) {
	candidates := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]uint)
			bit := uint(1) << uint(i)
			err := streamLines(ctx, path, func(line []byte) error {
				id, err := validID(line)
				if err != nil {
					return nil
				}
				for j, f := range filters {
					if j != i && f.TestString(id) {
						found[id] |= bit
						break
					}
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "file %d", i+1)
			}
			im.lg.Info("Pass 2 complete", zap.Int("file", i+1), zap.Int("candidates", len(found)))
			candidates[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, found := range candidates {
		for id, mask := range found {
			merged[id] |= mask
		}
	}

	owners := make(map[string]int)
	for id, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			owners[id] = bits.Len(mask) - 1
		}
	}
	return owners, nil
}

func (im *Importer) upsert(ctx context.Context, files []string, owners map[string]int) (Stats, error) {
	var upserted, shadowed, invalid atomic.Uint64
	now := im.opts.Now().UTC()

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			var line uint64
			err := streamLines(ctx, path, func(data []byte) error {
				line++
				p, err := DecodeProduct(jx.DecodeBytes(data))
				if err != nil {
					invalid.Add(1)
					im.lg.Warn("Skipping invalid record",
						zap.Int("file", i+1),
						zap.Uint64("line", line),
						zap.Error(err),
					)
					return nil
				}
				if owner, ok := owners[p.ID]; ok && owner != i {
					shadowed.Add(1)
					return nil
				}

				if p.SellerID == "" {
					p.SellerID = im.opts.DefaultSeller
				}
				p.Approved = im.opts.Approve
				p.CreatedAt, p.UpdatedAt = now, now
				if err := im.store.Upsert(ctx, p); err != nil {
					return err
				}
				if n := upserted.Add(1); n%im.opts.ProgressEvery == 0 {
					im.lg.Info("Pass 3 progress", zap.Uint64("upserted", n))
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "file %d", i+1)
			}
			return nil
		})
	}
	err := g.Wait()
	return Stats{
		Upserted: upserted.Load(),
		Shadowed: shadowed.Load(),
		Invalid:  invalid.Load(),
	}, err
}

// validID returns the ID of a record that would be imported. Undecodable
// records never take part in duplicate resolution, so a broken copy in a
// later file cannot shadow a valid copy in an earlier one.
func validID(line []byte) (string, error) {
	p, err := DecodeProduct(jx.DecodeBytes(line))
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// streamLines calls fn for every non-blank line of a gzip file.
func streamLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
