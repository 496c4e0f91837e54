// Command order-ingest imports gzipped NDJSON order exports into the
// database. Each line is one order record in the API wire format, plus an
// optional id carried over from the source system.
//
// Records that reuse an already-imported order id are skipped. Membership
// is tracked with a bloom filter, so a small fraction of records can be
// skipped as false positives; for an import tool that favours
// at-most-once over exactly-once this is acceptable.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/orders-api/internal/codec"
	"github.com/xenking/orders-api/internal/domain/order"
	"github.com/xenking/orders-api/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000

	maxLineBytes = 16 << 20
)

// record is one decoded export line queued for insertion.
type record struct {
	draft order.Draft
	items []order.LineItemDraft
	line  int
}

func main() {
	var (
		databaseURL string
		workers     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 4, "number of concurrent insert workers")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no input files: pass one or more orders NDJSON .gz files")
		os.Exit(1)
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files, workers); err != nil {
		slog.Error("order ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, workers int) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewOrderRepository(pool)

	var imported, failed atomic.Uint64
	records := make(chan record, workers*2)

	g, ctx := errgroup.WithContext(ctx)

	// Insert workers. Each order is its own transaction, same write path
	// as the HTTP API.
	for range workers {
		g.Go(func() error {
			for rec := range records {
				if _, err := repo.Create(ctx, rec.draft, rec.items); err != nil {
					failed.Add(1)
					slog.Warn("import order",
						slog.Int("line", rec.line),
						slog.String("order_id", rec.draft.ID),
						slog.String("error", err.Error()),
					)
					continue
				}
				if n := imported.Add(1); n%progressEvery == 0 {
					slog.Info("import progress", slog.Uint64("orders", n))
				}
			}
			return nil
		})
	}

	// Producer: stream files sequentially, dedupe ids, feed the workers.
	g.Go(func() error {
		defer close(records)

		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var skipped uint64

		for _, path := range files {
			slog.Info("reading export file", slog.String("path", path))

			if err := streamGzFile(ctx, path, func(line int, data []byte) {
				draft, items, err := codec.DecodeOrderRecord(data)
				if err != nil {
					failed.Add(1)
					slog.Warn("decode export record",
						slog.String("path", path),
						slog.Int("line", line),
						slog.String("error", err.Error()),
					)
					return
				}

				if draft.ID == "" {
					draft.ID = uuid.New().String()
				} else if seen.TestString(draft.ID) {
					skipped++
					return
				}
				seen.AddString(draft.ID)

				for i := range items {
					items[i].ID = uuid.New().String()
				}

				select {
				case records <- record{draft: draft, items: items, line: line}:
				case <-ctx.Done():
				}
			}); err != nil {
				return errors.Wrapf(err, "stream %s", path)
			}
		}

		slog.Info("producer done", slog.Uint64("skipped_duplicates", skipped))
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Uint64("imported", imported.Load()),
		slog.Uint64("failed", failed.Load()),
	)
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each
// non-empty line with its 1-based line number.
func streamGzFile(ctx context.Context, path string, fn func(line int, data []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), maxLineBytes)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		fn(line, scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
