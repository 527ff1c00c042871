// Command coupon-ingest bulk-loads coupon codes from plain or gzip-compressed
// files. Each line is "CODE" or "CODE,type,value[,usageLimit]"; bare codes get
// the discount given by flags.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/storage/postgres"
)

func main() {
	var (
		dataDir      string
		databaseURL  string
		discountType string
		value        string
		usageLimit   int
		expires      string
		expected     uint
		fpr          float64
		workers      int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory searched for *.gz and *.txt files when no files are given")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&discountType, "type", string(coupon.DiscountPercentage), "discount type for bare codes")
	flag.StringVar(&value, "value", "10", "discount value for bare codes")
	flag.IntVar(&usageLimit, "usage-limit", 1, "usage limit for bare codes, 0 for unlimited")
	flag.StringVar(&expires, "expires", "", "RFC3339 expiry for bare codes")
	flag.UintVar(&expected, "expected", 10_000_000, "expected number of codes, sizes the duplicate filter")
	flag.Float64Var(&fpr, "fpr", 1e-6, "false positive rate of the duplicate filter")
	flag.IntVar(&workers, "workers", 4, "concurrent database writers")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	def, err := parseRule(discountType, value, usageLimit, expires)
	if err != nil {
		lg.Fatal("Invalid default discount", zap.Error(err))
	}

	files := flag.Args()
	if len(files) == 0 {
		if files, err = findFiles(dataDir); err != nil {
			lg.Fatal("Listing input files", zap.Error(err))
		}
	}
	if len(files) == 0 {
		lg.Fatal("No input files", zap.String("dir", dataDir))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, files, def, expected, fpr, max(workers, 1)); err != nil {
		lg.Error("Coupon ingest failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, def rule, expected uint, fpr float64, workers int) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	lg.Info("Ingesting coupons", zap.Strings("files", files), zap.Int("workers", workers))
	in := &ingester{
		lg:      lg,
		repo:    postgres.NewCouponRepository(pool),
		def:     def,
		filter:  bloom.NewWithEstimates(expected, fpr),
		workers: workers,
		now:     func() time.Time { return time.Now().UTC() },
	}
	return in.Run(ctx, files)
}

func parseRule(discountType, value string, usageLimit int, expires string) (rule, error) {
	r := rule{discountType: coupon.DiscountType(discountType), usageLimit: usageLimit}
	if !r.discountType.Valid() {
		return rule{}, errors.Errorf("unknown discount type %q", discountType)
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return rule{}, errors.Wrap(err, "parse value")
	}
	if v.IsNegative() || usageLimit < 0 {
		return rule{}, errors.New("value and usage limit must be non-negative")
	}
	r.discountValue = v
	if expires != "" {
		t, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return rule{}, errors.Wrap(err, "parse expiry")
		}
		r.expiresAt = &t
	}
	return r, nil
}

func findFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.gz", "*.txt"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	return files, nil
}
