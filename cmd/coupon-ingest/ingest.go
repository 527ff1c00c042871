package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/sarit-store/internal/domain/coupon"
)

const progressEvery = 100_000

// couponWriter is satisfied by *postgres.CouponRepository.
type couponWriter interface {
	InsertIfAbsent(ctx context.Context, c *coupon.Coupon) (bool, error)
}

// rule is applied to lines that carry only a code.
type rule struct {
	discountType  coupon.DiscountType
	discountValue decimal.Decimal
	usageLimit    int
	expiresAt     *time.Time
}

type stats struct {
	lines      atomic.Int64
	invalid    atomic.Int64
	duplicates atomic.Int64
	created    atomic.Int64
	existing   atomic.Int64
}

func (s *stats) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("lines", s.lines.Load()),
		zap.Int64("invalid", s.invalid.Load()),
		zap.Int64("duplicates", s.duplicates.Load()),
		zap.Int64("created", s.created.Load()),
		zap.Int64("existing", s.existing.Load()),
	}
}

type ingester struct {
	lg      *zap.Logger
	repo    couponWriter
	def     rule
	filter  *bloom.BloomFilter
	workers int
	now     func() time.Time
	stats   stats
}

// parseLine reads "CODE[,type,value[,usageLimit]]". ok is false for blank
// lines and comments.
func (r rule) parseLine(line string, now time.Time) (c *coupon.Coupon, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false, nil
	}

	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	c = &coupon.Coupon{
		Code:          coupon.NormalizeCode(parts[0]),
		DiscountType:  r.discountType,
		DiscountValue: r.discountValue,
		UsageLimit:    r.usageLimit,
		ExpiresAt:     r.expiresAt,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch len(parts) {
	case 1:
	case 3, 4:
		c.DiscountType = coupon.DiscountType(strings.ToLower(parts[1]))
		if c.DiscountValue, err = decimal.NewFromString(parts[2]); err != nil {
			return nil, false, errors.Wrapf(err, "discount value %q", parts[2])
		}
		if len(parts) == 4 {
			if c.UsageLimit, err = strconv.Atoi(parts[3]); err != nil {
				return nil, false, errors.Wrapf(err, "usage limit %q", parts[3])
			}
		}
	default:
		return nil, false, errors.Errorf("expected 1, 3 or 4 fields, got %d", len(parts))
	}

	if err := c.Validate(); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// Run streams every file, drops codes already seen in this run and inserts
// the rest. Codes already in the database are left untouched.
func (in *ingester) Run(ctx context.Context, files []string) error {
	g, ctx := errgroup.WithContext(ctx)

	parsed := make(chan *coupon.Coupon, 1024)
	unique := make(chan *coupon.Coupon, 1024)

	readers, rctx := errgroup.WithContext(ctx)
	for _, path := range files {
		readers.Go(func() error {
			return in.readFile(rctx, path, parsed)
		})
	}
	g.Go(func() error {
		defer close(parsed)
		return readers.Wait()
	})

	// The filter is owned by this goroutine alone.
	g.Go(func() error {
		defer close(unique)
		for c := range parsed {
			if in.filter.TestOrAddString(c.Code) {
				in.stats.duplicates.Add(1)
				continue
			}
			select {
			case unique <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range in.workers {
		g.Go(func() error {
			for c := range unique {
				created, err := in.repo.InsertIfAbsent(ctx, c)
				if err != nil {
					return errors.Wrapf(err, "insert %s", c.Code)
				}
				if created {
					in.stats.created.Add(1)
				} else {
					in.stats.existing.Add(1)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	in.lg.Info("Ingest finished", in.stats.fields()...)
	return nil
}

func (in *ingester) readFile(ctx context.Context, path string, out chan<- *coupon.Coupon) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	lg := in.lg.With(zap.String("file", path))
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		if total := in.stats.lines.Add(1); total%progressEvery == 0 {
			in.lg.Info("Progress", in.stats.fields()...)
		}

		c, ok, err := in.def.parseLine(scanner.Text(), in.now())
		if err != nil {
			in.stats.invalid.Add(1)
			lg.Warn("Skipping invalid line", zap.Int("line", n), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
