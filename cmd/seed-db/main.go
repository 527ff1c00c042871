package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/auth"
	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/product"
	"github.com/xenking/sarit-store/internal/domain/shipping"
	"github.com/xenking/sarit-store/internal/domain/testimonial"
	"github.com/xenking/sarit-store/internal/storage/postgres"
)

type productJSON struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	ProductDescription string          `json:"productDescription"`
	Href               string          `json:"href"`
	Type               product.Type    `json:"type"`
	Price              decimal.Decimal `json:"price"`
	CompareAt          decimal.Decimal `json:"compareAt"`
	OnSale             bool            `json:"onSale"`
	Rating             decimal.Decimal `json:"rating"`
	Reviews            int             `json:"reviews"`
	DeliveryCharge     decimal.Decimal `json:"deliveryCharge"`
	Quantity           int             `json:"quantity"`
	Material           string          `json:"material"`
	Colors             []string        `json:"colors"`
	Capacity           string          `json:"capacity"`
	Brand              string          `json:"brand"`
	Features           []string        `json:"features"`
}

type stateJSON struct {
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

type options struct {
	databaseURL  string
	productsFile string
	statesFile   string
	apiKey       string
	apiKeyPepper string
	demoEmail    string
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&opts.statesFile, "states-file", "db/seed/states.json", "path to states and cities JSON file")
	flag.StringVar(&opts.apiKey, "api-key", "", "admin API key to seed (or SARIT_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SARIT_API_KEY_PEPPER env)")
	flag.StringVar(&opts.demoEmail, "demo-email", "demo@sarit.store", "email of the demo customer, empty to skip")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("SARIT_SEED_API_KEY")
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("SARIT_API_KEY_PEPPER")
	}
	switch {
	case opts.databaseURL == "":
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	case opts.apiKey == "":
		lg.Fatal("API key is required: set --api-key or SARIT_SEED_API_KEY")
	case opts.apiKeyPepper == "":
		lg.Fatal("API key pepper is required: set --api-key-pepper or SARIT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}

	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPlaces(ctx, lg, postgres.NewGeoRepository(pool), opts.statesFile); err != nil {
		return errors.Wrap(err, "seed states")
	}

	cfg, err := shipping.NewService(postgres.NewShippingRepository(pool)).EnsureSingleton(ctx)
	if err != nil {
		return errors.Wrap(err, "seed shipping config")
	}
	for _, m := range cfg.Methods {
		lg.Info("Shipping method", zap.String("id", string(m.ID)), zap.Stringer("cost", m.Cost))
	}

	if err := seedCoupons(ctx, lg, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedTestimonials(ctx, lg, testimonial.NewService(postgres.NewTestimonialRepository(pool))); err != nil {
		return errors.Wrap(err, "seed testimonials")
	}

	hash := auth.HashKey([]byte(opts.apiKeyPepper), opts.apiKey)
	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, hash, "Default admin key", []string{"admin"}); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	lg.Info("Upserted admin API key")

	if opts.demoEmail != "" {
		if err := postgres.NewUserRepository(pool).Upsert(ctx, "demo", opts.demoEmail, "Demo Customer"); err != nil {
			return errors.Wrap(err, "seed demo user")
		}
		lg.Info("Upserted demo user", zap.String("id", "demo"), zap.String("email", opts.demoEmail))
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.ProductRepository, path string) error {
	var products []productJSON
	if err := readJSON(path, &products); err != nil {
		return err
	}
	lg.Info("Upserting products", zap.Int("count", len(products)), zap.String("path", path))

	now := time.Now().UTC()
	for i, p := range products {
		// Stagger creation times so the default listing keeps file order.
		if err := repo.Upsert(ctx, &product.Product{
			ID:                 p.ID,
			Title:              p.Title,
			Name:               p.Name,
			Description:        p.Description,
			ProductDescription: p.ProductDescription,
			Href:               p.Href,
			Type:               p.Type,
			Price:              p.Price,
			CompareAt:          p.CompareAt,
			OnSale:             p.OnSale,
			Rating:             p.Rating,
			Reviews:            p.Reviews,
			DeliveryCharge:     p.DeliveryCharge,
			Quantity:           p.Quantity,
			Material:           p.Material,
			Colors:             p.Colors,
			Capacity:           p.Capacity,
			Brand:              p.Brand,
			Features:           p.Features,
			CreatedAt:          now.Add(time.Duration(i) * time.Second),
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}
	return nil
}

func seedPlaces(ctx context.Context, lg *zap.Logger, repo *postgres.GeoRepository, path string) error {
	var states []stateJSON
	if err := readJSON(path, &states); err != nil {
		return err
	}

	var cities int
	for _, s := range states {
		id, err := repo.UpsertState(ctx, s.Name)
		if err != nil {
			return errors.Wrapf(err, "upsert state %s", s.Name)
		}
		for _, c := range s.Cities {
			if err := repo.UpsertCity(ctx, id, c); err != nil {
				return errors.Wrapf(err, "upsert city %s/%s", s.Name, c)
			}
			cities++
		}
	}
	lg.Info("Upserted places", zap.Int("states", len(states)), zap.Int("cities", cities))
	return nil
}

func seedCoupons(ctx context.Context, lg *zap.Logger, repo *postgres.CouponRepository) error {
	now := time.Now().UTC()
	coupons := []coupon.Coupon{
		{Code: "WELCOME10", DiscountType: coupon.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)},
		{Code: "FLAT500", DiscountType: coupon.DiscountFixed, DiscountValue: decimal.NewFromInt(500), UsageLimit: 100},
		{Code: "FESTIVE25", DiscountType: coupon.DiscountPercentage, DiscountValue: decimal.NewFromInt(25), UsageLimit: 500},
	}

	for i := range coupons {
		c := &coupons[i]
		c.Active = true
		c.CreatedAt, c.UpdatedAt = now, now
		created, err := repo.InsertIfAbsent(ctx, c)
		if err != nil {
			return errors.Wrapf(err, "insert coupon %s", c.Code)
		}
		lg.Info("Seeded coupon", zap.String("code", c.Code), zap.Bool("created", created))
	}
	return nil
}

// seedTestimonials adds the storefront quotes once; reruns leave an existing
// list alone.
func seedTestimonials(ctx context.Context, lg *zap.Logger, svc *testimonial.Service) error {
	existing, err := svc.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		lg.Info("Testimonials already present", zap.Int("count", len(existing)))
		return nil
	}

	four := 4
	quotes := []testimonial.Input{
		{Quote: "The stitching on my tote still looks new after a year of daily commutes.", Author: "Meera K."},
		{Quote: "Arrived two days early and the colour is exactly as pictured.", Author: "Rohan S."},
		{Quote: "Roomy enough for a laptop and lunch. Wish it came in olive.", Author: "Ananya P.", Rating: &four},
	}
	for _, in := range quotes {
		if _, err := svc.Create(ctx, in); err != nil {
			return errors.Wrapf(err, "create testimonial by %s", in.Author)
		}
	}
	lg.Info("Seeded testimonials", zap.Int("count", len(quotes)))
	return nil
}
