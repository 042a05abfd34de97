package service

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/ledger"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

var ErrInvalidPriceConfig = errors.New("invalid price service config")

// PriceProvider resolves an asset's single current price. Unavailability is
// an error for the asking pair only, never for unrelated assets.
type PriceProvider interface {
	CurrentPrice(assetID int64) (float64, error)
}

type PriceRepository interface {
	GetAssetByID(id int64) (*models.Asset, error)
}

// PriceService serves current prices from the asset table through a small
// expiring cache, so a rebuild fanning out over many pairs does not hit the
// database once per pair per asset.
type PriceService struct {
	logger *slog.Logger
	repo   PriceRepository
	cache  *gocache.Cache
	ttl    time.Duration
}

type PriceOption func(*PriceService)

func WithPriceLogger(l *slog.Logger) PriceOption {
	return func(s *PriceService) {
		s.logger = l
	}
}

func WithPriceRepo(r PriceRepository) PriceOption {
	return func(s *PriceService) {
		s.repo = r
	}
}

func WithPriceTTL(ttl time.Duration) PriceOption {
	return func(s *PriceService) {
		s.ttl = ttl
	}
}

func (s *PriceService) IsValid() error {
	switch {
	case s.logger == nil:
		return errors.Wrap(ErrInvalidPriceConfig, "logger cannot be nil")
	case s.repo == nil:
		return errors.Wrap(ErrInvalidPriceConfig, "repo cannot be nil")
	default:
		return nil
	}
}

func NewPriceService(opts ...PriceOption) (*PriceService, error) {
	s := &PriceService{
		ttl: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}

	s.cache = gocache.New(s.ttl, 2*s.ttl)
	return s, nil
}

func (s *PriceService) CurrentPrice(assetID int64) (float64, error) {
	key := strconv.FormatInt(assetID, 10)
	if cached, found := s.cache.Get(key); found {
		return cached.(float64), nil
	}

	asset, err := s.repo.GetAssetByID(assetID)
	if err != nil {
		return 0, errors.Wrapf(err, "load asset %d", assetID)
	}
	if asset.CurrentPrice == nil || *asset.CurrentPrice <= 0 {
		return 0, errors.Wrapf(ledger.ErrDataUnavailable,
			"no current price for asset %d (%s)", asset.ID, asset.Ticker)
	}

	s.cache.Set(key, *asset.CurrentPrice, gocache.DefaultExpiration)
	return *asset.CurrentPrice, nil
}

// Invalidate drops an asset's cached price after a price update.
func (s *PriceService) Invalidate(assetID int64) {
	s.cache.Delete(strconv.FormatInt(assetID, 10))
}
