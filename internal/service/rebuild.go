package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/ledger"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/repo"
	"github.com/martinchoi85-lang/my-asset-portfolio/pkg/types/pubsub"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidRebuildConfig = errors.New("invalid rebuild service config")

const defaultRebuildWorkers = 4

// PairKey identifies one (account, asset) rebuild partition.
type PairKey struct {
	AccountID string
	AssetID   int64
}

func (k PairKey) String() string {
	return fmt.Sprintf("%s/%d", k.AccountID, k.AssetID)
}

// MarshalText lets PairKey serve as a JSON map key in status maps.
func (k PairKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// PairStatus is the outcome of one pair's rebuild: row count on success,
// reason on failure. A rebuild always reports per pair, never one boolean.
type PairStatus struct {
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
}

func (s PairStatus) OK() bool {
	return s.Error == ""
}

// ProgressEvent is published after each pair finishes, for streaming
// consumers.
type ProgressEvent struct {
	AccountID string `json:"account_id"`
	AssetID   int64  `json:"asset_id"`
	Rows      int    `json:"rows"`
	Error     string `json:"error,omitempty"`
}

type RebuildRepository interface {
	FetchLedger(accountID string, assetID int64) ([]models.Transaction, error)
	GetAssetByID(id int64) (*models.Asset, error)
	DistinctAssetIDs(accountID string) ([]int64, error)
	ListManualValuations(accountID string, assetID int64, start, end time.Time) ([]models.ManualValuation, error)
	ReplaceSnapshotRange(accountID string, assetID int64, start, end time.Time, rows []models.DailySnapshot, keepDates []time.Time) error
}

// RebuildService turns the transaction ledger into daily snapshot rows.
// Pairs are independent partitions: they share no mutable state, run on a
// bounded worker pool, and one pair's failure never aborts its siblings.
// Only a corrupt shared input (an inconsistent ledger fetch) cancels the run.
type RebuildService struct {
	logger    *slog.Logger
	repo      RebuildRepository
	prices    PriceProvider
	publisher pubsub.Publisher
	workers   int
}

type RebuildOption func(*RebuildService)

func WithRebuildLogger(l *slog.Logger) RebuildOption {
	return func(s *RebuildService) {
		s.logger = l
	}
}

func WithRebuildRepo(r RebuildRepository) RebuildOption {
	return func(s *RebuildService) {
		s.repo = r
	}
}

func WithRebuildPrices(p PriceProvider) RebuildOption {
	return func(s *RebuildService) {
		s.prices = p
	}
}

func WithRebuildPublisher(p pubsub.Publisher) RebuildOption {
	return func(s *RebuildService) {
		s.publisher = p
	}
}

func WithRebuildWorkers(n int) RebuildOption {
	return func(s *RebuildService) {
		s.workers = n
	}
}

func (s *RebuildService) IsValid() error {
	switch {
	case s.logger == nil:
		return errors.Wrap(ErrInvalidRebuildConfig, "logger cannot be nil")
	case s.repo == nil:
		return errors.Wrap(ErrInvalidRebuildConfig, "repo cannot be nil")
	case s.prices == nil:
		return errors.Wrap(ErrInvalidRebuildConfig, "price provider cannot be nil")
	case s.workers <= 0:
		return errors.Wrap(ErrInvalidRebuildConfig, "workers must be positive")
	default:
		return nil
	}
}

func NewRebuildService(opts ...RebuildOption) (*RebuildService, error) {
	s := &RebuildService{
		workers: defaultRebuildWorkers,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rebuild recomputes the snapshot rows of every asset the account has
// transacted in, over [start, end]. The returned map holds one entry per
// pair. The error is non-nil only for run-level failures (ledger source
// inconsistency, cancellation); pair-local failures live in the map.
func (s *RebuildService) Rebuild(ctx context.Context, accountID string, start, end time.Time) (map[PairKey]PairStatus, error) {
	assetIDs, err := s.repo.DistinctAssetIDs(accountID)
	if err != nil {
		return nil, errors.Wrap(err, "list rebuild partitions")
	}

	statuses := make(map[PairKey]PairStatus, len(assetIDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, assetID := range assetIDs {
		pair := PairKey{AccountID: accountID, AssetID: assetID}
		g.Go(func() error {
			rows, err := s.RebuildPair(ctx, pair, start, end)

			status := PairStatus{Rows: rows}
			if err != nil {
				// A truncated ledger poisons every downstream figure:
				// abort the whole run. Anything else stays pair-local.
				if errors.Is(err, repo.ErrSourceLimit) || ctx.Err() != nil {
					return err
				}
				status.Error = err.Error()
				s.logger.Warn("pair rebuild failed",
					"account_id", pair.AccountID, "asset_id", pair.AssetID, "error", err)
			}

			mu.Lock()
			statuses[pair] = status
			mu.Unlock()

			s.publish(pair, status)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return statuses, err
	}
	return statuses, nil
}

// RebuildPair recomputes one pair's rows for [start, end] and swaps them in
// atomically. Nothing is persisted on failure; a cancelled rebuild is
// equivalent to one that never started.
func (s *RebuildService) RebuildPair(ctx context.Context, pair PairKey, start, end time.Time) (int, error) {
	start, end = ledger.Day(start), ledger.Day(end)
	if end.Before(start) {
		return 0, errors.Wrapf(ledger.ErrValidation, "range end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	transactions, err := s.repo.FetchLedger(pair.AccountID, pair.AssetID)
	if err != nil {
		return 0, err
	}

	asset, err := s.repo.GetAssetByID(pair.AssetID)
	if err != nil {
		return 0, errors.Wrapf(err, "load asset %d", pair.AssetID)
	}

	valuer, err := s.valuerFor(pair, asset, end)
	if err != nil {
		return 0, err
	}

	// Dates covered by externally supplied manual valuations stay as they
	// are: excluded from both delete and insert.
	skip := make(map[time.Time]bool)
	var keepDates []time.Time
	if asset.IsManual() {
		inRange, err := s.repo.ListManualValuations(pair.AccountID, pair.AssetID, start, end)
		if err != nil {
			return 0, errors.Wrap(err, "list manual valuations")
		}
		for _, mv := range inRange {
			d := ledger.Day(mv.Date)
			skip[d] = true
			keepDates = append(keepDates, d)
		}
	}

	projector := ledger.NewProjector(transactions, asset.IsCash())
	var rows []models.DailySnapshot
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		position, err := projector.AdvanceTo(d)
		if err != nil {
			return 0, err
		}
		if skip[d] {
			continue
		}

		price, amount, err := valuer.Valuate(d, position.Quantity)
		if err != nil {
			return 0, err
		}

		rows = append(rows, models.DailySnapshot{
			Date:            d,
			AssetID:         pair.AssetID,
			AccountID:       pair.AccountID,
			Quantity:        position.Quantity,
			ValuationPrice:  price,
			PurchasePrice:   position.AveragePrice(),
			ValuationAmount: amount,
			PurchaseAmount:  position.CostBasis,
			Currency:        asset.Currency,
		})
	}

	if err := s.repo.ReplaceSnapshotRange(pair.AccountID, pair.AssetID, start, end, rows, keepDates); err != nil {
		return 0, errors.Wrap(err, "persist snapshot range")
	}
	return len(rows), nil
}

func (s *RebuildService) valuerFor(pair PairKey, asset *models.Asset, end time.Time) (ledger.Valuer, error) {
	switch {
	case asset.IsCash():
		return ledger.ValuerFor(asset, nil, nil)

	case asset.IsManual():
		// Carry-forward needs history from before the range too.
		manual, err := s.repo.ListManualValuations(pair.AccountID, pair.AssetID, time.Time{}, end)
		if err != nil {
			return nil, errors.Wrap(err, "list manual valuations")
		}
		return ledger.ValuerFor(asset, nil, manual)

	default:
		price, err := s.prices.CurrentPrice(pair.AssetID)
		if err != nil {
			return nil, err
		}
		return ledger.ValuerFor(asset, &price, nil)
	}
}

func (s *RebuildService) publish(pair PairKey, status PairStatus) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(ProgressEvent{
		AccountID: pair.AccountID,
		AssetID:   pair.AssetID,
		Rows:      status.Rows,
		Error:     status.Error,
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(payload); err != nil {
		s.logger.Warn("failed to publish rebuild progress", "error", err)
	}
}
