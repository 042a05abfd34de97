package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/ledger"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/pkg/errors"
)

var ErrInvalidTradeConfig = errors.New("invalid trade service config")

type TradeRepository interface {
	CreateTransaction(tx *models.Transaction) error
	CreateTransactionPair(trade, cashLeg *models.Transaction) error
	GetTransactionByID(id int64) (*models.Transaction, error)
	DeleteTransaction(id int64) error
	GetAssetByID(id int64) (*models.Asset, error)
	GetAccountByID(id string) (*models.Account, error)
}

type Rebuilder interface {
	RebuildPair(ctx context.Context, pair PairKey, start, end time.Time) (int, error)
}

// TradeRequest is one ledger entry to record. When CashAssetID is set on a
// BUY or SELL, a synthetic cash leg is written alongside it so the money side
// of the trade stays inside the portfolio.
type TradeRequest struct {
	AccountID       string    `json:"account_id"`
	AssetID         int64     `json:"asset_id"`
	TradeType       string    `json:"trade_type"`
	TransactionDate time.Time `json:"transaction_date"`
	Quantity        float64   `json:"quantity"`
	Price           float64   `json:"price"`
	Fee             float64   `json:"fee"`
	Tax             float64   `json:"tax"`
	Memo            string    `json:"memo"`
	CashAssetID     *int64    `json:"cash_asset_id,omitempty"`
}

// TradeService records ledger entries and keeps snapshots consistent with
// them: every write is followed by a rebuild of the affected pairs from the
// transaction date forward.
type TradeService struct {
	logger    *slog.Logger
	repo      TradeRepository
	rebuilder Rebuilder
	now       func() time.Time
}

type TradeOption func(*TradeService)

func WithTradeLogger(l *slog.Logger) TradeOption {
	return func(s *TradeService) {
		s.logger = l
	}
}

func WithTradeRepo(r TradeRepository) TradeOption {
	return func(s *TradeService) {
		s.repo = r
	}
}

func WithTradeRebuilder(r Rebuilder) TradeOption {
	return func(s *TradeService) {
		s.rebuilder = r
	}
}

func WithTradeClock(now func() time.Time) TradeOption {
	return func(s *TradeService) {
		s.now = now
	}
}

func (s *TradeService) IsValid() error {
	switch {
	case s.logger == nil:
		return errors.Wrap(ErrInvalidTradeConfig, "logger cannot be nil")
	case s.repo == nil:
		return errors.Wrap(ErrInvalidTradeConfig, "repo cannot be nil")
	case s.rebuilder == nil:
		return errors.Wrap(ErrInvalidTradeConfig, "rebuilder cannot be nil")
	case s.now == nil:
		return errors.Wrap(ErrInvalidTradeConfig, "clock cannot be nil")
	default:
		return nil
	}
}

func NewTradeService(opts ...TradeOption) (*TradeService, error) {
	s := &TradeService{
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}
	return s, nil
}

// Record validates and persists one trade, then rebuilds every pair the
// write touched, from the transaction date through today. The returned
// status map has one entry per rebuilt pair.
func (s *TradeService) Record(ctx context.Context, req TradeRequest) (*models.Transaction, map[PairKey]PairStatus, error) {
	asset, err := s.validate(req)
	if err != nil {
		return nil, nil, err
	}

	trade := &models.Transaction{
		AccountID:       req.AccountID,
		AssetID:         req.AssetID,
		TransactionDate: ledger.Day(req.TransactionDate),
		TradeType:       req.TradeType,
		Quantity:        req.Quantity,
		Price:           req.Price,
		Fee:             req.Fee,
		Tax:             req.Tax,
		Memo:            req.Memo,
	}
	if asset.IsCash() {
		trade.Price = 1
	}

	cashLeg, err := s.cashLeg(req, asset, trade)
	if err != nil {
		return nil, nil, err
	}

	if cashLeg != nil {
		trade.CashFunded = true
		if err := s.repo.CreateTransactionPair(trade, cashLeg); err != nil {
			return nil, nil, errors.Wrap(err, "persist transaction pair")
		}
	} else if err := s.repo.CreateTransaction(trade); err != nil {
		return nil, nil, errors.Wrap(err, "persist transaction")
	}

	s.logger.Info("transaction recorded",
		"transaction_id", trade.ID,
		"account_id", trade.AccountID,
		"asset_id", trade.AssetID,
		"trade_type", trade.TradeType,
		"cash_funded", trade.CashFunded)

	pairs := []PairKey{{AccountID: trade.AccountID, AssetID: trade.AssetID}}
	if cashLeg != nil {
		pairs = append(pairs, PairKey{AccountID: cashLeg.AccountID, AssetID: cashLeg.AssetID})
	}

	statuses, rebuildErr := s.rebuildPairs(ctx, pairs, trade.TransactionDate)
	if rebuildErr != nil {
		// The write must not outlive a failed projection: take the rows back
		// out and restore the snapshots the ledger still supports.
		s.rollback(ctx, trade, cashLeg, pairs)
		return nil, nil, rebuildErr
	}
	return trade, statuses, nil
}

func (s *TradeService) rollback(ctx context.Context, trade, cashLeg *models.Transaction, pairs []PairKey) {
	if err := s.repo.DeleteTransaction(trade.ID); err != nil {
		s.logger.Error("failed to roll back transaction", "transaction_id", trade.ID, "error", err)
	}
	if cashLeg != nil {
		if err := s.repo.DeleteTransaction(cashLeg.ID); err != nil {
			s.logger.Error("failed to roll back cash leg", "transaction_id", cashLeg.ID, "error", err)
		}
	}
	if _, err := s.rebuildPairs(ctx, pairs, trade.TransactionDate); err != nil {
		s.logger.Error("failed to restore snapshots after rollback", "error", err)
	}
}

// Remove deletes a transaction and rebuilds its pair so snapshots never show
// a trade the ledger no longer holds. A cash-funded trade never loses just
// one side: its auto-cash leg is removed in the same operation, whichever of
// the two rows was named.
func (s *TradeService) Remove(ctx context.Context, id int64) (map[PairKey]PairStatus, error) {
	tx, err := s.repo.GetTransactionByID(id)
	if err != nil {
		return nil, errors.Wrapf(err, "load transaction %d", id)
	}

	rows := []*models.Transaction{tx}
	if tx.CashPairID != nil {
		sibling, err := s.repo.GetTransactionByID(*tx.CashPairID)
		if err != nil {
			s.logger.Warn("cash pair row missing",
				"transaction_id", id, "cash_pair_id", *tx.CashPairID, "error", err)
		} else {
			rows = append(rows, sibling)
		}
	}

	for _, row := range rows {
		if err := s.repo.DeleteTransaction(row.ID); err != nil {
			return nil, errors.Wrapf(err, "delete transaction %d", row.ID)
		}
	}

	s.logger.Info("transaction removed",
		"transaction_id", id, "account_id", tx.AccountID, "asset_id", tx.AssetID,
		"rows", len(rows))

	pairs := make([]PairKey, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, PairKey{AccountID: row.AccountID, AssetID: row.AssetID})
	}
	statuses, rebuildErr := s.rebuildPairs(ctx, pairs, tx.TransactionDate)
	if rebuildErr != nil {
		// Removing these rows broke the ledger, typically a sell now
		// exceeding the position. Put them back and restore the snapshots.
		for _, row := range rows {
			if err := s.repo.CreateTransaction(row); err != nil {
				s.logger.Error("failed to restore transaction", "transaction_id", row.ID, "error", err)
			}
		}
		if _, err := s.rebuildPairs(ctx, pairs, tx.TransactionDate); err != nil {
			s.logger.Error("failed to restore snapshots", "transaction_id", id, "error", err)
		}
		return nil, rebuildErr
	}
	return statuses, nil
}

func (s *TradeService) validate(req TradeRequest) (*models.Asset, error) {
	if _, err := s.repo.GetAccountByID(req.AccountID); err != nil {
		return nil, errors.Wrapf(ledger.ErrValidation, "unknown account %q", req.AccountID)
	}
	asset, err := s.repo.GetAssetByID(req.AssetID)
	if err != nil {
		return nil, errors.Wrapf(ledger.ErrValidation, "unknown asset %d", req.AssetID)
	}

	if req.Quantity <= 0 {
		return nil, errors.Wrapf(ledger.ErrValidation, "quantity must be positive, got %v", req.Quantity)
	}
	if req.TransactionDate.IsZero() {
		return nil, errors.Wrap(ledger.ErrValidation, "transaction date is required")
	}
	if req.Fee < 0 || req.Tax < 0 {
		return nil, errors.Wrap(ledger.ErrValidation, "fee and tax cannot be negative")
	}

	switch req.TradeType {
	case models.TradeBuy, models.TradeSell, models.TradeInit:
		if !asset.IsCash() && req.Price <= 0 {
			return nil, errors.Wrapf(ledger.ErrValidation, "price must be positive, got %v", req.Price)
		}
	case models.TradeDeposit, models.TradeWithdraw:
		if !asset.IsCash() {
			return nil, errors.Wrapf(ledger.ErrValidation,
				"%s is only valid on cash assets", req.TradeType)
		}
	default:
		return nil, errors.Wrapf(ledger.ErrValidation, "unknown trade type %q", req.TradeType)
	}

	return asset, nil
}

// cashLeg derives the synthetic cash movement for a cash-funded trade: a BUY
// withdraws cost plus charges from the cash balance, a SELL deposits the net
// proceeds. Returns nil when the request carries no cash asset.
func (s *TradeService) cashLeg(req TradeRequest, asset *models.Asset, trade *models.Transaction) (*models.Transaction, error) {
	if req.CashAssetID == nil {
		return nil, nil
	}
	if asset.IsCash() {
		return nil, errors.Wrap(ledger.ErrValidation, "cash assets cannot be cash funded")
	}
	if req.TradeType != models.TradeBuy && req.TradeType != models.TradeSell {
		return nil, errors.Wrapf(ledger.ErrValidation,
			"cash funding is only valid on BUY and SELL, got %s", req.TradeType)
	}

	cashAsset, err := s.repo.GetAssetByID(*req.CashAssetID)
	if err != nil {
		return nil, errors.Wrapf(ledger.ErrValidation, "unknown cash asset %d", *req.CashAssetID)
	}
	if !cashAsset.IsCash() {
		return nil, errors.Wrapf(ledger.ErrValidation, "asset %d is not a cash asset", cashAsset.ID)
	}

	leg := &models.Transaction{
		AccountID:       req.AccountID,
		AssetID:         cashAsset.ID,
		TransactionDate: trade.TransactionDate,
		Price:           1,
		Memo:            trade.Memo,
		AutoCash:        true,
	}
	if req.TradeType == models.TradeBuy {
		leg.TradeType = models.TradeWithdraw
		leg.Quantity = req.Quantity*req.Price + req.Fee + req.Tax
	} else {
		leg.TradeType = models.TradeDeposit
		leg.Quantity = req.Quantity*req.Price - req.Fee - req.Tax
	}
	if leg.Quantity <= 0 {
		return nil, errors.Wrapf(ledger.ErrValidation,
			"charges %v exceed trade proceeds", req.Fee+req.Tax)
	}
	return leg, nil
}

// rebuildPairs recomputes each pair from the write date through today. The
// returned error is the first pair failure; the map still carries every
// pair's outcome.
func (s *TradeService) rebuildPairs(ctx context.Context, pairs []PairKey, from time.Time) (map[PairKey]PairStatus, error) {
	end := ledger.Day(s.now())
	if end.Before(from) {
		end = from
	}

	var firstErr error
	statuses := make(map[PairKey]PairStatus, len(pairs))
	for _, pair := range pairs {
		rows, err := s.rebuilder.RebuildPair(ctx, pair, from, end)
		status := PairStatus{Rows: rows}
		if err != nil {
			status.Error = err.Error()
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn("pair rebuild after write failed",
				"account_id", pair.AccountID, "asset_id", pair.AssetID, "error", err)
		}
		statuses[pair] = status
	}
	return statuses, firstErr
}
