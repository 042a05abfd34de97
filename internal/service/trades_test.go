package service

import (
	"context"
	"testing"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/ledger"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tradeRepoMock struct {
	accounts map[string]models.Account
	assets   map[int64]models.Asset
	created  []models.Transaction
	deleted  []int64
	nextID   int64
}

func newTradeRepoMock() *tradeRepoMock {
	return &tradeRepoMock{
		accounts: map[string]models.Account{"acc-1": {ID: "acc-1", Name: "Main"}},
		assets: map[int64]models.Asset{
			1: {ID: 1, Ticker: "VTI", AssetType: models.AssetStock, Currency: "USD"},
			2: {ID: 2, Ticker: "USD", AssetType: models.AssetCash, Currency: "USD"},
		},
	}
}

func (m *tradeRepoMock) assign(tx *models.Transaction) {
	m.nextID++
	tx.ID = m.nextID
	m.created = append(m.created, *tx)
}

func (m *tradeRepoMock) CreateTransaction(tx *models.Transaction) error {
	m.assign(tx)
	return nil
}

func (m *tradeRepoMock) CreateTransactionPair(trade, cashLeg *models.Transaction) error {
	m.nextID++
	trade.ID = m.nextID
	m.nextID++
	cashLeg.ID = m.nextID
	trade.CashPairID = &cashLeg.ID
	cashLeg.CashPairID = &trade.ID
	m.created = append(m.created, *trade, *cashLeg)
	return nil
}

func (m *tradeRepoMock) GetTransactionByID(id int64) (*models.Transaction, error) {
	for _, tx := range m.created {
		if tx.ID == id {
			return &tx, nil
		}
	}
	return nil, errors.Errorf("transaction %d not found", id)
}

func (m *tradeRepoMock) DeleteTransaction(id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *tradeRepoMock) GetAssetByID(id int64) (*models.Asset, error) {
	asset, ok := m.assets[id]
	if !ok {
		return nil, errors.Errorf("asset %d not found", id)
	}
	return &asset, nil
}

func (m *tradeRepoMock) GetAccountByID(id string) (*models.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, errors.Errorf("account %q not found", id)
	}
	return &account, nil
}

type rebuilderMock struct {
	calls []PairKey
	start time.Time
	end   time.Time
	err   error
}

func (m *rebuilderMock) RebuildPair(_ context.Context, pair PairKey, start, end time.Time) (int, error) {
	m.calls = append(m.calls, pair)
	m.start, m.end = start, end
	if m.err != nil {
		return 0, m.err
	}
	return 1, nil
}

func newTradeService(t *testing.T, repoMock TradeRepository, rb Rebuilder) *TradeService {
	t.Helper()
	svc, err := NewTradeService(
		WithTradeLogger(discardLogger),
		WithTradeRepo(repoMock),
		WithTradeRebuilder(rb),
		WithTradeClock(func() time.Time { return day(t, "2025-03-10") }),
	)
	require.NoError(t, err)
	return svc
}

func TestTradeService_InvalidConfig(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}

	tests := []struct {
		name string
		opts []TradeOption
	}{
		{"no logger", []TradeOption{WithTradeRepo(repoMock), WithTradeRebuilder(rb)}},
		{"no repo", []TradeOption{WithTradeLogger(discardLogger), WithTradeRebuilder(rb)}},
		{"no rebuilder", []TradeOption{WithTradeLogger(discardLogger), WithTradeRepo(repoMock)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTradeService(tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestTradeService_RecordBuy(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}
	svc := newTradeService(t, repoMock, rb)

	trade, statuses, err := svc.Record(context.Background(), TradeRequest{
		AccountID:       "acc-1",
		AssetID:         1,
		TradeType:       models.TradeBuy,
		TransactionDate: day(t, "2025-03-01"),
		Quantity:        10,
		Price:           100,
		Fee:             5,
	})
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.False(t, trade.CashFunded)

	require.Len(t, repoMock.created, 1)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[PairKey{AccountID: "acc-1", AssetID: 1}].OK())

	// Snapshots are recomputed from the trade date through today.
	assert.Equal(t, []PairKey{{AccountID: "acc-1", AssetID: 1}}, rb.calls)
	assert.Equal(t, day(t, "2025-03-01"), rb.start)
	assert.Equal(t, day(t, "2025-03-10"), rb.end)
}

func TestTradeService_RecordCashFundedBuy(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}
	svc := newTradeService(t, repoMock, rb)

	cashID := int64(2)
	trade, statuses, err := svc.Record(context.Background(), TradeRequest{
		AccountID:       "acc-1",
		AssetID:         1,
		TradeType:       models.TradeBuy,
		TransactionDate: day(t, "2025-03-01"),
		Quantity:        10,
		Price:           100,
		Fee:             5,
		CashAssetID:     &cashID,
	})
	require.NoError(t, err)
	assert.True(t, trade.CashFunded)

	require.Len(t, repoMock.created, 2)
	leg := repoMock.created[1]
	assert.True(t, leg.AutoCash)
	assert.Equal(t, models.TradeWithdraw, leg.TradeType)
	assert.Equal(t, int64(2), leg.AssetID)
	assert.Equal(t, 1005.0, leg.Quantity)
	assert.Equal(t, 1.0, leg.Price)
	assert.Equal(t, trade.TransactionDate, leg.TransactionDate)

	require.Len(t, statuses, 2)
	assert.ElementsMatch(t, []PairKey{
		{AccountID: "acc-1", AssetID: 1},
		{AccountID: "acc-1", AssetID: 2},
	}, rb.calls)
}

func TestTradeService_RecordCashFundedSell(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}
	svc := newTradeService(t, repoMock, rb)

	cashID := int64(2)
	_, _, err := svc.Record(context.Background(), TradeRequest{
		AccountID:       "acc-1",
		AssetID:         1,
		TradeType:       models.TradeSell,
		TransactionDate: day(t, "2025-03-05"),
		Quantity:        4,
		Price:           120,
		Fee:             3,
		Tax:             2,
		CashAssetID:     &cashID,
	})
	require.NoError(t, err)

	require.Len(t, repoMock.created, 2)
	leg := repoMock.created[1]
	assert.Equal(t, models.TradeDeposit, leg.TradeType)
	assert.Equal(t, 475.0, leg.Quantity)
}

func TestTradeService_RecordCashDepositForcesUnitPrice(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}
	svc := newTradeService(t, repoMock, rb)

	trade, _, err := svc.Record(context.Background(), TradeRequest{
		AccountID:       "acc-1",
		AssetID:         2,
		TradeType:       models.TradeDeposit,
		TransactionDate: day(t, "2025-03-01"),
		Quantity:        1000,
		Price:           37,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, trade.Price)
}

func TestTradeService_RecordValidation(t *testing.T) {
	cashID := int64(2)
	stockID := int64(1)

	base := TradeRequest{
		AccountID:       "acc-1",
		AssetID:         1,
		TradeType:       models.TradeBuy,
		TransactionDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Quantity:        10,
		Price:           100,
	}

	tests := []struct {
		name   string
		mutate func(*TradeRequest)
	}{
		{"unknown account", func(r *TradeRequest) { r.AccountID = "nope" }},
		{"unknown asset", func(r *TradeRequest) { r.AssetID = 99 }},
		{"zero quantity", func(r *TradeRequest) { r.Quantity = 0 }},
		{"negative quantity", func(r *TradeRequest) { r.Quantity = -1 }},
		{"zero price buy", func(r *TradeRequest) { r.Price = 0 }},
		{"negative fee", func(r *TradeRequest) { r.Fee = -1 }},
		{"zero date", func(r *TradeRequest) { r.TransactionDate = time.Time{} }},
		{"unknown trade type", func(r *TradeRequest) { r.TradeType = "SHORT" }},
		{"deposit on stock", func(r *TradeRequest) { r.TradeType = models.TradeDeposit }},
		{"withdraw on stock", func(r *TradeRequest) { r.TradeType = models.TradeWithdraw }},
		{"cash funding a cash asset", func(r *TradeRequest) {
			r.AssetID = 2
			r.CashAssetID = &cashID
		}},
		{"cash funding an init", func(r *TradeRequest) {
			r.TradeType = models.TradeInit
			r.CashAssetID = &cashID
		}},
		{"non-cash funding asset", func(r *TradeRequest) { r.CashAssetID = &stockID }},
		{"charges exceed proceeds", func(r *TradeRequest) {
			r.TradeType = models.TradeSell
			r.Fee = 2000
			r.CashAssetID = &cashID
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repoMock := newTradeRepoMock()
			rb := &rebuilderMock{}
			svc := newTradeService(t, repoMock, rb)

			req := base
			tt.mutate(&req)

			_, _, err := svc.Record(context.Background(), req)
			assert.ErrorIs(t, err, ledger.ErrValidation)
			assert.Empty(t, repoMock.created)
			assert.Empty(t, rb.calls)
		})
	}
}

func TestTradeService_RebuildFailureRollsBackWrite(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{err: errors.Wrap(ledger.ErrDataUnavailable, "no current price for asset 1")}
	svc := newTradeService(t, repoMock, rb)

	_, _, err := svc.Record(context.Background(), TradeRequest{
		AccountID:       "acc-1",
		AssetID:         1,
		TradeType:       models.TradeBuy,
		TransactionDate: day(t, "2025-03-01"),
		Quantity:        10,
		Price:           100,
	})
	require.ErrorIs(t, err, ledger.ErrDataUnavailable)

	// The persisted row is taken back out when its projection fails.
	require.Len(t, repoMock.created, 1)
	assert.Equal(t, []int64{repoMock.created[0].ID}, repoMock.deleted)
}

func TestTradeService_Remove(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}
	svc := newTradeService(t, repoMock, rb)

	trade, _, err := svc.Record(context.Background(), TradeRequest{
		AccountID:       "acc-1",
		AssetID:         1,
		TradeType:       models.TradeBuy,
		TransactionDate: day(t, "2025-03-01"),
		Quantity:        10,
		Price:           100,
	})
	require.NoError(t, err)

	statuses, err := svc.Remove(context.Background(), trade.ID)
	require.NoError(t, err)

	assert.Equal(t, []int64{trade.ID}, repoMock.deleted)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[PairKey{AccountID: "acc-1", AssetID: 1}].OK())
}

func TestTradeService_RemoveCashFundedDeletesLeg(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}
	svc := newTradeService(t, repoMock, rb)

	cashID := int64(2)
	trade, _, err := svc.Record(context.Background(), TradeRequest{
		AccountID:       "acc-1",
		AssetID:         1,
		TradeType:       models.TradeBuy,
		TransactionDate: day(t, "2025-03-01"),
		Quantity:        10,
		Price:           100,
		CashAssetID:     &cashID,
	})
	require.NoError(t, err)
	require.Len(t, repoMock.created, 2)
	leg := repoMock.created[1]

	rb.calls = nil
	statuses, err := svc.Remove(context.Background(), trade.ID)
	require.NoError(t, err)

	// Both sides of the funded trade leave the ledger together.
	assert.ElementsMatch(t, []int64{trade.ID, leg.ID}, repoMock.deleted)
	require.Len(t, statuses, 2)
	assert.ElementsMatch(t, []PairKey{
		{AccountID: "acc-1", AssetID: 1},
		{AccountID: "acc-1", AssetID: 2},
	}, rb.calls)
}

func TestTradeService_RemoveAutoCashLegDeletesTrade(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}
	svc := newTradeService(t, repoMock, rb)

	cashID := int64(2)
	trade, _, err := svc.Record(context.Background(), TradeRequest{
		AccountID:       "acc-1",
		AssetID:         1,
		TradeType:       models.TradeSell,
		TransactionDate: day(t, "2025-03-05"),
		Quantity:        4,
		Price:           120,
		CashAssetID:     &cashID,
	})
	require.NoError(t, err)
	leg := repoMock.created[1]

	// Naming the synthetic leg removes the trade that spawned it too.
	_, err = svc.Remove(context.Background(), leg.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{trade.ID, leg.ID}, repoMock.deleted)
}

func TestTradeService_RemoveUnknown(t *testing.T) {
	repoMock := newTradeRepoMock()
	rb := &rebuilderMock{}
	svc := newTradeService(t, repoMock, rb)

	_, err := svc.Remove(context.Background(), 42)
	assert.Error(t, err)
	assert.Empty(t, repoMock.deleted)
}
