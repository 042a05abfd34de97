package repo

import (
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrSourceLimit means the transaction source returned an inconsistent or
// truncated result. Partial ledger history silently corrupts every quantity
// and cost-basis figure downstream, so callers must abort the whole run.
var ErrSourceLimit = errors.New("transaction source returned incomplete data")

// LedgerPageSize is the fixed page size of the paginated ledger fetch.
const LedgerPageSize = 1000

type TransactionFilter struct {
	AccountID string
	AssetID   *int64
	TradeType string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

type TransactionListResult struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

func (r *Repository) CreateTransaction(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

// CreateTransactionPair inserts a trade and its synthetic auto-cash leg in a
// single database transaction: either both ledger entries exist or neither.
// The rows are linked through CashPairID in both directions.
func (r *Repository) CreateTransactionPair(trade, cashLeg *models.Transaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		cashLeg.CashPairID = &trade.ID
		if err := tx.Create(cashLeg).Error; err != nil {
			return err
		}
		trade.CashPairID = &cashLeg.ID
		return tx.Model(trade).Update("cash_pair_id", cashLeg.ID).Error
	})
}

func (r *Repository) GetTransactionByID(id int64) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.First(&tx, id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *Repository) DeleteTransaction(id int64) error {
	return r.db.Delete(&models.Transaction{}, id).Error
}

func (r *Repository) ListTransactions(filter TransactionFilter) (*TransactionListResult, error) {
	query := r.db.Model(&models.Transaction{})

	if filter.AccountID != "" && filter.AccountID != models.AllAccounts {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.AssetID != nil {
		query = query.Where("asset_id = ?", *filter.AssetID)
	}
	if filter.TradeType != "" {
		query = query.Where("trade_type = ?", filter.TradeType)
	}
	if filter.StartDate != nil {
		query = query.Where("transaction_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("transaction_date <= ?", *filter.EndDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var transactions []models.Transaction
	if err := query.Order("transaction_date DESC, id DESC").Limit(limit).Offset(offset).Find(&transactions).Error; err != nil {
		return nil, err
	}

	return &TransactionListResult{
		Transactions: transactions,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// FetchLedger returns the complete ordered ledger for one (account, asset)
// pair via fixed-size pages, so a provider-imposed row cap can never silently
// truncate history. Pages are requested until a short page signals
// exhaustion; the concatenation is verified against the source row count and
// any mismatch is ErrSourceLimit.
//
// Order is (transaction_date ASC, id ASC): insertion order breaks same-date
// ties, which the projector depends on.
func (r *Repository) FetchLedger(accountID string, assetID int64) ([]models.Transaction, error) {
	query := r.db.Model(&models.Transaction{}).
		Where("account_id = ? AND asset_id = ?", accountID, assetID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var ledger []models.Transaction
	for offset := 0; ; offset += LedgerPageSize {
		var page []models.Transaction
		if err := query.Order("transaction_date ASC, id ASC").
			Limit(LedgerPageSize).Offset(offset).
			Find(&page).Error; err != nil {
			return nil, err
		}
		ledger = append(ledger, page...)
		if len(page) < LedgerPageSize {
			break
		}
	}

	if int64(len(ledger)) != total {
		return nil, errors.Wrapf(ErrSourceLimit,
			"fetched %d rows for account=%s asset=%d, source reports %d",
			len(ledger), accountID, assetID, total)
	}

	return ledger, nil
}

// DistinctAssetIDs lists the assets an account has ever transacted in, the
// partition set of a snapshot rebuild.
func (r *Repository) DistinctAssetIDs(accountID string) ([]int64, error) {
	var ids []int64
	if err := r.db.Model(&models.Transaction{}).
		Where("account_id = ?", accountID).
		Distinct("asset_id").
		Order("asset_id").
		Pluck("asset_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FlowsByDate sums the external cash flow of every transaction in the range,
// keyed by calendar date. Auto-cash legs and cash-funded trades net to zero
// inside the portfolio and contribute nothing.
func (r *Repository) FlowsByDate(accountID string, start, end time.Time) (map[time.Time]float64, error) {
	query := r.db.Model(&models.Transaction{}).
		Where("transaction_date >= ? AND transaction_date <= ?", start, end)
	if accountID != "" && accountID != models.AllAccounts {
		query = query.Where("account_id = ?", accountID)
	}

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}

	flows := make(map[time.Time]float64)
	for _, tx := range transactions {
		if flow := tx.ExternalFlow(); flow != 0 {
			flows[dayOf(tx.TransactionDate)] += flow
		}
	}
	return flows, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
