package repo

import (
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const snapshotInsertBatchSize = 500

type SnapshotFilter struct {
	AccountID string
	AssetID   *int64
	StartDate *time.Time
	EndDate   *time.Time
}

// PortfolioRow is one date's snapshot totals summed across assets and
// accounts, the input unit of the return aggregation.
type PortfolioRow struct {
	Date           time.Time `json:"date"`
	TotalValuation float64   `json:"total_valuation"`
	TotalPurchase  float64   `json:"total_purchase"`
}

// AssetRow is one (date, asset) snapshot line summed across accounts.
type AssetRow struct {
	Date            time.Time `json:"date"`
	AssetID         int64     `json:"asset_id"`
	ValuationAmount float64   `json:"valuation_amount"`
	PurchaseAmount  float64   `json:"purchase_amount"`
}

// ReplaceSnapshotRange atomically swaps the snapshot rows of one
// (account, asset) pair for a date range: delete the range, insert the
// recomputed rows, all in one database transaction. A failed rebuild leaves
// the prior rows intact; a repeated rebuild with the same inputs leaves
// identical rows. Dates in keepDates (externally supplied manual valuations)
// are excluded from both the delete and the insert.
func (r *Repository) ReplaceSnapshotRange(
	accountID string,
	assetID int64,
	start, end time.Time,
	rows []models.DailySnapshot,
	keepDates []time.Time,
) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		del := tx.Where(
			"account_id = ? AND asset_id = ? AND date >= ? AND date <= ?",
			accountID, assetID, start, end,
		)
		if len(keepDates) > 0 {
			del = del.Where("date NOT IN ?", keepDates)
		}
		if err := del.Delete(&models.DailySnapshot{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, snapshotInsertBatchSize).Error
	})
}

func (r *Repository) ListSnapshots(filter SnapshotFilter) ([]models.DailySnapshot, error) {
	query := r.snapshotQuery(filter)

	var snapshots []models.DailySnapshot
	if err := query.Order("date ASC, asset_id ASC, account_id ASC").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// PortfolioSeries aggregates snapshot rows to one row per date.
func (r *Repository) PortfolioSeries(filter SnapshotFilter) ([]PortfolioRow, error) {
	query := r.snapshotQuery(filter)

	var rows []PortfolioRow
	if err := query.
		Select("date, SUM(valuation_amount) AS total_valuation, SUM(purchase_amount) AS total_purchase").
		Group("date").
		Order("date ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AssetSeries aggregates snapshot rows to one row per (date, asset).
func (r *Repository) AssetSeries(filter SnapshotFilter) ([]AssetRow, error) {
	query := r.snapshotQuery(filter)

	var rows []AssetRow
	if err := query.
		Select("date, asset_id, SUM(valuation_amount) AS valuation_amount, SUM(purchase_amount) AS purchase_amount").
		Group("date, asset_id").
		Order("date ASC, asset_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) snapshotQuery(filter SnapshotFilter) *gorm.DB {
	query := r.db.Model(&models.DailySnapshot{})
	if filter.AccountID != "" && filter.AccountID != models.AllAccounts {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.AssetID != nil {
		query = query.Where("asset_id = ?", *filter.AssetID)
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", *filter.EndDate)
	}
	return query
}

// UpsertManualValuation records an externally supplied valuation for a
// MANUAL asset and writes the matching snapshot row directly, in one
// transaction. Rebuilds treat this date as already written.
func (r *Repository) UpsertManualValuation(mv *models.ManualValuation, snapshot *models.DailySnapshot) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		onKey := clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}, {Name: "asset_id"}, {Name: "account_id"}},
			UpdateAll: true,
		}
		if err := tx.Clauses(onKey).Create(mv).Error; err != nil {
			return err
		}
		return tx.Clauses(onKey).Create(snapshot).Error
	})
}

// ListManualValuations returns the manual valuations of one pair in a date
// range, ordered by date.
func (r *Repository) ListManualValuations(accountID string, assetID int64, start, end time.Time) ([]models.ManualValuation, error) {
	var rows []models.ManualValuation
	if err := r.db.
		Where("account_id = ? AND asset_id = ? AND date >= ? AND date <= ?",
			accountID, assetID, start, end).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
