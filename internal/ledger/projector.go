package ledger

import (
	"fmt"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/pkg/errors"
)

var (
	ErrValidation = errors.New("transaction failed validation")
)

// OversellError is returned when a SELL (or cash WITHDRAW) would drive the
// held quantity negative. It is a hard invariant: the fold stops and nothing
// derived from it may be persisted.
type OversellError struct {
	AccountID string
	AssetID   int64
	Date      time.Time
	Held      float64
	Requested float64
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("oversell: account=%s asset=%d date=%s held=%g requested=%g",
		e.AccountID, e.AssetID, e.Date.Format("2006-01-02"), e.Held, e.Requested)
}

// Position is the cumulative state of one (account, asset) pair: how much is
// held and how much was paid for it under the average-cost policy.
type Position struct {
	Quantity  float64
	CostBasis float64
}

// AveragePrice is the cost basis per held unit, zero for an empty position.
func (p Position) AveragePrice() float64 {
	if p.Quantity <= 0 {
		return 0
	}
	return p.CostBasis / p.Quantity
}

// Day normalizes a timestamp to its UTC calendar date. All ledger and
// snapshot dates are compared at day granularity.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func apply(pos Position, tx models.Transaction, cash bool) (Position, error) {
	switch tx.TradeType {
	case models.TradeBuy:
		pos.Quantity += tx.Quantity
		pos.CostBasis += tx.Quantity*tx.Price + tx.Fee

	case models.TradeInit:
		// Opening backfill: quantity and basis added directly, no averaging
		// semantics beyond BUY.
		pos.Quantity += tx.Quantity
		pos.CostBasis += tx.Quantity * tx.Price

	case models.TradeSell:
		if tx.Quantity > pos.Quantity {
			return pos, &OversellError{
				AccountID: tx.AccountID,
				AssetID:   tx.AssetID,
				Date:      Day(tx.TransactionDate),
				Held:      pos.Quantity,
				Requested: tx.Quantity,
			}
		}
		// Average-cost policy: basis leaves in proportion to the fraction
		// sold. FIFO lots are a documented non-goal.
		pos.CostBasis -= pos.CostBasis * (tx.Quantity / pos.Quantity)
		pos.Quantity -= tx.Quantity
		if pos.Quantity == 0 {
			pos.CostBasis = 0
		}

	case models.TradeDeposit:
		if !cash {
			return pos, errors.Wrap(ErrValidation, "DEPOSIT is only valid for cash assets")
		}
		pos.Quantity += tx.Quantity
		pos.CostBasis += tx.Quantity

	case models.TradeWithdraw:
		if !cash {
			return pos, errors.Wrap(ErrValidation, "WITHDRAW is only valid for cash assets")
		}
		if tx.Quantity > pos.Quantity {
			return pos, &OversellError{
				AccountID: tx.AccountID,
				AssetID:   tx.AssetID,
				Date:      Day(tx.TransactionDate),
				Held:      pos.Quantity,
				Requested: tx.Quantity,
			}
		}
		pos.Quantity -= tx.Quantity
		pos.CostBasis -= tx.Quantity

	default:
		return pos, errors.Wrapf(ErrValidation, "unknown trade type %q", tx.TradeType)
	}

	return pos, nil
}

// Projector folds the ordered ledger of one (account, asset) pair into a
// Position. The input slice must be sorted by (transaction_date, id); the
// cursor applies each transaction exactly once, so walking a calendar range
// costs O(transactions + days) rather than O(transactions x days).
type Projector struct {
	txs  []models.Transaction
	cash bool
	idx  int
	pos  Position
}

func NewProjector(txs []models.Transaction, cash bool) *Projector {
	return &Projector{txs: txs, cash: cash}
}

// AdvanceTo applies every not-yet-applied transaction dated on or before
// asOf and returns the resulting position. asOf must not move backwards
// between calls.
func (p *Projector) AdvanceTo(asOf time.Time) (Position, error) {
	day := Day(asOf)
	for p.idx < len(p.txs) && !Day(p.txs[p.idx].TransactionDate).After(day) {
		next, err := apply(p.pos, p.txs[p.idx], p.cash)
		if err != nil {
			return p.pos, err
		}
		p.pos = next
		p.idx++
	}
	return p.pos, nil
}

// Position returns the state as of the last AdvanceTo call.
func (p *Projector) Position() Position {
	return p.pos
}

// Project is the one-shot form: the position of the pair as of asOf.
func Project(txs []models.Transaction, cash bool, asOf time.Time) (Position, error) {
	return NewProjector(txs, cash).AdvanceTo(asOf)
}
