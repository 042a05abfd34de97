package ledger

import (
	"sort"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/pkg/errors"
)

var ErrDataUnavailable = errors.New("required valuation data unavailable")

// Valuer turns a position into a valuation for one date. Each asset type has
// its own rule, so the snapshot rebuild calls one interface instead of
// branching on asset type at every step.
type Valuer interface {
	// Valuate returns the valuation price and amount for quantity held on date.
	Valuate(date time.Time, quantity float64) (price, amount float64, err error)
}

// pricedValuer values every date at the asset's single current price. This is
// a documented limitation of the pricing model: only quantity and cost basis
// are date-accurate, historical valuation is not price-accurate.
type pricedValuer struct {
	price float64
}

func (v pricedValuer) Valuate(_ time.Time, quantity float64) (float64, float64, error) {
	return v.price, quantity * v.price, nil
}

// cashValuer fixes the price at 1: quantity already is the money amount.
type cashValuer struct{}

func (cashValuer) Valuate(_ time.Time, quantity float64) (float64, float64, error) {
	return 1, quantity, nil
}

// manualValuer looks up externally supplied valuation amounts and carries the
// most recent one forward across gap dates. Dates before the first supplied
// amount cannot be valued.
type manualValuer struct {
	dates   []time.Time
	amounts []float64
}

func (v manualValuer) Valuate(date time.Time, quantity float64) (float64, float64, error) {
	day := Day(date)
	i := sort.Search(len(v.dates), func(i int) bool { return v.dates[i].After(day) })
	if i == 0 {
		return 0, 0, errors.Wrapf(ErrDataUnavailable,
			"no manual valuation on or before %s", day.Format("2006-01-02"))
	}
	amount := v.amounts[i-1]
	price := 0.0
	if quantity > 0 {
		price = amount / quantity
	}
	return price, amount, nil
}

// ValuerFor selects the valuation strategy for an asset. currentPrice is nil
// when the price provider has nothing for the asset; that is only an error
// for assets that need it.
func ValuerFor(asset *models.Asset, currentPrice *float64, manual []models.ManualValuation) (Valuer, error) {
	switch {
	case asset.IsCash():
		return cashValuer{}, nil

	case asset.IsManual():
		rows := make([]models.ManualValuation, len(manual))
		copy(rows, manual)
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
		v := manualValuer{}
		for _, r := range rows {
			v.dates = append(v.dates, Day(r.Date))
			v.amounts = append(v.amounts, r.ValuationAmount)
		}
		return v, nil

	default:
		if currentPrice == nil {
			return nil, errors.Wrapf(ErrDataUnavailable,
				"no current price for asset %d (%s)", asset.ID, asset.Ticker)
		}
		return pricedValuer{price: *currentPrice}, nil
	}
}
