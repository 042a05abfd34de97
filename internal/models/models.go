package models

import "time"

// Trade types accepted on the ledger. The ledger is the sole source of truth
// for quantity and cost basis; snapshots are always re-derivable from it.
const (
	TradeBuy      = "BUY"
	TradeSell     = "SELL"
	TradeInit     = "INIT"
	TradeDeposit  = "DEPOSIT"
	TradeWithdraw = "WITHDRAW"
)

const (
	AssetStock  = "STOCK"
	AssetETF    = "ETF"
	AssetCash   = "CASH"
	AssetManual = "MANUAL"
)

// AllAccounts is the account filter token meaning "every account".
const AllAccounts = "__ALL__"

type Account struct {
	ID        string    `json:"id"         gorm:"primaryKey"`
	Name      string    `json:"name"       gorm:"index"`
	Broker    string    `json:"broker"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Asset struct {
	ID           int64     `json:"id"            gorm:"primaryKey"`
	Ticker       string    `json:"ticker"        gorm:"index"`
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	AssetType    string    `json:"asset_type"    gorm:"index"`
	CurrentPrice *float64  `json:"current_price,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsCash reports whether the asset is a money balance: valuation and purchase
// price are fixed at 1 and quantity is an amount of money, not a share count.
func (a *Asset) IsCash() bool {
	return a.AssetType == AssetCash
}

func (a *Asset) IsManual() bool {
	return a.AssetType == AssetManual
}

// Transaction is immutable once recorded; corrections are delete + reinsert.
// Ledger order is (transaction_date ASC, id ASC): the auto-increment id
// preserves insertion order for same-date ties, which fixes how intraday
// average-cost is applied. A cash-funded trade and its auto-cash leg point at
// each other through CashPairID, so deleting one always removes both.
type Transaction struct {
	ID              int64     `json:"id"               gorm:"primaryKey"`
	AccountID       string    `json:"account_id"       gorm:"index:idx_tx_pair_date"`
	AssetID         int64     `json:"asset_id"         gorm:"index:idx_tx_pair_date"`
	TransactionDate time.Time `json:"transaction_date" gorm:"index:idx_tx_pair_date"`
	TradeType       string    `json:"trade_type"       gorm:"index"`
	Quantity        float64   `json:"quantity"`
	Price           float64   `json:"price"`
	Fee             float64   `json:"fee"`
	Tax             float64   `json:"tax"`
	Memo            string    `json:"memo"`
	CashFunded      bool      `json:"cash_funded"`
	AutoCash        bool      `json:"auto_cash"`
	CashPairID      *int64    `json:"cash_pair_id,omitempty" gorm:"index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ExternalFlow is the signed amount of money this transaction moved across
// the portfolio boundary: positive into the portfolio, negative out, zero for
// legs that net out internally. Auto-cash legs mirror a trade that is already
// counted (or deliberately not counted), and cash-funded trades were paid
// from cash held inside the portfolio.
func (t *Transaction) ExternalFlow() float64 {
	if t.AutoCash {
		return 0
	}
	switch t.TradeType {
	case TradeDeposit:
		return t.Quantity
	case TradeWithdraw:
		return -t.Quantity
	case TradeInit:
		return t.Quantity * t.Price
	case TradeBuy:
		if t.CashFunded {
			return 0
		}
		return t.Quantity*t.Price + t.Fee + t.Tax
	case TradeSell:
		if t.CashFunded {
			return 0
		}
		return -(t.Quantity*t.Price - t.Fee - t.Tax)
	}
	return 0
}

// DailySnapshot is a derived row keyed by (date, asset, account). It is a
// pure cache over the ledger: deleting and regenerating the same range with
// the same inputs yields identical rows. No timestamp columns; they would
// change on every rebuild of otherwise identical rows.
type DailySnapshot struct {
	Date            time.Time `json:"date"             gorm:"primaryKey"`
	AssetID         int64     `json:"asset_id"         gorm:"primaryKey"`
	AccountID       string    `json:"account_id"       gorm:"primaryKey"`
	Quantity        float64   `json:"quantity"`
	ValuationPrice  float64   `json:"valuation_price"`
	PurchasePrice   float64   `json:"purchase_price"`
	ValuationAmount float64   `json:"valuation_amount"`
	PurchaseAmount  float64   `json:"purchase_amount"`
	Currency        string    `json:"currency"`
}

// ManualValuation supplies the out-of-band valuation for MANUAL assets on a
// given date. Snapshot rebuilds never overwrite dates covered by one of these.
type ManualValuation struct {
	Date            time.Time `json:"date"              gorm:"primaryKey"`
	AssetID         int64     `json:"asset_id"          gorm:"primaryKey"`
	AccountID       string    `json:"account_id"        gorm:"primaryKey"`
	ValuationAmount float64   `json:"valuation_amount"`
	CostBasisAmount *float64  `json:"cost_basis_amount,omitempty"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

func (Asset) TableName() string {
	return "assets"
}

func (Transaction) TableName() string {
	return "transactions"
}

func (DailySnapshot) TableName() string {
	return "daily_snapshots"
}

func (ManualValuation) TableName() string {
	return "manual_valuations"
}
