package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080/api"

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Asset struct {
	ID        int64  `json:"id"`
	Ticker    string `json:"ticker"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	AssetType string `json:"asset_type"`
}

type Transaction struct {
	AccountID       string  `json:"account_id"`
	AssetID         int64   `json:"asset_id"`
	TradeType       string  `json:"trade_type"`
	TransactionDate string  `json:"transaction_date"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	Fee             float64 `json:"fee"`
	Memo            string  `json:"memo"`
	CashAssetID     *int64  `json:"cash_asset_id,omitempty"`
}

func main() {
	account := createAccount("Main Brokerage")
	fmt.Printf("Created account %s\n", account.ID)

	cash := createAsset(Asset{Ticker: "USD", Name: "US Dollar", Currency: "USD", AssetType: "CASH"})
	vti := createAsset(Asset{Ticker: "VTI", Name: "Total Market ETF", Currency: "USD", AssetType: "ETF"})
	msft := createAsset(Asset{Ticker: "MSFT", Name: "Microsoft", Currency: "USD", AssetType: "STOCK"})
	fmt.Printf("Created assets: USD=%d, VTI=%d, MSFT=%d\n", cash.ID, vti.ID, msft.ID)

	setPrice(vti.ID, 270)
	setPrice(msft.ID, 420)

	start := time.Now().AddDate(0, 0, -30)
	createTransaction(Transaction{
		AccountID:       account.ID,
		AssetID:         cash.ID,
		TradeType:       "DEPOSIT",
		TransactionDate: start.Format("2006-01-02"),
		Quantity:        20000,
		Price:           1,
		Memo:            "initial funding",
	})
	fmt.Println("Deposited 20000 USD")

	createTransaction(Transaction{
		AccountID:       account.ID,
		AssetID:         vti.ID,
		TradeType:       "BUY",
		TransactionDate: start.AddDate(0, 0, 2).Format("2006-01-02"),
		Quantity:        30,
		Price:           260,
		Fee:             2.5,
		Memo:            "opening position",
		CashAssetID:     &cash.ID,
	})
	createTransaction(Transaction{
		AccountID:       account.ID,
		AssetID:         msft.ID,
		TradeType:       "BUY",
		TransactionDate: start.AddDate(0, 0, 5).Format("2006-01-02"),
		Quantity:        10,
		Price:           400,
		Fee:             1.0,
		CashAssetID:     &cash.ID,
	})
	createTransaction(Transaction{
		AccountID:       account.ID,
		AssetID:         vti.ID,
		TradeType:       "SELL",
		TransactionDate: start.AddDate(0, 0, 20).Format("2006-01-02"),
		Quantity:        5,
		Price:           268,
		Fee:             2.5,
		CashAssetID:     &cash.ID,
	})
	fmt.Println("Recorded trades")

	fmt.Println("Done. Try GET /api/portfolio/returns?account_id=" + account.ID)
}

func post(path string, body any, out any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Fatal(err)
	}
	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Fatalf("POST %s: %s", path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatal(err)
		}
	}
}

func createAccount(name string) Account {
	var account Account
	post("/accounts", Account{Name: name}, &account)
	return account
}

func createAsset(asset Asset) Asset {
	var created Asset
	post("/assets", asset, &created)
	return created
}

func createTransaction(tx Transaction) {
	post("/transactions", tx, nil)
}

func setPrice(assetID int64, price float64) {
	data, err := json.Marshal(map[string]float64{"price": price})
	if err != nil {
		log.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/assets/%d/price", baseURL, assetID), bytes.NewReader(data))
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Fatalf("PUT price for asset %d: %s", assetID, resp.Status)
	}
}
