package repo

import (
	"testing"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.Asset{},
		&models.Transaction{},
		&models.DailySnapshot{},
		&models.ManualValuation{},
	))
	return db
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestNew_NilDatabase(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrNilDatabase)
}

func TestMigrate(t *testing.T) {
	db := setupTestDB(t)
	repository, err := New(db)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate())
}

func TestAccountRepository_CRUD(t *testing.T) {
	repository, err := New(setupTestDB(t))
	require.NoError(t, err)

	account := &models.Account{Name: "main", Broker: "kiwoom"}
	require.NoError(t, repository.CreateAccount(account))
	require.NotEmpty(t, account.ID)

	got, err := repository.GetAccountByID(account.ID)
	require.NoError(t, err)
	require.Equal(t, "main", got.Name)

	accounts, err := repository.GetAllAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestAssetRepository_CRUD(t *testing.T) {
	repository, err := New(setupTestDB(t))
	require.NoError(t, err)

	asset := &models.Asset{Ticker: "VOO", Currency: "USD", AssetType: models.AssetETF}
	require.NoError(t, repository.CreateAsset(asset))
	require.NotZero(t, asset.ID)

	require.NoError(t, repository.UpdateAssetPrice(asset.ID, 130))
	got, err := repository.GetAssetByID(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice)
	require.Equal(t, 130.0, *got.CurrentPrice)

	require.NoError(t, repository.DeleteAsset(asset.ID))
	_, err = repository.GetAssetByID(asset.ID)
	require.Error(t, err)
}
