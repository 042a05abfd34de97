package repo

import (
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/google/uuid"
)

func (r *Repository) CreateAccount(account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	return r.db.Create(account).Error
}

func (r *Repository) GetAccountByID(id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *Repository) GetAllAccounts() ([]models.Account, error) {
	var accounts []models.Account
	if err := r.db.Order("name").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
