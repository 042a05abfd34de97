package controller

import (
	"net/http"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/gin-gonic/gin"
)

func (c *Controller) ListAccounts(ctx *gin.Context) {
	accounts, err := c.repo.GetAllAccounts()
	if err != nil {
		internalError(ctx, "failed to fetch accounts")
		return
	}
	ctx.JSON(http.StatusOK, accounts)
}

func (c *Controller) GetAccount(ctx *gin.Context) {
	account, err := c.repo.GetAccountByID(ctx.Param("id"))
	if err != nil {
		notFound(ctx, "account not found")
		return
	}
	ctx.JSON(http.StatusOK, account)
}

func (c *Controller) CreateAccount(ctx *gin.Context) {
	var account models.Account
	if err := ctx.ShouldBindJSON(&account); err != nil {
		badRequestWithDetails(ctx, "invalid input", err.Error())
		return
	}
	if account.Name == "" {
		badRequest(ctx, "account name is required")
		return
	}
	if account.ID == models.AllAccounts {
		badRequest(ctx, "account id is reserved")
		return
	}

	if err := c.repo.CreateAccount(&account); err != nil {
		internalError(ctx, "failed to create account")
		return
	}
	ctx.JSON(http.StatusCreated, account)
}
