package controller

import (
	"errors"
	"net/http"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/ledger"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/repo"

	"github.com/gin-gonic/gin"
)

var (
	ErrNilLogger         = errors.New("logger cannot be nil")
	ErrNilRepository     = errors.New("repository cannot be nil")
	ErrNilTradeService   = errors.New("trade service cannot be nil")
	ErrNilRebuildService = errors.New("rebuild service cannot be nil")
	ErrNilPriceService   = errors.New("price service cannot be nil")
)

type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func errorResponse(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, APIError{Error: message})
}

func errorWithDetails(ctx *gin.Context, status int, message string, details string) {
	ctx.JSON(status, APIError{Error: message, Details: details})
}

func badRequest(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusBadRequest, message)
}

func badRequestWithDetails(ctx *gin.Context, message string, details string) {
	errorWithDetails(ctx, http.StatusBadRequest, message, details)
}

func notFound(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusNotFound, message)
}

func internalError(ctx *gin.Context, message string) {
	errorResponse(ctx, http.StatusInternalServerError, message)
}

// domainError maps ledger and repo failures onto HTTP statuses: bad input is
// the caller's fault, an oversold position is a ledger conflict, missing
// valuation data or an inconsistent source is an upstream failure.
func domainError(ctx *gin.Context, err error, fallback string) {
	var oversell *ledger.OversellError
	switch {
	case errors.Is(err, ledger.ErrValidation):
		badRequestWithDetails(ctx, "invalid input", err.Error())
	case errors.As(err, &oversell):
		errorWithDetails(ctx, http.StatusConflict, "oversell", err.Error())
	case errors.Is(err, ledger.ErrDataUnavailable):
		errorWithDetails(ctx, http.StatusUnprocessableEntity, "valuation data unavailable", err.Error())
	case errors.Is(err, repo.ErrSourceLimit):
		errorWithDetails(ctx, http.StatusBadGateway, "transaction source inconsistent", err.Error())
	default:
		internalError(ctx, fallback)
	}
}
