package controller

import (
	"log/slog"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/repo"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/service"
)

type Controller struct {
	logger   *slog.Logger
	repo     *repo.Repository
	trades   *service.TradeService
	rebuilds *service.RebuildService
	prices   *service.PriceService
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func WithRepository(r *repo.Repository) Option {
	return func(c *Controller) {
		c.repo = r
	}
}

func WithTradeService(s *service.TradeService) Option {
	return func(c *Controller) {
		c.trades = s
	}
}

func WithRebuildService(s *service.RebuildService) Option {
	return func(c *Controller) {
		c.rebuilds = s
	}
}

func WithPriceService(s *service.PriceService) Option {
	return func(c *Controller) {
		c.prices = s
	}
}

func (c *Controller) IsValid() error {
	switch {
	case c.logger == nil:
		return ErrNilLogger
	case c.repo == nil:
		return ErrNilRepository
	case c.trades == nil:
		return ErrNilTradeService
	case c.rebuilds == nil:
		return ErrNilRebuildService
	case c.prices == nil:
		return ErrNilPriceService
	default:
		return nil
	}
}

func New(opts ...Option) (*Controller, error) {
	c := &Controller{}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.IsValid(); err != nil {
		return nil, err
	}
	return c, nil
}
