package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Itinera/internal/repo"
	"github.com/shaiso/Itinera/internal/workflow"
)

// RunRequester публикует запрос фоновой сборки плана.
type RunRequester interface {
	PublishPlanRequested(ctx context.Context, planID uuid.UUID, userID string) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	plans      repo.Plans
	controller *workflow.Controller
	requester  RunRequester
	auth       *Authenticator
	leaseTTL   time.Duration
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Plans      repo.Plans
	Controller *workflow.Controller

	// Requester — опционален. Без него запрос сборки только отмечается
	// в хранилище и подхватывается планировщиком при опросе.
	Requester RunRequester

	Auth *Authenticator

	// LeaseTTL — аренда плана на время запроса (default: repo.DefaultLeaseTTL).
	LeaseTTL time.Duration

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Auth == nil {
		cfg.Auth = NewAuthenticator(nil, false)
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = repo.DefaultLeaseTTL
	}
	return &Handler{
		plans:      cfg.Plans,
		controller: cfg.Controller,
		requester:  cfg.Requester,
		auth:       cfg.Auth,
		leaseTTL:   cfg.LeaseTTL,
		logger:     cfg.Logger,
	}
}
