package handlers

import (
	"log/slog"

	"github.com/slipledger/slipbot/internal/config"
	"github.com/slipledger/slipbot/internal/database"
	"github.com/slipledger/slipbot/internal/pipeline"
	"github.com/slipledger/slipbot/internal/token"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Pipeline *pipeline.Pipeline
	Tokens   *token.Issuer
}
