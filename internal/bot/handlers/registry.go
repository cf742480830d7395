package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler with its pattern and middleware.
// It encapsulates all information needed to register a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns a map of all available bot
// commands. Free-form messages are handled by the default ingest handler
// installed at bot construction, not here.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["查账"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "查账",
		Handler:     NewLedgerLinkHandler(deps),
		MatchType:   tgbot.MatchTypeExact,
	}
	handlers["/process_batch"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "/process_batch",
		Handler:     NewProcessBatchHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}
	handlers["/reanalyze"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "/reanalyze",
		Handler:     NewReanalyzeHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}

	return handlers
}
