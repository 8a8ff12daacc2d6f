package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler bundles everything needed to register one handler.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns the bot's command handlers.
// Location updates are handled by the default handler, registered
// separately at bot construction.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	registered := make(map[string]RegisteredHandler)

	registered["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	registered["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	// /venueN and /tipsN carry the selected index in the command itself,
	// so they match by prefix and the dispatcher parses the number.
	registered["/venue"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "/venue",
		Handler:     NewCommandHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}
	registered["/tips"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "/tips",
		Handler:     NewCommandHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}

	return registered
}
