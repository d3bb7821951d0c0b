package handlers

import (
	"strings"

	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler is a command handler plus the middleware wrapped around
// it and the description shown in the Telegram command menu.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	Description string
}

type command struct {
	name        string
	description string
	adminOnly   bool
	build       func(HandlerDeps) tgbot.HandlerFunc
}

var commands = []command{
	{name: "start", description: "开始", build: NewStartHandler},
	{name: "help", description: "显示帮助", build: NewHelpHandler},
	{name: "explain", description: "生成详细解释", build: NewExplainHandler},
	{name: "mood", description: "查看或设置心情（管理员）", adminOnly: true, build: NewMoodHandler},
}

// RegisterAllCommands returns every bot command keyed by "/name". Plain group
// messages are not commands; they go to NewMessageHandler, installed as the
// default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	out := make(map[string]RegisteredHandler, len(commands))
	for _, c := range commands {
		h := RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     c.name,
			Handler:     c.build(deps),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Description: c.description,
		}
		if c.adminOnly {
			h.Middleware = []tgbot.Middleware{AdminOnly(deps)}
		}
		out["/"+c.name] = h
	}
	return out
}

// CommandMenu maps command names (without the slash) to their menu
// descriptions.
func CommandMenu(registered map[string]RegisteredHandler) map[string]string {
	menu := make(map[string]string, len(registered))
	for key, h := range registered {
		if h.Description == "" {
			continue
		}
		menu[strings.TrimPrefix(key, "/")] = h.Description
	}
	return menu
}
