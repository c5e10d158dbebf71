package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/pdfbot/core/telegram"
)

// Endpoints lists the update kinds the bot reacts to. Media endpoints are
// bound so automatic forwards of photo or video posts reach the dispatcher.
var Endpoints = []string{
	tele.OnText,
	tele.OnDocument,
	tele.OnCallback,
	tele.OnPhoto,
	tele.OnVideo,
	tele.OnAnimation,
	tele.OnAudio,
	tele.OnVoice,
	tele.OnPoll,
}

// UpdateRoutes binds every endpoint to handle.
func UpdateRoutes(handle tele.HandlerFunc) []tg.Route {
	routes := make([]tg.Route, 0, len(Endpoints))
	for _, ep := range Endpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: handle})
	}
	return routes
}
