// Package callbacks decodes inline button payloads.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Data returns the raw payload the button was created with. Telebot strips
// the \f<unique>| prefix of buttons built through ReplyMarkup.Data, so it is
// put back here to keep one string form for every button.
func Data(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + "|" + cb.Data
	}
	return strings.TrimPrefix(cb.Data, "\f")
}

// Split separates "key:payload" and "key|payload" data. The payload may be empty.
func Split(data string) (key, payload string) {
	data = strings.TrimPrefix(data, "\f")
	i := strings.IndexAny(data, ":|")
	if i < 0 {
		return strings.TrimSpace(data), ""
	}
	return strings.TrimSpace(data[:i]), data[i+1:]
}
