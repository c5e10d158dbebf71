package form

import "github.com/m3rciful/pdfbot/internal/chat"

// Callback data.
const (
	callbackProduct  = "product:"
	callbackDuration = "duration:"
	CallbackConfirm  = "confirm:yes"
	CallbackReject   = "confirm:no"
	CallbackMailYes  = "sendmail:yes"
	CallbackMailNo   = "sendmail:no"
	CallbackExisting = "file:existing"
)

var cancelButton = chat.Button{Text: "❌ Отменить", Data: CallbackCancel}

func cancelKeyboard() chat.Keyboard {
	return chat.Keyboard{chat.Row(cancelButton)}
}

func optionKeyboard(prefix string, opts []Option) chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(opts)+1)
	for _, o := range opts {
		kb = append(kb, chat.Row(chat.Button{Text: o.Title, Data: prefix + o.Code}))
	}
	return append(kb, chat.Row(cancelButton))
}

func productKeyboard() chat.Keyboard { return optionKeyboard(callbackProduct, Products) }

func durationKeyboard() chat.Keyboard { return optionKeyboard(callbackDuration, Durations) }

func confirmKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Text: "Создать PDF", Data: CallbackConfirm}),
		chat.Row(chat.Button{Text: "Отменить", Data: CallbackReject}),
	}
}

func mailKeyboard() chat.Keyboard {
	return chat.Keyboard{chat.Row(
		chat.Button{Text: "Да", Data: CallbackMailYes},
		chat.Button{Text: "Нет", Data: CallbackMailNo},
	)}
}

func fileChoiceKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Text: "📄 Использовать существующий", Data: CallbackExisting}),
		chat.Row(cancelButton),
	}
}
