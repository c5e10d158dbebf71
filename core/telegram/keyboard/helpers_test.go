package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRows(t *testing.T) {
	m := InlineButtonsRows(
		[]InlineBtn{{Text: "Да", Data: "confirm:yes"}, {Text: "Нет", Data: "confirm:no"}},
		nil,
		[]InlineBtn{{Text: "Отмена", Data: "cancel"}},
	)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "confirm:yes", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, "Нет", m.InlineKeyboard[0][1].Text)
	assert.Empty(t, m.InlineKeyboard[1][0].Unique)
}
