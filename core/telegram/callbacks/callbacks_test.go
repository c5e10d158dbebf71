package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestData(t *testing.T) {
	assert.Equal(t, "", Data(nil))
	assert.Equal(t, "product:basic", Data(&tele.Callback{Data: "product:basic"}))
	assert.Equal(t, "confirm|yes", Data(&tele.Callback{Unique: "confirm", Data: "yes"}))
	assert.Equal(t, "cancel", Data(&tele.Callback{Unique: "cancel"}))
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in, key, payload string
	}{
		{"product:basic", "product", "basic"},
		{"sendmail:yes", "sendmail", "yes"},
		{"\fconfirm|no", "confirm", "no"},
		{"cancel", "cancel", ""},
		{"duration:", "duration", ""},
	}
	for _, tc := range cases {
		key, payload := Split(tc.in)
		assert.Equal(t, tc.key, key, tc.in)
		assert.Equal(t, tc.payload, payload, tc.in)
	}
}
