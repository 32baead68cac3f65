package telegram

import (
	"io"
	"testing"

	"spill_report_service/internal/app"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

// fakeContext answers only what the command handlers call.
type fakeContext struct {
	telebot.Context
	sender *telebot.User
	text   string
	sent   []interface{}
}

func (f *fakeContext) Sender() *telebot.User { return f.sender }
func (f *fakeContext) Text() string          { return f.text }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func TestStaffOnlyRefusesOutsiders(t *testing.T) {
	t.Parallel()

	l := logrus.New()
	l.SetOutput(io.Discard)
	deps := BotDeps{AdminTelegramID: 100, ManagerTelegramID: 200}
	gate := deps.staffOnly(logrus.NewEntry(l))

	called := 0
	handler := gate(func(c telebot.Context) error {
		called++
		return c.Send("liste")
	})

	cases := []struct {
		name    string
		sender  *telebot.User
		allowed bool
	}{
		{"admin", &telebot.User{ID: 100}, true},
		{"manager", &telebot.User{ID: 200}, true},
		{"stranger", &telebot.User{ID: 300}, false},
		{"anonymous", nil, false},
	}
	for _, tc := range cases {
		before := called
		c := &fakeContext{sender: tc.sender, text: "/rapports"}
		require.NoError(t, handler(c), tc.name)
		require.Len(t, c.sent, 1, tc.name)
		if tc.allowed {
			assert.Equal(t, before+1, called, tc.name)
			assert.Equal(t, "liste", c.sent[0], tc.name)
		} else {
			assert.Equal(t, before, called, tc.name)
			assert.Equal(t, userMessage(app.ErrNotAuthorized), c.sent[0], tc.name)
		}
	}
}

func TestStaffOnlyWithoutConfiguredStaff(t *testing.T) {
	t.Parallel()

	l := logrus.New()
	l.SetOutput(io.Discard)
	handler := BotDeps{}.staffOnly(logrus.NewEntry(l))(func(telebot.Context) error {
		t.Fatal("handler must not run")
		return nil
	})
	c := &fakeContext{sender: &telebot.User{ID: 0}, text: "/stats"}
	require.NoError(t, handler(c))
	assert.Equal(t, []interface{}{userMessage(app.ErrNotAuthorized)}, c.sent)
}
