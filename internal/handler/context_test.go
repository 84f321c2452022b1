package handler

import (
	tele "gopkg.in/telebot.v3"
)

// fakeContext implements the parts of tele.Context the handlers use
type fakeContext struct {
	tele.Context

	sender    *tele.User
	callback  *tele.Callback
	args      []string
	editErr   error
	sent      []string
	markups   []*tele.ReplyMarkup
	edits     []string
	responses []*tele.CallbackResponse
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{sender: &tele.User{ID: userID}}
}

func (c *fakeContext) Sender() *tele.User       { return c.sender }
func (c *fakeContext) Callback() *tele.Callback { return c.callback }
func (c *fakeContext) Args() []string           { return c.args }

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	text, _ := what.(string)
	c.sent = append(c.sent, text)
	for _, o := range opts {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			c.markups = append(c.markups, m)
		}
	}
	return nil
}

func (c *fakeContext) Edit(what interface{}, opts ...interface{}) error {
	if c.editErr != nil {
		return c.editErr
	}
	text, _ := what.(string)
	c.edits = append(c.edits, text)
	return nil
}

func (c *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		c.responses = append(c.responses, resp[0])
	} else {
		c.responses = append(c.responses, &tele.CallbackResponse{})
	}
	return nil
}
