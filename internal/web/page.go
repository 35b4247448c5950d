package web

import (
	"context"

	"gitlab.com/dirk.krummacker/contact-manager/internal/events"
	"go.uber.org/zap"
)

// Patch operations understood by the browser shim.
const (
	opReplace = "replace"
	opRemove  = "remove"
	opMessage = "message"
	opValue   = "value"
	opAlert   = "alert"
)

// outboxSize is the number of patches buffered for a browser that reads them too slowly.
const outboxSize = 256

// Patch is a single change of the page, sent to the browser as a server-sent event.
type Patch struct {
	Op       string `json:"op"`
	Selector string `json:"selector,omitempty"`
	Markup   string `json:"markup,omitempty"`
	Text     string `json:"text,omitempty"`
	Class    string `json:"class,omitempty"`
	Value    string `json:"value"`
}

// sessionPage turns the controller's page changes into patches for one browser tab.
type sessionPage struct {
	ctx    context.Context
	logger *zap.Logger
	outbox chan Patch
}

func newSessionPage(ctx context.Context, logger *zap.Logger) *sessionPage {
	return &sessionPage{ctx: ctx, logger: logger, outbox: make(chan Patch, outboxSize)}
}

func (p *sessionPage) push(patch Patch) {
	select {
	case p.outbox <- patch:
	case <-p.ctx.Done():
		p.logger.Debug("dropping patch of closed session", zap.String("op", patch.Op))
	}
}

func (p *sessionPage) Replace(selector string, markup string) {
	p.push(Patch{Op: opReplace, Selector: selector, Markup: markup})
}

func (p *sessionPage) Remove(selector string) {
	p.push(Patch{Op: opRemove, Selector: selector})
}

func (p *sessionPage) SetMessage(selector string, text string, class string) {
	p.push(Patch{Op: opMessage, Selector: selector, Text: text, Class: class})
}

func (p *sessionPage) SetValue(selector string, value string) {
	p.push(Patch{Op: opValue, Selector: selector, Value: value})
}

func (p *sessionPage) Alert(text string) {
	p.push(Patch{Op: opAlert, Text: text})
}

// Confirm answers from the event: the shim prompts the user before it sends an event whose
// target carries a data-confirm attribute.
func (p *sessionPage) Confirm(ev events.Event, text string) bool {
	return ev.Confirmed
}
