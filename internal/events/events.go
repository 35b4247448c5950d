// Package events dispatches page events through delegation: one route table per event kind
// inspects the event target and its ancestors instead of binding handlers to single elements.
package events

import (
	"context"
	"net/url"
	"strings"
)

// Kind is the category of a page event.
type Kind string

const (
	Submit Kind = "submit"
	Click  Kind = "click"
	Input  Kind = "input"
	Change Kind = "change"
)

// Element is a snapshot of a page element taken when the event happened.
type Element struct {
	Tag     string            `json:"tag"`
	Id      string            `json:"id,omitempty"`
	Classes []string          `json:"classes,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Value   string            `json:"value,omitempty"`
	Parent  *Element          `json:"-"`
}

// Attr returns the value of the named attribute, or "" if it is not set.
func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

// HasClass returns true if the element carries the class.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Closest returns the element itself or its nearest ancestor that matches the predicate.
func (e *Element) Closest(match Predicate) *Element {
	for el := e; el != nil; el = el.Parent {
		if match(el) {
			return el
		}
	}
	return nil
}

// Predicate tells whether an element is of interest.
type Predicate func(el *Element) bool

// ById matches the element with the given id.
func ById(id string) Predicate {
	return func(el *Element) bool { return el.Id == id }
}

// ByTag matches elements with the given tag name, ignoring case.
func ByTag(tag string) Predicate {
	return func(el *Element) bool { return strings.EqualFold(el.Tag, tag) }
}

// ByClass matches elements that carry the class.
func ByClass(class string) Predicate {
	return func(el *Element) bool { return el.HasClass(class) }
}

// All matches elements that satisfy every given predicate.
func All(predicates ...Predicate) Predicate {
	return func(el *Element) bool {
		for _, p := range predicates {
			if !p(el) {
				return false
			}
		}
		return true
	}
}

// Event is a page event together with the page data needed to handle it.
type Event struct {
	Kind   Kind
	Target *Element
	// Form holds the entries of the form that contains the target, if any.
	Form url.Values
	// Inputs holds the current values of the page's input fields, keyed by element id.
	Inputs map[string]string
	// Confirmed is set when the user accepted the confirmation prompt of the target.
	Confirmed bool
}

// Handler handles an event. El is the element that the route's predicate matched.
type Handler func(ctx context.Context, ev Event, el *Element)

type route struct {
	match   Predicate
	closest bool
	handle  Handler
}

// Router is a dispatch table keyed by event kind.
type Router struct {
	routes map[Kind][]route
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[Kind][]route)}
}

// OnTarget registers a handler for events of the kind whose target itself matches.
func (r *Router) OnTarget(kind Kind, match Predicate, handle Handler) {
	r.routes[kind] = append(r.routes[kind], route{match: match, handle: handle})
}

// OnClosest registers a handler for events of the kind whose target or one of its ancestors
// matches. The handler receives the matching element.
func (r *Router) OnClosest(kind Kind, match Predicate, handle Handler) {
	r.routes[kind] = append(r.routes[kind], route{match: match, closest: true, handle: handle})
}

// Dispatch runs the first route of the event's kind that matches. It returns false if the event
// was not handled.
func (r *Router) Dispatch(ctx context.Context, ev Event) bool {
	if ev.Target == nil {
		return false
	}
	for _, rt := range r.routes[ev.Kind] {
		var el *Element
		if rt.closest {
			el = ev.Target.Closest(rt.match)
		} else if rt.match(ev.Target) {
			el = ev.Target
		}
		if el != nil {
			rt.handle(ctx, ev, el)
			return true
		}
	}
	return false
}
