package hxglue

import (
	"github.com/pthm/hxglue/lib/dom"
)

// FormSynchronizer keeps the hidden token field of every form in the page
// in step with the token store.
type FormSynchronizer struct {
	doc   *dom.Document
	field string
}

// NewFormSynchronizer targets input fields named field in doc.
func NewFormSynchronizer(doc *dom.Document, field string) *FormSynchronizer {
	if field == "" {
		field = DefaultField
	}
	return &FormSynchronizer{doc: doc, field: field}
}

// Propagate sets the value of every matching field to token and returns how
// many fields it found. Safe to repeat.
func (f *FormSynchronizer) Propagate(token string) int {
	if f == nil || f.doc == nil {
		return 0
	}
	fields := f.doc.InputsByName(f.field)
	for _, n := range fields {
		dom.SetAttr(n, "value", token)
	}
	return len(fields)
}

// First returns the value of the first matching field in document order.
// A field without a value attribute reads as empty; ok is false only when
// there is no field at all.
func (f *FormSynchronizer) First() (string, bool) {
	if f == nil || f.doc == nil {
		return "", false
	}
	fields := f.doc.InputsByName(f.field)
	if len(fields) == 0 {
		return "", false
	}
	v, _ := dom.Attr(fields[0], "value")
	return v, true
}
