package issuer

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// HiddenInput renders the form field carrying token for plain form posts:
//
//	<input type="hidden" name="csrf_token" value="...">
func (i *Issuer) HiddenInput(token string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<input type="hidden" name="`+templ.EscapeString(i.field)+
			`" value="`+templ.EscapeString(token)+`">`)
		return err
	})
}

// Carrier renders a hidden one-shot element delivering token out of band.
// The runtime absorbs the value and removes the element.
func Carrier(attr, token string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div hidden `+templ.EscapeString(attr)+`="`+templ.EscapeString(token)+`"></div>`)
		return err
	})
}
