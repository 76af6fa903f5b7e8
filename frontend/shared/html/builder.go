package html

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Raw marks a string as already-safe markup for Builder.F.
type Raw string

// Builder writes markup, remembering the first write error.
type Builder struct {
	ctx context.Context
	w   io.Writer
	err error
}

func NewBuilder(ctx context.Context, w io.Writer) *Builder {
	return &Builder{ctx: ctx, w: w}
}

// Raw writes s unescaped.
func (b *Builder) Raw(s string) {
	if b.err != nil {
		return
	}
	_, b.err = io.WriteString(b.w, s)
}

// Text writes s HTML-escaped.
func (b *Builder) Text(s string) {
	b.Raw(templ.EscapeString(s))
}

// F formats like fmt.Sprintf, escaping string and Stringer arguments. Raw arguments pass through.
func (b *Builder) F(format string, args ...any) {
	safe := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case Raw:
			safe[i] = string(v)
		case string:
			safe[i] = templ.EscapeString(v)
		case fmt.Stringer:
			safe[i] = templ.EscapeString(v.String())
		default:
			safe[i] = v
		}
	}
	b.Raw(fmt.Sprintf(format, safe...))
}

// Render writes a nested component.
func (b *Builder) Render(c templ.Component) {
	if b.err != nil || c == nil {
		return
	}
	b.err = c.Render(b.ctx, b.w)
}

func (b *Builder) Err() error {
	return b.err
}

// Component adapts a builder callback to templ.Component.
func Component(fn func(b *Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		b := NewBuilder(ctx, w)
		fn(b)
		return b.Err()
	})
}

// Attr renders name="value" when cond holds, for selected/checked/disabled flags.
func Attr(cond bool, name string) Raw {
	if !cond {
		return ""
	}
	return Raw(" " + name)
}
