package jsval

import (
	"math"
	"strconv"
	"strings"
)

// Format renders v for messages and reports. Strings are quoted, BigInts
// carry the n suffix and arrays and records are rendered one level deep.
func Format(v Value) string {
	var b strings.Builder
	format(&b, v, 0)
	return b.String()
}

func format(b *strings.Builder, v Value, depth int) {
	switch x := v.(type) {
	case nil, undefinedValue:
		b.WriteString("undefined")
	case nullValue:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(x)))
	case Number:
		if x == 0 && math.Signbit(float64(x)) {
			b.WriteString("-0")
			return
		}
		b.WriteString(NumberToString(float64(x)))
	case String:
		b.WriteString(strconv.Quote(string(x)))
	case *BigInt:
		b.WriteString(x.String())
		b.WriteByte('n')
	case *Symbol:
		b.WriteString("Symbol(")
		b.WriteString(x.Description)
		b.WriteByte(')')
	case *Object:
		formatObject(b, x, depth)
	}
}

func formatObject(b *strings.Builder, o *Object, depth int) {
	t := o.target()
	if o.IsCallable() {
		name := "anonymous"
		if p, ok := t.props["name"]; ok && !p.IsAccessor() {
			if s, ok := p.Value.(String); ok && s != "" {
				name = string(s)
			}
		}
		b.WriteString("[Function: ")
		b.WriteString(name)
		b.WriteByte(']')
		return
	}
	if o.IsProxy() {
		b.WriteString("[Proxy]")
		return
	}
	if depth > 0 {
		b.WriteString("[" + t.class + "]")
		return
	}
	if t.class == "Error" {
		b.WriteString("Error")
		if p, ok := t.props["message"]; ok {
			if s, ok := p.Value.(String); ok && s != "" {
				b.WriteString(": ")
				b.WriteString(string(s))
			}
		}
		return
	}
	if t.class == "Array" {
		b.WriteByte('[')
		n := 0
		if p, ok := t.props["length"]; ok {
			if l, ok := p.Value.(Number); ok {
				n = int(l)
			}
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			if p, ok := t.props[strconv.Itoa(i)]; ok && !p.IsAccessor() {
				format(b, p.Value, depth+1)
			} else if ok {
				b.WriteString("[Getter]")
			} else {
				b.WriteString("<empty>")
			}
		}
		b.WriteByte(']')
		return
	}
	b.WriteByte('{')
	first := true
	for _, k := range t.keys {
		p := t.props[k]
		if !p.Enumerable {
			continue
		}
		if !first {
			b.WriteString(",")
		}
		first = false
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(": ")
		if p.IsAccessor() {
			b.WriteString("[Getter]")
			continue
		}
		format(b, p.Value, depth+1)
	}
	if !first {
		b.WriteByte(' ')
	}
	b.WriteByte('}')
}
