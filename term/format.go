package term

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders t in Erlang syntax, for logs and diagnostics.
func (e *Env) Format(t Term) string {
	var b strings.Builder
	e.format(&b, t)
	return b.String()
}

func (e *Env) format(b *strings.Builder, t Term) {
	switch kind := t.Kind(); kind {
	case TagSmallInteger:
		b.WriteString(strconv.FormatInt(t.SmallInteger(), 10))
	case TagPositiveBigNumber, TagNegativeBigNumber:
		b.WriteString(t.BigInt().String())
	case TagFloat:
		s := strconv.FormatFloat(t.Float64(), 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		b.WriteString(s)
	case TagAtom:
		b.WriteString(quoteAtom(e.AtomName(t)))
	case TagEmptyList:
		b.WriteString("[]")
	case TagList:
		e.formatList(b, t)
	case TagArity:
		b.WriteByte('{')
		for i, el := range t.TupleElements() {
			if i > 0 {
				b.WriteByte(',')
			}
			e.format(b, el)
		}
		b.WriteByte('}')
	case TagMap:
		keys, values := t.MapEntries()
		b.WriteString("#{")
		for i := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			e.format(b, keys[i])
			b.WriteString(" => ")
			e.format(b, values[i])
		}
		b.WriteByte('}')
	case TagLocalPid, TagExternalPid:
		id := t.identityOf()
		fmt.Fprintf(b, "<%s.%d.%d>", e.nodeName(id), id.Words[0], id.Words[1])
	case TagLocalPort, TagExternalPort:
		id := t.identityOf()
		fmt.Fprintf(b, "#Port<%s.%d>", e.nodeName(id), id.Words[0])
	case TagReference, TagExternalReference:
		id := t.identityOf()
		fmt.Fprintf(b, "#Ref<%s.%d.%d>", e.nodeName(id), id.Words[0], id.Words[1])
	case TagExport:
		p := t.FunctionParts()
		fmt.Fprintf(b, "fun %s:%s/%d", quoteAtom(e.AtomName(p[0])), quoteAtom(e.AtomName(p[1])), p[2].SmallInteger())
	case TagFunction:
		p := t.FunctionParts()
		fmt.Fprintf(b, "#Fun<%s.%d.%d>", quoteAtom(e.AtomName(p[0])), p[1].SmallInteger(), p[2].SmallInteger())
	case TagHeapBinary, TagReferenceCountedBinary, TagSubbinary:
		formatBits(b, t)
	case TagCatchPointer:
		fmt.Fprintf(b, "#Catch<%#x>", t.CatchAddr())
	default:
		fmt.Fprintf(b, "#%s<%#x>", kind, uint64(t))
	}
}

func (e *Env) nodeName(id Identity) string {
	if id.Node == 0 {
		return e.AtomName(e.node)
	}
	return e.AtomName(id.Node)
}

func (e *Env) formatList(b *strings.Builder, t Term) {
	b.WriteByte('[')
	first := true
	for t.IsList() {
		if !first {
			b.WriteByte(',')
		}
		first = false
		e.format(b, t.Head())
		t = t.Tail()
	}
	if !t.IsEmptyList() {
		b.WriteByte('|')
		e.format(b, t)
	}
	b.WriteByte(']')
}

func formatBits(b *strings.Builder, t Term) {
	data, bits := t.Bits()
	b.WriteString("<<")
	full := int(bits / 8)
	for i := 0; i < full; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(data[i])))
	}
	if rem := bits % 8; rem != 0 {
		if full > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(b, "%d:%d", data[full]>>(8-rem), rem)
	}
	b.WriteString(">>")
}

// quoteAtom quotes names that would not read back as a bare atom.
func quoteAtom(name string) string {
	if name == "" {
		return "''"
	}
	bare := name[0] >= 'a' && name[0] <= 'z'
	for i := 1; bare && i < len(name); i++ {
		c := name[i]
		bare = c == '_' || c == '@' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
	}
	if bare {
		return name
	}
	return "'" + strings.ReplaceAll(strings.ReplaceAll(name, `\`, `\\`), "'", `\'`) + "'"
}
