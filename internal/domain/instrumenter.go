package domain

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// RuntimeHook is the global every instrumented module calls to obtain its counters.
const RuntimeHook = "__covpatch"

// Instrumenter rewrites a module so that it counts its own probes.
type Instrumenter interface {
	Instrument(src []byte, bm *m.BoundaryMap) ([]byte, error)
}

type instrumenter struct {
	luauAdapter adapter.LuauFileAdapter
}

// NewInstrumenter creates an Instrumenter that validates its output with luauAdapter.
func NewInstrumenter(luauAdapter adapter.LuauFileAdapter) Instrumenter {
	return &instrumenter{luauAdapter: luauAdapter}
}

// insertion is text added at an offset of the original source. Wrapper opens
// carry the end of their span and closes carry its start, which orders
// nested wrappers at a shared offset.
type insertion struct {
	offset int
	text   string
	header bool
	close  bool
	span   int
	seq    int
	// terminate appends ";" unless the source already continues with one.
	terminate bool
}

func (a insertion) before(b insertion) bool {
	if a.offset != b.offset {
		return a.offset < b.offset
	}

	if a.header != b.header {
		return a.header
	}

	if a.close != b.close {
		return a.close
	}

	if a.close {
		if a.span != b.span {
			return a.span > b.span
		}

		return a.seq > b.seq
	}

	if a.span != b.span {
		return a.span > b.span
	}

	return a.seq < b.seq
}

func (in *instrumenter) Instrument(src []byte, bm *m.BoundaryMap) ([]byte, error) {
	if bm == nil {
		return nil, errors.InstrumentationFailure(errors.New("missing boundary map"))
	}

	insertions := planInsertions(src, bm)

	out, err := applyInsertions(src, insertions)
	if err != nil {
		return nil, errors.InstrumentationFailure(errors.Wrapf(err, "instrument %s", bm.Path))
	}

	if _, err := in.luauAdapter.Parse(string(bm.Path), out); err != nil {
		return nil, errors.InstrumentationFailure(errors.Wrapf(err, "instrumented %s does not parse", bm.Path))
	}

	return out, nil
}

func planInsertions(src []byte, bm *m.BoundaryMap) []insertion {
	var list []insertion

	point := func(offset int, text string, terminate bool) {
		list = append(list, insertion{offset: offset, text: text, span: offset, seq: len(list), terminate: terminate})
	}

	list = append(list, insertion{
		offset: headerOffset(src),
		text:   headerText(src, bm.Path),
		header: true,
		seq:    len(list),
	})

	for _, s := range bm.Statements {
		point(s.Loc.Start.Offset, fmt.Sprintf("__cov_s(%d)", s.ID), true)
	}

	for _, f := range bm.Functions {
		point(f.Body.Start.Offset, fmt.Sprintf("__cov_f(%d)", f.ID), true)
	}

	for _, b := range bm.Branches {
		for k, p := range b.Paths {
			switch p.Action {
			case m.ActionEnter:
				point(p.Anchor.Start.Offset, fmt.Sprintf("__cov_b(%d, %d)", b.ID, k), true)
			case m.ActionElse:
				point(p.Anchor.Start.Offset, fmt.Sprintf("else __cov_b(%d, %d) ", b.ID, k), false)
			case m.ActionExit:
				point(p.Anchor.Start.Offset, fmt.Sprintf("; __cov_b(%d, %d)", b.ID, k), true)
			case m.ActionWrap:
				start, end := p.Anchor.Start.Offset, p.Anchor.End.Offset
				list = append(list,
					insertion{offset: start, text: fmt.Sprintf("__cov_bx(%d, %d, ", b.ID, k), span: end, seq: len(list)},
					insertion{offset: end, text: ")", close: true, span: start, seq: len(list) + 1},
				)
			}
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].before(list[j])
	})

	return list
}

// applyInsertions splices the sorted insertions into src. No newline is added
// after the header line, so every original line keeps its number.
func applyInsertions(src []byte, list []insertion) ([]byte, error) {
	var buf bytes.Buffer

	buf.Grow(len(src) + len(list)*20)

	last := 0

	for _, ins := range list {
		if ins.offset < last || ins.offset > len(src) {
			return nil, fmt.Errorf("insertion offset %d out of range", ins.offset)
		}

		buf.Write(src[last:ins.offset])
		last = ins.offset

		text := ins.text
		if ins.terminate {
			if nextSignificant(src, ins.offset) != ';' {
				text += ";"
			}

			text += " "
		}

		if n := buf.Len(); n > 0 && isIdentByte(buf.Bytes()[n-1]) && isIdentByte(text[0]) {
			buf.WriteByte(' ')
		}

		buf.WriteString(text)
	}

	buf.Write(src[last:])

	return buf.Bytes(), nil
}

func headerText(src []byte, path m.Path) string {
	text := fmt.Sprintf("local __cov_s, __cov_f, __cov_b, __cov_bx = _G.%s(%s); ", RuntimeHook, luaQuote(string(path)))

	offset := headerOffset(src)
	if offset == len(src) && offset > 0 && src[offset-1] != '\n' {
		// The last directive line runs to EOF and would comment the header out.
		return "\n" + text
	}

	return text
}

// headerOffset is the start of the first line after the leading --! directives
// and shebang.
func headerOffset(src []byte) int {
	offset := 0
	pos := 0

	for pos < len(src) {
		end := bytes.IndexByte(src[pos:], '\n')

		lineEnd := len(src)
		next := len(src)

		if end >= 0 {
			lineEnd = pos + end
			next = lineEnd + 1
		}

		line := strings.TrimSpace(string(src[pos:lineEnd]))

		switch {
		case line == "":
		case strings.HasPrefix(line, "--!"), pos == 0 && strings.HasPrefix(line, "#!"):
			offset = next
		default:
			return offset
		}

		pos = next
	}

	return offset
}

func nextSignificant(src []byte, offset int) byte {
	for i := offset; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return src[i]
		}
	}

	return 0
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// luaQuote quotes s as a Lua 5.1 string literal.
func luaQuote(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, "\\%03d", c)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte('"')

	return b.String()
}
