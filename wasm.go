package main

import (
	"bytes"
	"fmt"
	"strings"
)

// WASM Binary Encoding Utilities
func writeByte(buf *bytes.Buffer, b byte) {
	buf.WriteByte(b)
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
}

func writeLEB128(buf *bytes.Buffer, val uint32) {
	for val >= 0x80 {
		buf.WriteByte(byte(val&0x7F) | 0x80)
		val >>= 7
	}
	buf.WriteByte(byte(val & 0x7F))
}

func writeLEB128Signed(buf *bytes.Buffer, val int64) {
	for {
		b := byte(val & 0x7F)
		val >>= 7

		if (val == 0 && (b&0x40) == 0) || (val == -1 && (b&0x40) != 0) {
			buf.WriteByte(b)
			break
		}

		buf.WriteByte(b | 0x80)
	}
}

func writeName(buf *bytes.Buffer, name string) {
	writeLEB128(buf, uint32(len(name)))
	writeBytes(buf, []byte(name))
}

// writeSection writes the section id, the content size and the content
func writeSection(buf *bytes.Buffer, id byte, content *bytes.Buffer) {
	writeByte(buf, id)
	writeLEB128(buf, uint32(content.Len()))
	writeBytes(buf, content.Bytes())
}

const (
	SECTION_TYPE     = 0x01
	SECTION_IMPORT   = 0x02
	SECTION_FUNCTION = 0x03
	SECTION_GLOBAL   = 0x06
	SECTION_EXPORT   = 0x07
	SECTION_CODE     = 0x0A

	VALTYPE_I32 = 0x7F
	FUNC_TYPE   = 0x60
	END         = 0x0B
)

// funcType is a signature: params i32 words in, results i32 words out
type funcType struct {
	params  int
	results int
}

// wasmLayout assigns the index spaces of a module
type wasmLayout struct {
	types      []funcType
	typeIndex  map[funcType]uint32
	funcIndex  map[string]uint32
	globalIdx  map[string]uint32
	importType []uint32
	funcType   []uint32 // user functions then the start unit
}

func newWASMLayout(m *Module) *wasmLayout {
	l := &wasmLayout{
		typeIndex: make(map[funcType]uint32),
		funcIndex: make(map[string]uint32),
		globalIdx: make(map[string]uint32),
	}

	for i, imp := range m.Imports {
		l.importType = append(l.importType, l.typeOf(funcType{params: imp.Params, results: 1}))
		l.funcIndex[imp.Name] = uint32(i)
	}
	for i, fn := range l.defined(m) {
		l.funcType = append(l.funcType, l.typeOf(signature(fn)))
		l.funcIndex[fn.Name] = uint32(len(m.Imports) + i)
	}
	for i, name := range m.Globals {
		l.globalIdx[name] = uint32(i)
	}
	return l
}

func (l *wasmLayout) defined(m *Module) []*Func {
	return append(append([]*Func(nil), m.Funcs...), m.Start)
}

func (l *wasmLayout) typeOf(ft funcType) uint32 {
	if idx, ok := l.typeIndex[ft]; ok {
		return idx
	}
	idx := uint32(len(l.types))
	l.types = append(l.types, ft)
	l.typeIndex[ft] = idx
	return idx
}

func signature(fn *Func) funcType {
	ft := funcType{params: len(fn.Params)}
	if fn.HasResult {
		ft.results = 1
	}
	return ft
}

// EncodeWASM encodes a module in the WebAssembly binary format
func EncodeWASM(m *Module) []byte {
	var buf bytes.Buffer
	layout := newWASMLayout(m)

	EmitWASMHeader(&buf)
	EmitTypeSection(&buf, layout)
	EmitImportSection(&buf, m, layout)
	EmitFunctionSection(&buf, layout)
	EmitGlobalSection(&buf, m)
	EmitExportSection(&buf, m, layout)
	EmitCodeSection(&buf, m, layout)

	return buf.Bytes()
}

// WASM Section Emitters
func EmitWASMHeader(buf *bytes.Buffer) {
	// WASM magic number
	writeBytes(buf, []byte{0x00, 0x61, 0x73, 0x6D})
	// WASM version
	writeBytes(buf, []byte{0x01, 0x00, 0x00, 0x00})
}

func EmitTypeSection(buf *bytes.Buffer, layout *wasmLayout) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(len(layout.types)))
	for _, ft := range layout.types {
		writeByte(&sectionBuf, FUNC_TYPE)
		writeLEB128(&sectionBuf, uint32(ft.params))
		for i := 0; i < ft.params; i++ {
			writeByte(&sectionBuf, VALTYPE_I32)
		}
		writeLEB128(&sectionBuf, uint32(ft.results))
		for i := 0; i < ft.results; i++ {
			writeByte(&sectionBuf, VALTYPE_I32)
		}
	}
	writeSection(buf, SECTION_TYPE, &sectionBuf)
}

func EmitImportSection(buf *bytes.Buffer, m *Module, layout *wasmLayout) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(len(m.Imports)))
	for i, imp := range m.Imports {
		writeName(&sectionBuf, m.HostModule)
		writeName(&sectionBuf, imp.Name)
		writeByte(&sectionBuf, 0x00) // import kind: function
		writeLEB128(&sectionBuf, layout.importType[i])
	}
	writeSection(buf, SECTION_IMPORT, &sectionBuf)
}

func EmitFunctionSection(buf *bytes.Buffer, layout *wasmLayout) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(len(layout.funcType)))
	for _, idx := range layout.funcType {
		writeLEB128(&sectionBuf, idx)
	}
	writeSection(buf, SECTION_FUNCTION, &sectionBuf)
}

// EmitGlobalSection declares every global as a mutable i32 starting at 0
func EmitGlobalSection(buf *bytes.Buffer, m *Module) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, uint32(len(m.Globals)))
	for range m.Globals {
		writeByte(&sectionBuf, VALTYPE_I32)
		writeByte(&sectionBuf, 0x01) // mutable
		writeByte(&sectionBuf, byte(I32_CONST))
		writeLEB128Signed(&sectionBuf, 0)
		writeByte(&sectionBuf, END)
	}
	writeSection(buf, SECTION_GLOBAL, &sectionBuf)
}

func EmitExportSection(buf *bytes.Buffer, m *Module, layout *wasmLayout) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 1) // 1 export
	writeName(&sectionBuf, m.Export)
	writeByte(&sectionBuf, 0x00) // export kind: function
	writeLEB128(&sectionBuf, layout.funcIndex[m.Start.Name])
	writeSection(buf, SECTION_EXPORT, &sectionBuf)
}

func EmitCodeSection(buf *bytes.Buffer, m *Module, layout *wasmLayout) {
	var sectionBuf bytes.Buffer
	funcs := layout.defined(m)
	writeLEB128(&sectionBuf, uint32(len(funcs)))
	for _, fn := range funcs {
		var bodyBuf bytes.Buffer
		EmitFunctionBody(&bodyBuf, fn, layout)
		writeLEB128(&sectionBuf, uint32(bodyBuf.Len()))
		writeBytes(&sectionBuf, bodyBuf.Bytes())
	}
	writeSection(buf, SECTION_CODE, &sectionBuf)
}

// EmitFunctionBody writes the local declarations and the instructions
func EmitFunctionBody(buf *bytes.Buffer, fn *Func, layout *wasmLayout) {
	localIndex := make(map[string]uint32)
	for i, name := range fn.Params {
		localIndex[name] = uint32(i)
	}
	for i, name := range fn.Locals {
		localIndex[name] = uint32(len(fn.Params) + i)
	}

	if len(fn.Locals) > 0 {
		writeLEB128(buf, 1) // 1 local type group
		writeLEB128(buf, uint32(len(fn.Locals)))
		writeByte(buf, VALTYPE_I32)
	} else {
		writeLEB128(buf, 0)
	}

	for _, in := range fn.Body {
		EmitInstruction(buf, in, localIndex, layout)
	}
	writeByte(buf, END)
}

func EmitInstruction(buf *bytes.Buffer, in Instruction, localIndex map[string]uint32, layout *wasmLayout) {
	writeByte(buf, byte(in.Op))
	switch in.Op {
	case I32_CONST:
		writeLEB128Signed(buf, int64(in.Value))
	case LOCAL_GET, LOCAL_SET:
		idx, ok := localIndex[in.Name]
		if !ok {
			panic("Undefined local: " + in.Name)
		}
		writeLEB128(buf, idx)
	case GLOBAL_GET, GLOBAL_SET:
		idx, ok := layout.globalIdx[in.Name]
		if !ok {
			panic("Undefined global: " + in.Name)
		}
		writeLEB128(buf, idx)
	case CALL:
		idx, ok := layout.funcIndex[in.Name]
		if !ok {
			panic("Undefined function: " + in.Name)
		}
		writeLEB128(buf, idx)
	}
}

// FormatWAT renders a module in the WebAssembly text format
func FormatWAT(m *Module) string {
	var b strings.Builder
	b.WriteString("(module\n")
	for _, imp := range m.Imports {
		fmt.Fprintf(&b, "  (func $%s (import %q %q)%s (result i32))\n",
			imp.Name, m.HostModule, imp.Name, strings.Repeat(" (param i32)", imp.Params))
	}
	for _, name := range m.Globals {
		fmt.Fprintf(&b, "  (global $%s (mut i32) (i32.const 0))\n", name)
	}
	for _, fn := range m.Funcs {
		formatWATFunc(&b, fn, "")
	}
	formatWATFunc(&b, m.Start, m.Export)
	b.WriteString(")\n")
	return b.String()
}

func formatWATFunc(b *strings.Builder, fn *Func, export string) {
	fmt.Fprintf(b, "  (func $%s", fn.Name)
	if export != "" {
		fmt.Fprintf(b, " (export %q)", export)
	}
	for _, p := range fn.Params {
		fmt.Fprintf(b, " (param $%s i32)", p)
	}
	if fn.HasResult {
		b.WriteString(" (result i32)")
	}
	b.WriteString("\n")
	for _, name := range fn.Locals {
		fmt.Fprintf(b, "    (local $%s i32)\n", name)
	}
	for _, in := range fn.Body {
		b.WriteString("    " + in.String() + "\n")
	}
	b.WriteString("  )\n")
}
