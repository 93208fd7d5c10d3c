// WASM encoding tests
//
// Tests the binary writers, each section emitter, and the text format
// renderer on generated modules.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

// =============================================================================
// WASM UTILITY TESTS
// =============================================================================

func TestWriteByte(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	writeByte(&buf, 0x42)
	writeByte(&buf, 0xFF)
	be.Equal(t, buf.Bytes(), []byte{0x42, 0xFF})
}

func TestWriteBytes(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	writeBytes(&buf, []byte{0x01, 0x02, 0x03})
	be.Equal(t, buf.Bytes(), []byte{0x01, 0x02, 0x03})
}

func TestWriteLEB128(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    uint32
		expected []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		writeLEB128(&buf, test.input)
		be.Equal(t, buf.Bytes(), test.expected)
	}
}

func TestWriteLEB128Signed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    int64
		expected []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{-1, []byte{0x7F}},
		{63, []byte{0x3F}},
		{64, []byte{0xC0, 0x00}},
		{127, []byte{0xFF, 0x00}},
		{-128, []byte{0x80, 0x7F}},
		{128, []byte{0x80, 0x01}},
		{-129, []byte{0xFF, 0x7E}},
		{2147483647, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x07}},
		{-2147483648, []byte{0x80, 0x80, 0x80, 0x80, 0x78}},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		writeLEB128Signed(&buf, test.input)
		be.Equal(t, buf.Bytes(), test.expected)
	}
}

func TestWriteName(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	writeName(&buf, "pow")
	be.Equal(t, buf.Bytes(), []byte{0x03, 'p', 'o', 'w'})
}

// =============================================================================
// SECTION TESTS
// =============================================================================

func testModule() *Module {
	return &Module{
		HostModule: DefaultHostModule,
		Export:     DefaultExport,
		Imports:    []Import{{Name: "print_num", Params: 1}},
		Globals:    []string{"x", "y"},
		Start:      &Func{Name: StartLabel},
	}
}

func TestEmitWASMHeader(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	EmitWASMHeader(&buf)

	// WASM magic number (0x00 0x61 0x73 0x6D) + version (0x01 0x00 0x00 0x00)
	be.Equal(t, buf.Bytes(), []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})
}

func TestEmitTypeSection(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	EmitTypeSection(&buf, newWASMLayout(testModule()))

	be.Equal(t, buf.Bytes(), []byte{
		SECTION_TYPE, 0x09,
		0x02,                              // 2 types
		FUNC_TYPE, 0x01, 0x7F, 0x01, 0x7F, // (i32) -> i32
		FUNC_TYPE, 0x00, 0x00,             // () -> ()
	})
}

func TestTypesAreShared(t *testing.T) {
	t.Parallel()
	m := testModule()
	m.Imports = HostImports
	m.Funcs = []*Func{{Name: "f", Params: []string{"a"}, HasResult: true}}
	layout := newWASMLayout(m)

	// (i32)->i32, (i32 i32)->i32, ()->()
	be.Equal(t, len(layout.types), 3)
	be.Equal(t, layout.funcIndex["f"], uint32(len(HostImports)))
	be.Equal(t, layout.funcIndex[StartLabel], uint32(len(HostImports)+1))
	be.Equal(t, layout.funcType[0], layout.importType[0])
}

func TestEmitImportSection(t *testing.T) {
	t.Parallel()
	m := testModule()
	var buf bytes.Buffer
	EmitImportSection(&buf, m, newWASMLayout(m))

	be.Equal(t, buf.Bytes(), []byte{
		SECTION_IMPORT, 0x15,
		0x01,
		0x07, 'i', 'm', 'p', 'o', 'r', 't', 's',
		0x09, 'p', 'r', 'i', 'n', 't', '_', 'n', 'u', 'm',
		0x00, // function
		0x00, // type index
	})
}

func TestEmitFunctionSection(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	EmitFunctionSection(&buf, newWASMLayout(testModule()))

	// only the start unit, with type 1
	be.Equal(t, buf.Bytes(), []byte{SECTION_FUNCTION, 0x02, 0x01, 0x01})
}

func TestEmitGlobalSection(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	EmitGlobalSection(&buf, testModule())

	be.Equal(t, buf.Bytes(), []byte{
		SECTION_GLOBAL, 0x0B,
		0x02,
		VALTYPE_I32, 0x01, 0x41, 0x00, END,
		VALTYPE_I32, 0x01, 0x41, 0x00, END,
	})
}

func TestEmitExportSection(t *testing.T) {
	t.Parallel()
	m := testModule()
	var buf bytes.Buffer
	EmitExportSection(&buf, m, newWASMLayout(m))

	be.Equal(t, buf.Bytes(), []byte{
		SECTION_EXPORT, 0x0A,
		0x01,
		0x06, '_', 's', 't', 'a', 'r', 't',
		0x00, // function
		0x01, // after the single import
	})
}

func TestEmitFunctionBody(t *testing.T) {
	t.Parallel()
	fn := &Func{
		Name:   "double",
		Params: []string{"n"},
		Locals: []string{ScratchSlot},
		Body: []Instruction{
			{Op: LOCAL_GET, Name: "n"},
			{Op: I32_CONST, Value: 2},
			{Op: I32_MUL},
			{Op: RETURN},
			{Op: I32_CONST, Value: 0},
		},
		HasResult: true,
	}
	m := testModule()
	m.Funcs = []*Func{fn}

	var buf bytes.Buffer
	EmitFunctionBody(&buf, fn, newWASMLayout(m))

	be.Equal(t, buf.Bytes(), []byte{
		0x01, 0x01, VALTYPE_I32, // one group of one i32 local
		0x20, 0x00,
		0x41, 0x02,
		0x6C,
		0x0F,
		0x41, 0x00,
		END,
	})
}

func TestEmitInstructionIndexes(t *testing.T) {
	t.Parallel()
	m := testModule()
	layout := newWASMLayout(m)
	locals := map[string]uint32{"a": 0, ScratchSlot: 1}

	tests := []struct {
		in       Instruction
		expected []byte
	}{
		{Instruction{Op: GLOBAL_GET, Name: "y"}, []byte{0x23, 0x01}},
		{Instruction{Op: GLOBAL_SET, Name: "x"}, []byte{0x24, 0x00}},
		{Instruction{Op: LOCAL_SET, Name: ScratchSlot}, []byte{0x21, 0x01}},
		{Instruction{Op: CALL, Name: "print_num"}, []byte{0x10, 0x00}},
		{Instruction{Op: I32_CONST, Value: -1}, []byte{0x41, 0x7F}},
		{Instruction{Op: I32_EQZ}, []byte{0x45}},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		EmitInstruction(&buf, test.in, locals, layout)
		be.Equal(t, buf.Bytes(), test.expected)
	}
}

func TestEmitInstructionUndefinedPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		be.True(t, recover() != nil)
	}()
	var buf bytes.Buffer
	EmitInstruction(&buf, Instruction{Op: GLOBAL_GET, Name: "nope"}, nil, newWASMLayout(testModule()))
}

func TestEncodeWASMSectionOrder(t *testing.T) {
	t.Parallel()
	comp := mustCompile(t, "(var x int 1)\n(def f ((a int)) int (return a))\n(print (f x))")
	bin := EncodeWASM(comp.Module)

	be.Equal(t, bin[:8], []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})

	// walk the sections by their sizes
	var ids []byte
	for pos := 8; pos < len(bin); {
		ids = append(ids, bin[pos])
		size, n := readLEB128(bin[pos+1:])
		pos += 1 + n + int(size)
	}
	be.Equal(t, ids, []byte{SECTION_TYPE, SECTION_IMPORT, SECTION_FUNCTION, SECTION_GLOBAL, SECTION_EXPORT, SECTION_CODE})
}

func readLEB128(b []byte) (uint32, int) {
	var result uint32
	var shift uint
	for i, c := range b {
		result |= uint32(c&0x7F) << shift
		if c&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	return result, len(b)
}

// =============================================================================
// TEXT FORMAT TESTS
// =============================================================================

func TestFormatWAT(t *testing.T) {
	t.Parallel()
	comp := mustCompile(t, "(var x int 5)\n(def inc ((n int)) int (return (+ n 1)))\n(print (inc x))")
	wat := FormatWAT(comp.Module)

	be.True(t, strings.HasPrefix(wat, "(module\n"))
	be.True(t, strings.Contains(wat, `  (func $print_num (import "imports" "print_num") (param i32) (result i32))`))
	be.True(t, strings.Contains(wat, `  (func $max (import "imports" "max") (param i32) (param i32) (result i32))`))
	be.True(t, strings.Contains(wat, "  (global $x (mut i32) (i32.const 0))"))
	be.True(t, strings.Contains(wat, "  (func $inc (param $n i32) (result i32)\n    (local $.scratch i32)\n"+
		"    (local.get $n)\n    (i32.const 1)\n    (i32.add)\n    (return)\n    (i32.const 0)\n  )\n"))
	be.True(t, strings.Contains(wat, "  (func $.start (export \"_start\") (result i32)\n"))
	be.True(t, strings.HasSuffix(wat, "  )\n)\n"))
}

func TestFormatWATUsesConfiguredNames(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Host.Module = "env"
	cfg.Host.Entry = "main"
	comp, err := Compile("(pass)", cfg)
	be.Err(t, err, nil)

	wat := FormatWAT(comp.Module)
	be.True(t, strings.Contains(wat, `(import "env" "pow")`))
	be.True(t, strings.Contains(wat, `(func $.start (export "main")`+"\n"))
}
