// Package spirvtest assembles small SPIR-V modules for reflection tests.
package spirvtest

import (
	"encoding/binary"

	"github.com/andewx/timekill/spirv"
)

// Assembler appends instructions after a SPIR-V 1.0 header. IDs are handed
// out by NextID and the header bound is fixed up by Words.
type Assembler struct {
	words []uint32
	next  uint32
}

func New() *Assembler {
	return &Assembler{
		words: []uint32{spirv.Magic, 0x00010000, 0, 0, 0},
		next:  1,
	}
}

func (a *Assembler) NextID() uint32 {
	id := a.next
	a.next++
	return id
}

// Op appends a raw instruction.
func (a *Assembler) Op(op uint32, operands ...uint32) *Assembler {
	a.words = append(a.words, uint32(len(operands)+1)<<16|op)
	a.words = append(a.words, operands...)
	return a
}

// String packs s as a nul-terminated literal.
func String(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func (a *Assembler) EntryPoint(model spirv.ExecutionModel, fn uint32, name string, iface ...uint32) *Assembler {
	ops := append([]uint32{uint32(model), fn}, String(name)...)
	return a.Op(spirv.OpEntryPoint, append(ops, iface...)...)
}

func (a *Assembler) Name(id uint32, name string) *Assembler {
	return a.Op(spirv.OpName, append([]uint32{id}, String(name)...)...)
}

func (a *Assembler) Location(id, loc uint32) *Assembler {
	return a.Op(spirv.OpDecorate, id, spirv.DecorationLocation, loc)
}

func (a *Assembler) BuiltIn(id, builtin uint32) *Assembler {
	return a.Op(spirv.OpDecorate, id, spirv.DecorationBuiltIn, builtin)
}

// Float declares a 32-bit float type and returns its id.
func (a *Assembler) Float() uint32 {
	id := a.NextID()
	a.Op(spirv.OpTypeFloat, id, 32)
	return id
}

// Int declares a 32-bit integer type and returns its id.
func (a *Assembler) Int(signed bool) uint32 {
	id := a.NextID()
	var s uint32
	if signed {
		s = 1
	}
	a.Op(spirv.OpTypeInt, id, 32, s)
	return id
}

func (a *Assembler) Vector(elem, n uint32) uint32 {
	id := a.NextID()
	a.Op(spirv.OpTypeVector, id, elem, n)
	return id
}

func (a *Assembler) Pointer(class spirv.StorageClass, elem uint32) uint32 {
	id := a.NextID()
	a.Op(spirv.OpTypePointer, id, uint32(class), elem)
	return id
}

// Variable declares a variable of pointer type ptr and returns its id.
func (a *Assembler) Variable(ptr uint32, class spirv.StorageClass) uint32 {
	id := a.NextID()
	a.Op(spirv.OpVariable, ptr, id, uint32(class))
	return id
}

// Input declares a located Input variable of type elem.
func (a *Assembler) Input(name string, elem, loc uint32) uint32 {
	v := a.Variable(a.Pointer(spirv.StorageClassInput, elem), spirv.StorageClassInput)
	a.Name(v, name)
	a.Location(v, loc)
	return v
}

// Output declares a located Output variable of type elem.
func (a *Assembler) Output(name string, elem, loc uint32) uint32 {
	v := a.Variable(a.Pointer(spirv.StorageClassOutput, elem), spirv.StorageClassOutput)
	a.Name(v, name)
	a.Location(v, loc)
	return v
}

// Words returns the module with the header bound set.
func (a *Assembler) Words() []uint32 {
	out := append([]uint32(nil), a.words...)
	out[3] = a.next
	return out
}

// Bytes returns Words encoded little-endian.
func (a *Assembler) Bytes() []byte {
	words := a.Words()
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
