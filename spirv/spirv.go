// Package spirv reads SPIR-V binaries far enough to reflect their entry
// points and stage interface variables (location, built-in flag, component
// type). It does not validate or disassemble whole modules.
package spirv

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"

	"github.com/pkg/errors"
)

// Magic is the first word of every SPIR-V module.
const Magic uint32 = 0x07230203

const headerWords = 5

// Opcodes used by reflection.
const (
	OpName           uint32 = 5
	OpEntryPoint     uint32 = 15
	OpTypeVoid       uint32 = 19
	OpTypeBool       uint32 = 20
	OpTypeInt        uint32 = 21
	OpTypeFloat      uint32 = 22
	OpTypeVector     uint32 = 23
	OpTypeMatrix     uint32 = 24
	OpTypeArray      uint32 = 28
	OpTypeStruct     uint32 = 30
	OpTypePointer    uint32 = 32
	OpVariable       uint32 = 59
	OpDecorate       uint32 = 71
	OpMemberDecorate uint32 = 72
)

// Decorations used by reflection.
const (
	DecorationBuiltIn  uint32 = 11
	DecorationLocation uint32 = 30
)

type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
)

func (s StorageClass) String() string {
	switch s {
	case StorageClassInput:
		return "Input"
	case StorageClassOutput:
		return "Output"
	case StorageClassUniform:
		return "Uniform"
	case StorageClassUniformConstant:
		return "UniformConstant"
	}
	return fmt.Sprintf("StorageClass(%d)", uint32(s))
}

type ExecutionModel uint32

const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
	ExecutionModelRayGeneration          ExecutionModel = 5313
	ExecutionModelIntersection           ExecutionModel = 5314
	ExecutionModelAnyHit                 ExecutionModel = 5315
	ExecutionModelClosestHit             ExecutionModel = 5316
	ExecutionModelMiss                   ExecutionModel = 5317
	ExecutionModelCallable               ExecutionModel = 5318
)

var (
	ErrInvalidMagic       = errors.New("spirv: invalid magic number")
	ErrTruncated          = errors.New("spirv: truncated module")
	ErrMalformed          = errors.New("spirv: malformed instruction")
	ErrDuplicateLocation  = errors.New("spirv: duplicate interface location")
	ErrUnalignedByteCount = errors.New("spirv: byte length is not a multiple of 4")
)

// ScalarKind is the component kind of an interface variable.
type ScalarKind int

const (
	KindUnknown ScalarKind = iota
	KindFloat
	KindSint
	KindUint
	KindBool
	KindStruct
	KindMatrix
	KindArray
)

func (k ScalarKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindSint:
		return "int"
	case KindUint:
		return "uint"
	case KindBool:
		return "bool"
	case KindStruct:
		return "struct"
	case KindMatrix:
		return "matrix"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// Type describes the pointee of an interface variable. Components is 1 for
// scalars and the vector size for vectors.
type Type struct {
	Kind       ScalarKind
	Width      uint32
	Components uint32
}

func (t Type) String() string {
	if t.Components > 1 {
		return fmt.Sprintf("vec%d<%s%d>", t.Components, t.Kind, t.Width)
	}
	return fmt.Sprintf("%s%d", t.Kind, t.Width)
}

// Variable is a reflected OpVariable in the Input or Output storage class.
type Variable struct {
	ID           uint32
	Name         string
	StorageClass StorageClass
	Location     uint32
	HasLocation  bool
	BuiltIn      bool
	Type         Type
}

type EntryPoint struct {
	Model     ExecutionModel
	Name      string
	Interface []uint32
}

// Module is the reflected view of a SPIR-V binary.
type Module struct {
	Version     uint32
	Generator   uint32
	Bound       uint32
	EntryPoints []EntryPoint
	Variables   []Variable
}

// Words converts a little-endian byte payload into SPIR-V words.
func Words(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrUnalignedByteCount, "%d bytes", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

// ParseBytes decodes data with Words and reflects it with Parse.
func ParseBytes(data []byte) (*Module, error) {
	words, err := Words(data)
	if err != nil {
		return nil, err
	}
	return Parse(words)
}

type typeInfo struct {
	op      uint32
	operand []uint32
}

// Parse reflects a SPIR-V module. Modules written with the opposite byte
// order are swapped before reflection.
func Parse(words []uint32) (*Module, error) {
	if len(words) < headerWords {
		return nil, errors.Wrapf(ErrTruncated, "%d words in header", len(words))
	}
	if words[0] != Magic {
		if bits.ReverseBytes32(words[0]) != Magic {
			return nil, errors.Wrapf(ErrInvalidMagic, "got 0x%08x", words[0])
		}
		swapped := make([]uint32, len(words))
		for i, w := range words {
			swapped[i] = bits.ReverseBytes32(w)
		}
		words = swapped
	}

	m := &Module{
		Version:   words[1],
		Generator: words[2],
		Bound:     words[3],
	}

	names := make(map[uint32]string)
	locations := make(map[uint32]uint32)
	builtins := make(map[uint32]bool)
	builtinMembers := make(map[uint32]bool)
	types := make(map[uint32]typeInfo)
	type rawVar struct {
		id, typeID uint32
		class      StorageClass
	}
	var vars []rawVar

	for pc := headerWords; pc < len(words); {
		count := int(words[pc] >> 16)
		op := words[pc] & 0xffff
		if count == 0 {
			return nil, errors.Wrapf(ErrMalformed, "zero word count at word %d", pc)
		}
		if pc+count > len(words) {
			return nil, errors.Wrapf(ErrTruncated, "opcode %d at word %d needs %d words", op, pc, count)
		}
		operands := words[pc+1 : pc+count]

		switch op {
		case OpName:
			if len(operands) < 2 {
				return nil, errors.Wrapf(ErrMalformed, "OpName at word %d", pc)
			}
			names[operands[0]], _ = decodeString(operands[1:])
		case OpEntryPoint:
			if len(operands) < 3 {
				return nil, errors.Wrapf(ErrMalformed, "OpEntryPoint at word %d", pc)
			}
			name, n := decodeString(operands[2:])
			iface := append([]uint32(nil), operands[2+n:]...)
			m.EntryPoints = append(m.EntryPoints, EntryPoint{
				Model:     ExecutionModel(operands[0]),
				Name:      name,
				Interface: iface,
			})
		case OpDecorate:
			if len(operands) < 2 {
				return nil, errors.Wrapf(ErrMalformed, "OpDecorate at word %d", pc)
			}
			switch operands[1] {
			case DecorationLocation:
				if len(operands) < 3 {
					return nil, errors.Wrapf(ErrMalformed, "Location decoration at word %d", pc)
				}
				locations[operands[0]] = operands[2]
			case DecorationBuiltIn:
				builtins[operands[0]] = true
			}
		case OpMemberDecorate:
			if len(operands) >= 3 && operands[2] == DecorationBuiltIn {
				builtinMembers[operands[0]] = true
			}
		case OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector,
			OpTypeMatrix, OpTypeArray, OpTypeStruct, OpTypePointer:
			if len(operands) < 1 {
				return nil, errors.Wrapf(ErrMalformed, "type opcode %d at word %d", op, pc)
			}
			types[operands[0]] = typeInfo{op: op, operand: operands[1:]}
		case OpVariable:
			if len(operands) < 3 {
				return nil, errors.Wrapf(ErrMalformed, "OpVariable at word %d", pc)
			}
			class := StorageClass(operands[2])
			if class == StorageClassInput || class == StorageClassOutput {
				vars = append(vars, rawVar{id: operands[1], typeID: operands[0], class: class})
			}
		}
		pc += count
	}

	for _, rv := range vars {
		v := Variable{
			ID:           rv.id,
			Name:         names[rv.id],
			StorageClass: rv.class,
			BuiltIn:      builtins[rv.id],
		}
		v.Location, v.HasLocation = locations[rv.id]

		pointee := rv.typeID
		if ptr, ok := types[rv.typeID]; ok && ptr.op == OpTypePointer && len(ptr.operand) >= 2 {
			pointee = ptr.operand[1]
		}
		v.Type = resolveType(types, pointee)
		if v.Type.Kind == KindStruct && builtinMembers[pointee] {
			v.BuiltIn = true
		}
		m.Variables = append(m.Variables, v)
	}
	return m, nil
}

func resolveType(types map[uint32]typeInfo, id uint32) Type {
	t, ok := types[id]
	if !ok {
		return Type{}
	}
	switch t.op {
	case OpTypeFloat:
		return Type{Kind: KindFloat, Width: operandAt(t.operand, 0), Components: 1}
	case OpTypeInt:
		kind := KindUint
		if operandAt(t.operand, 1) != 0 {
			kind = KindSint
		}
		return Type{Kind: kind, Width: operandAt(t.operand, 0), Components: 1}
	case OpTypeBool:
		return Type{Kind: KindBool, Components: 1}
	case OpTypeVector:
		elem := resolveType(types, operandAt(t.operand, 0))
		elem.Components = operandAt(t.operand, 1)
		return elem
	case OpTypeMatrix:
		return Type{Kind: KindMatrix, Components: operandAt(t.operand, 1)}
	case OpTypeArray:
		return Type{Kind: KindArray}
	case OpTypeStruct:
		return Type{Kind: KindStruct}
	}
	return Type{}
}

func operandAt(ops []uint32, i int) uint32 {
	if i < len(ops) {
		return ops[i]
	}
	return 0
}

// decodeString reads a nul-terminated literal string and reports how many
// words it occupied.
func decodeString(words []uint32) (string, int) {
	buf := make([]byte, 0, len(words)*4)
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, c)
		}
	}
	return string(buf), len(words)
}

// Inputs returns every Input variable in the module ordered by location.
// Built-ins and variables without a location sort last in declaration order.
func (m *Module) Inputs() []Variable { return m.interfaceVars(StorageClassInput, nil) }

// Outputs returns every Output variable in the module ordered like Inputs.
func (m *Module) Outputs() []Variable { return m.interfaceVars(StorageClassOutput, nil) }

// InterfaceOf returns the Input and Output variables listed in the interface
// of the first entry point for model, ordered like Inputs. A module may hold
// several entry points whose locations overlap. ok is false when no entry
// point for model exists; the variables are then the whole module's.
func (m *Module) InterfaceOf(model ExecutionModel) (inputs, outputs []Variable, ok bool) {
	for _, ep := range m.EntryPoints {
		if ep.Model != model {
			continue
		}
		ids := make(map[uint32]bool, len(ep.Interface))
		for _, id := range ep.Interface {
			ids[id] = true
		}
		return m.interfaceVars(StorageClassInput, ids), m.interfaceVars(StorageClassOutput, ids), true
	}
	return m.Inputs(), m.Outputs(), false
}

// interfaceVars collects class variables, restricted to ids when non-nil.
func (m *Module) interfaceVars(class StorageClass, ids map[uint32]bool) []Variable {
	var out []Variable
	for _, v := range m.Variables {
		if v.StorageClass != class {
			continue
		}
		if ids != nil && !ids[v.ID] {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasLocation != b.HasLocation {
			return a.HasLocation
		}
		return a.HasLocation && a.Location < b.Location
	})
	return out
}

// EntryPointName returns the name of the first entry point declared for
// model.
func (m *Module) EntryPointName(model ExecutionModel) (string, bool) {
	for _, ep := range m.EntryPoints {
		if ep.Model == model {
			return ep.Name, true
		}
	}
	return "", false
}

// CheckLocations fails with ErrDuplicateLocation when two non built-in
// variables share a location.
func CheckLocations(vars []Variable) error {
	seen := make(map[uint32]Variable, len(vars))
	for _, v := range vars {
		if v.BuiltIn || !v.HasLocation {
			continue
		}
		if prev, ok := seen[v.Location]; ok {
			return errors.Wrapf(ErrDuplicateLocation, "location %d used by %s and %s",
				v.Location, displayName(prev), displayName(v))
		}
		seen[v.Location] = v
	}
	return nil
}

func displayName(v Variable) string {
	if v.Name != "" {
		return fmt.Sprintf("%q", v.Name)
	}
	return fmt.Sprintf("%%%d", v.ID)
}
