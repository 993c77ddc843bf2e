package vm

import (
	"fmt"
)

// ValueKind discriminates a Value on the stack or in local variables.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindLong
	KindFloat
	KindDouble
	KindRef
	KindNull
)

// Value represents a value on the operand stack or in local variables.
// Long and double values occupy two local slots, as in the class-file
// format, but travel as a single Value.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Ref   interface{}
}

// IntValue creates an int-kind Value.
func IntValue(v int32) Value {
	return Value{Kind: KindInt, Int: int64(v)}
}

// LongValue creates a long-kind Value.
func LongValue(v int64) Value {
	return Value{Kind: KindLong, Int: v}
}

// FloatValue creates a float-kind Value.
func FloatValue(v float32) Value {
	return Value{Kind: KindFloat, Float: float64(v)}
}

// DoubleValue creates a double-kind Value.
func DoubleValue(v float64) Value {
	return Value{Kind: KindDouble, Float: v}
}

// RefValue creates a reference Value.
func RefValue(ref interface{}) Value {
	return Value{Kind: KindRef, Ref: ref}
}

// NullValue creates a null reference Value.
func NullValue() Value {
	return Value{Kind: KindNull}
}

// IsNull reports whether v is the null reference or a nil ref.
func (v Value) IsNull() bool {
	return v.Kind == KindNull || (v.Kind == KindRef && v.Ref == nil)
}

// Frame represents a stack frame for method execution.
type Frame struct {
	LocalVars    []Value
	OperandStack []Value
	SP           int
	Code         []byte
	PC           int
}

// NewFrame creates a new Frame with the given parameters.
func NewFrame(maxLocals, maxStack uint16, code []byte) *Frame {
	return &Frame{
		LocalVars:    make([]Value, maxLocals),
		OperandStack: make([]Value, maxStack),
		SP:           0,
		Code:         code,
		PC:           0,
	}
}

// Push pushes a value onto the operand stack.
func (f *Frame) Push(v Value) {
	if f.SP >= len(f.OperandStack) {
		panic(fmt.Sprintf("operand stack overflow: SP=%d, max=%d", f.SP, len(f.OperandStack)))
	}
	f.OperandStack[f.SP] = v
	f.SP++
}

// Pop pops a value from the operand stack.
func (f *Frame) Pop() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	f.SP--
	return f.OperandStack[f.SP]
}

// GetLocal returns the value at the given local variable index.
func (f *Frame) GetLocal(index int) Value {
	if index < 0 || index >= len(f.LocalVars) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.LocalVars)))
	}
	return f.LocalVars[index]
}

// SetLocal sets the value at the given local variable index.
func (f *Frame) SetLocal(index int, v Value) {
	if index < 0 || index >= len(f.LocalVars) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.LocalVars)))
	}
	f.LocalVars[index] = v
}

// ReadU8 reads a uint8 operand and advances PC.
func (f *Frame) ReadU8() uint8 {
	val := f.Code[f.PC]
	f.PC++
	return val
}

// ReadU16 reads a uint16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadU16() uint16 {
	val := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return val
}
