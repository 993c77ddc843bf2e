package classfile

import (
	"fmt"
	"strings"
)

// MethodDescriptor is a decoded erased method descriptor. Each entry in
// Params is a single field descriptor ("I", "[J", "Ljava/lang/String;", ...);
// Return is a field descriptor or "V".
type MethodDescriptor struct {
	Params []string
	Return string
}

// ParseMethodDescriptor decodes a descriptor of the form "(params)ret".
func ParseMethodDescriptor(desc string) (*MethodDescriptor, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, fmt.Errorf("invalid method descriptor: %s", desc)
	}
	end := strings.IndexByte(desc, ')')
	if end == -1 {
		return nil, fmt.Errorf("invalid method descriptor: %s", desc)
	}

	params := desc[1:end]
	var out []string
	for i := 0; i < len(params); {
		n, err := fieldDescLen(params[i:])
		if err != nil {
			return nil, fmt.Errorf("in method descriptor %s: %w", desc, err)
		}
		out = append(out, params[i:i+n])
		i += n
	}

	ret := desc[end+1:]
	if ret == "" {
		return nil, fmt.Errorf("method descriptor %s has no return type", desc)
	}
	if ret != "V" {
		if n, err := fieldDescLen(ret); err != nil || n != len(ret) {
			return nil, fmt.Errorf("invalid return type in method descriptor %s", desc)
		}
	}

	return &MethodDescriptor{Params: out, Return: ret}, nil
}

// fieldDescLen returns the length of the field descriptor at the start of s.
func fieldDescLen(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty type descriptor")
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end == -1 {
			return 0, fmt.Errorf("unterminated class descriptor in %q", s)
		}
		return end + 1, nil
	case '[':
		n, err := fieldDescLen(s[1:])
		if err != nil {
			return 0, err
		}
		return n + 1, nil
	}
	return 0, fmt.Errorf("invalid type descriptor char %q in %q", s[0], s)
}

// Slots returns the number of local-variable/operand slots occupied by a
// value of the given field descriptor: two for long and double, one
// otherwise.
func Slots(fieldDesc string) int {
	if fieldDesc == "J" || fieldDesc == "D" {
		return 2
	}
	return 1
}

// ParamSlots is the total slot count of the parameters, excluding the
// receiver.
func (d *MethodDescriptor) ParamSlots() int {
	n := 0
	for _, p := range d.Params {
		n += Slots(p)
	}
	return n
}

// ReturnSlots is the slot count of the return value (0 for void).
func (d *MethodDescriptor) ReturnSlots() int {
	if d.Return == "V" {
		return 0
	}
	return Slots(d.Return)
}
