package signature

import (
	"fmt"
	"strings"

	apperrors "github.com/jindex/pkg/errors"
)

// ParseError reports malformed signature text. EOF is set when the input
// ended inside a construct; otherwise Char is the offending byte.
type ParseError struct {
	Char byte
	EOF  bool
}

func (e *ParseError) Error() string {
	if e.EOF {
		return "end of input reached unexpectedly"
	}
	return fmt.Sprintf("unexpected char '%c'", e.Char)
}

// Unwrap lets errors.Is match apperrors.ErrParse.
func (e *ParseError) Unwrap() error {
	return apperrors.ErrParse
}

func errEOF() error {
	return &ParseError{EOF: true}
}

func errUnexpected(c byte) error {
	return &ParseError{Char: c}
}

func checkASCII(input string) error {
	for i := 0; i < len(input); i++ {
		if input[i] >= 0x80 {
			return errUnexpected(input[i])
		}
	}
	return nil
}

// ParseType parses one type from the start of input and returns it together
// with the number of bytes consumed.
func ParseType(input string) (*Type[string], int, error) {
	if len(input) == 0 {
		return nil, 0, errEOF()
	}

	c := input[0]
	if p, ok := PrimitiveFromCode(c); ok {
		return PrimitiveType[string](p), 1, nil
	}

	switch c {
	case 'L':
		first, index, err := parseObject(input[1:])
		if err != nil {
			return nil, 0, err
		}
		if index >= len(input) {
			return nil, 0, errEOF()
		}
		if input[index] == ';' {
			return first, index + 1, nil
		}

		// Lpkg/Outer<TT;>.Inner.Innermost;
		parts := []*Type[string]{first}
		for {
			if index >= len(input) {
				return nil, 0, errEOF()
			}
			if input[index] == ';' {
				break
			}
			part, n, err := parseObject(input[index+1:])
			if err != nil {
				return nil, 0, err
			}
			index += n
			parts = append(parts, part)
		}
		return InnerClass(parts), index + 1, nil
	case '[':
		element, n, err := ParseType(input[1:])
		if err != nil {
			return nil, 0, err
		}
		return Array(element), n + 1, nil
	case 'T':
		semi := strings.IndexByte(input, ';')
		if semi < 0 {
			return nil, 0, errEOF()
		}
		return Generic(input[1:semi]), semi + 1, nil
	case '-':
		inner, n, err := ParseType(input[1:])
		if err != nil {
			return nil, 0, err
		}
		return ObjectMinus(inner), n + 1, nil
	case '+':
		inner, n, err := ParseType(input[1:])
		if err != nil {
			return nil, 0, err
		}
		return ObjectPlus(inner), n + 1, nil
	default:
		return nil, 0, errUnexpected(c)
	}
}

// parseObject parses a class name following 'L' or '.', with optional type
// arguments. The returned offset points at the terminating ';' or '.' when
// measured from the byte preceding input.
func parseObject(input string) (*Type[string], int, error) {
	special := strings.IndexAny(input, "<;.")
	if special < 0 {
		return nil, 0, errEOF()
	}
	name := input[:special]

	if input[special] != '<' {
		return Object(name), special + 1, nil
	}

	bounds, n, err := parseTypeBounds(input[special:])
	if err != nil {
		return nil, 0, err
	}
	return TypeBounds(name, bounds), special + n + 1, nil
}

// parseTypeBounds parses "<...>" where each entry is a full type or '*'.
func parseTypeBounds(input string) ([]*Type[string], int, error) {
	if len(input) == 0 {
		return nil, 0, errEOF()
	}
	if input[0] != '<' {
		return nil, 0, errUnexpected(input[0])
	}

	bounds := make([]*Type[string], 0, 1)
	index := 1
	for {
		if index >= len(input) {
			return nil, 0, errEOF()
		}
		switch input[index] {
		case '>':
			return bounds, index + 1, nil
		case '*':
			bounds = append(bounds, nil)
			index++
		default:
			t, n, err := ParseType(input[index:])
			if err != nil {
				return nil, 0, err
			}
			bounds = append(bounds, t)
			index += n
		}
	}
}

// ParseTypeParameters parses a generic declaration block such as
// "<T:Ljava/lang/Object;:Ljava/lang/Comparable;B::Ljava/io/Serializable;>".
// A java/lang/Object class bound is dropped and recorded as absence.
func ParseTypeParameters(input string) ([]TypeParameter[string], int, error) {
	if len(input) == 0 {
		return nil, 0, errEOF()
	}
	if input[0] != '<' {
		return nil, 0, errUnexpected(input[0])
	}

	params := make([]TypeParameter[string], 0, 1)
	index := 1
	for {
		if index >= len(input) {
			return nil, 0, errEOF()
		}
		if input[index] == '>' {
			return params, index + 1, nil
		}
		param, n, err := parseTypeParameter(input[index:])
		if err != nil {
			return nil, 0, err
		}
		index += n
		params = append(params, param)
	}
}

func parseTypeParameter(input string) (TypeParameter[string], int, error) {
	var param TypeParameter[string]

	sep := strings.IndexByte(input, ':')
	if sep < 0 {
		return param, 0, errEOF()
	}
	param.Name = input[:sep]

	first := true
	for {
		if sep >= len(input) {
			return param, 0, errEOF()
		}

		// "::" skips the class bound entirely.
		if first && sep+1 < len(input) && input[sep+1] == ':' {
			sep++
			first = false
			continue
		}
		if !first && input[sep] != ':' {
			break
		}

		sep++
		t, n, err := ParseType(input[sep:])
		if err != nil {
			return param, 0, err
		}
		sep += n

		if first {
			first = false
			if isObjectClass(t) {
				continue
			}
			param.TypeBound = t
		} else {
			param.InterfaceBounds = append(param.InterfaceBounds, t)
		}
	}

	return param, sep, nil
}

func isObjectClass(t *Type[string]) bool {
	return t != nil && t.Kind == KindObject && t.Name == ObjectClassName
}

// ParseFieldDescriptor parses a field descriptor or field Signature attribute.
func ParseFieldDescriptor(input string) (*Type[string], error) {
	if err := checkASCII(input); err != nil {
		return nil, err
	}
	t, n, err := ParseType(input)
	if err != nil {
		return nil, err
	}
	if n != len(input) {
		return nil, errUnexpected(input[n])
	}
	return t, nil
}

// ParseClassSignature parses a class Signature attribute. A java/lang/Object
// super class is recorded as absence.
func ParseClassSignature(input string) (*ClassSignature[string], error) {
	if err := checkASCII(input); err != nil {
		return nil, err
	}

	sig := &ClassSignature[string]{}
	index := 0
	if strings.HasPrefix(input, "<") {
		params, n, err := ParseTypeParameters(input)
		if err != nil {
			return nil, err
		}
		sig.TypeParameters = params
		index = n
	}

	var types []*Type[string]
	for index < len(input) {
		t, n, err := ParseType(input[index:])
		if err != nil {
			return nil, err
		}
		index += n
		types = append(types, t)
	}
	if len(types) == 0 {
		return nil, errEOF()
	}

	if !isObjectClass(types[0]) {
		sig.SuperClass = types[0]
	}
	if len(types) > 1 {
		sig.Interfaces = types[1:]
	}
	return sig, nil
}

// NewClassSignature builds a signature for a class without a Signature
// attribute from its super class and interface names.
func NewClassSignature(superClass string, interfaces []string) *ClassSignature[string] {
	sig := &ClassSignature[string]{}
	if superClass != "" && superClass != ObjectClassName && checkASCII(superClass) == nil {
		sig.SuperClass = Object(superClass)
	}
	for _, name := range interfaces {
		if checkASCII(name) == nil {
			sig.Interfaces = append(sig.Interfaces, Object(name))
		}
	}
	return sig
}

// ParseMethodSignature parses a method descriptor or Signature attribute.
// When the text declares no '^' exceptions, the names from the method's
// Exceptions attribute are used instead.
func ParseMethodSignature(input string, exceptions []string) (*MethodSignature[string], error) {
	if err := checkASCII(input); err != nil {
		return nil, err
	}

	sig := &MethodSignature[string]{}
	index := 0
	if strings.HasPrefix(input, "<") {
		params, n, err := ParseTypeParameters(input)
		if err != nil {
			return nil, err
		}
		sig.TypeParameters = params
		index = n
	}

	if index >= len(input) {
		return nil, errEOF()
	}
	if input[index] != '(' {
		return nil, errUnexpected(input[index])
	}
	index++

	for {
		if index >= len(input) {
			return nil, errEOF()
		}
		if input[index] == ')' {
			break
		}
		t, n, err := ParseType(input[index:])
		if err != nil {
			return nil, err
		}
		index += n
		sig.Parameters = append(sig.Parameters, t)
	}
	index++

	ret, n, err := ParseType(input[index:])
	if err != nil {
		return nil, err
	}
	index += n
	sig.Return = ret

	for index < len(input) && input[index] == '^' {
		index++
		t, n, err := ParseType(input[index:])
		if err != nil {
			return nil, err
		}
		index += n
		sig.Exceptions = append(sig.Exceptions, t)
	}

	if len(sig.Exceptions) == 0 {
		for _, name := range exceptions {
			if checkASCII(name) == nil {
				sig.Exceptions = append(sig.Exceptions, Object(name))
			}
		}
	}
	return sig, nil
}
