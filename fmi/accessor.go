package fmi

import (
	"fmt"
	"reflect"
	"slices"
)

// Accessor reads and writes the in-memory value behind one variable.
// Set must leave the value untouched when it returns an error.
type Accessor interface {
	Type() ValueType
	Get() any
	Set(value any) error
}

// scalar is the set of Go types an accessor can carry.
type scalar interface {
	float64 | int64 | bool | string
}

type pointerAccessor[T scalar] struct {
	p   *T
	typ ValueType
}

func (a pointerAccessor[T]) Type() ValueType { return a.typ }
func (a pointerAccessor[T]) Get() any        { return *a.p }

func (a pointerAccessor[T]) Set(value any) error {
	v, ok := value.(T)
	if !ok {
		return &TypeMismatchError{Expected: a.typ, Got: fmt.Sprintf("%T", value)}
	}
	*a.p = v
	return nil
}

// Float64 binds a Real variable to p.
func Float64(p *float64) Accessor { return pointerAccessor[float64]{p: p, typ: TypeReal} }

// Int binds an Integer or Enumeration variable to p.
func Int(p *int64) Accessor { return pointerAccessor[int64]{p: p, typ: TypeInteger} }

// Bool binds a Boolean variable to p.
func Bool(p *bool) Accessor { return pointerAccessor[bool]{p: p, typ: TypeBoolean} }

// Text binds a String variable to p.
func Text(p *string) Accessor { return pointerAccessor[string]{p: p, typ: TypeString} }

// sliceAccessor copies on both Get and Set so the host never aliases model memory.
type sliceAccessor[T float64 | int64] struct {
	p   *[]T
	typ ValueType
}

func (a sliceAccessor[T]) Type() ValueType { return a.typ }
func (a sliceAccessor[T]) Get() any        { return slices.Clone(*a.p) }

func (a sliceAccessor[T]) Set(value any) error {
	v, ok := value.([]T)
	if !ok {
		return &TypeMismatchError{Expected: a.typ, Got: fmt.Sprintf("%T", value)}
	}
	*a.p = slices.Clone(v)
	return nil
}

// Float64Slice binds a Real array variable to p.
func Float64Slice(p *[]float64) Accessor { return sliceAccessor[float64]{p: p, typ: TypeReal} }

// Int64Slice binds an Integer array variable to p.
func Int64Slice(p *[]int64) Accessor { return sliceAccessor[int64]{p: p, typ: TypeInteger} }

type funcAccessor[T scalar | []float64 | []int64] struct {
	get func() T
	set func(T)
	typ ValueType
}

func (a funcAccessor[T]) Type() ValueType { return a.typ }
func (a funcAccessor[T]) Get() any        { return a.get() }

func (a funcAccessor[T]) Set(value any) error {
	if a.set == nil {
		return &NotSettableError{Reason: "no setter bound"}
	}
	v, ok := value.(T)
	if !ok {
		return &TypeMismatchError{Expected: a.typ, Got: fmt.Sprintf("%T", value)}
	}
	a.set(v)
	return nil
}

// Func binds a variable to a getter and an optional setter. A nil setter
// makes the variable read-only for the host.
func Func[T scalar | []float64 | []int64](get func() T, set func(T)) Accessor {
	var zero T
	return funcAccessor[T]{get: get, set: set, typ: valueTypeOf(zero)}
}

func valueTypeOf(v any) ValueType {
	switch v.(type) {
	case int64, []int64:
		return TypeInteger
	case bool:
		return TypeBoolean
	case string:
		return TypeString
	}
	return TypeReal
}

// compatible reports whether an accessor of type acc may back a variable of type decl.
// Enumerations are carried as their item values.
func compatible(decl, acc ValueType) bool {
	return decl == acc || (decl == TypeEnumeration && acc == TypeInteger)
}

// fieldAccessors maps `fmi:"name"` tagged fields of the struct behind model
// to accessors. Fields of embedded structs, and of non-nil embedded struct
// pointers, are included. Untagged and unexported fields are ignored; a tag
// used twice is an error.
func fieldAccessors(model any) (map[string]Accessor, error) {
	out := make(map[string]Accessor)
	if model == nil {
		return out, nil
	}
	rv := reflect.ValueOf(model)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return out, nil
	}
	return out, collectFields(rv.Elem(), out)
}

func collectFields(rv reflect.Value, out map[string]Accessor) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get("fmi")
		if field.Anonymous && name == "" {
			if err := collectEmbedded(rv.Field(i), out); err != nil {
				return err
			}
			continue
		}
		if name == "" || name == "-" || !field.IsExported() {
			continue
		}
		if _, dup := out[name]; dup {
			return fmt.Errorf("field %s: tag %q already used by another field", field.Name, name)
		}
		fv := rv.Field(i).Addr().Interface()
		switch p := fv.(type) {
		case *float64:
			out[name] = Float64(p)
		case *int64:
			out[name] = Int(p)
		case *bool:
			out[name] = Bool(p)
		case *string:
			out[name] = Text(p)
		case *[]float64:
			out[name] = Float64Slice(p)
		case *[]int64:
			out[name] = Int64Slice(p)
		default:
			return fmt.Errorf("field %s tagged %q: unsupported type %s", field.Name, name, field.Type)
		}
	}
	return nil
}

// collectEmbedded walks an embedded struct or non-nil struct pointer.
func collectEmbedded(fv reflect.Value, out map[string]Accessor) error {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	if fv.Kind() != reflect.Struct || !fv.CanAddr() {
		return nil
	}
	return collectFields(fv, out)
}
