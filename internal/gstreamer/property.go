package gstreamer

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// PropertyKind is the value type a property stores.
type PropertyKind int

const (
	KindString PropertyKind = iota
	KindBool
	KindInt
	KindUint64
	KindFault
)

// String returns the string representation of PropertyKind
func (k PropertyKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint64:
		return "uint64"
	case KindFault:
		return "state-error"
	default:
		return "unknown"
	}
}

// PropertySpec describes one property of an element type.
type PropertySpec struct {
	Name     string       `json:"name"`
	Kind     PropertyKind `json:"-"`
	Default  any          `json:"default"`
	Writable bool         `json:"writable"`
	Blurb    string       `json:"blurb"`
}

// PropStateError is the fault-injection property.
const PropStateError = "state-error"

// convert coerces value to the spec's kind using the same scalar rules the
// element factory applies to configuration values.
func (p PropertySpec) convert(value any) (any, error) {
	if value == nil {
		return p.Default, nil
	}

	switch p.Kind {
	case KindFault:
		return ParseFault(value)
	case KindString:
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
		return fmt.Sprint(value), nil
	}

	rv := reflect.ValueOf(value)
	switch p.Kind {
	case KindBool:
		switch rv.Kind() {
		case reflect.Bool:
			return rv.Bool(), nil
		case reflect.String:
			b, err := strconv.ParseBool(rv.String())
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to bool", rv.String())
			}
			return b, nil
		}
	case KindInt:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n := rv.Int()
			if n < math.MinInt || n > math.MaxInt {
				return nil, fmt.Errorf("cannot convert %d to int: out of range", n)
			}
			return int(n), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := rv.Uint()
			if u > math.MaxInt {
				return nil, fmt.Errorf("cannot convert %d to int: out of range", u)
			}
			return int(u), nil
		case reflect.Float32, reflect.Float64:
			// float64(math.MaxInt) rounds up to 2^63 on 64-bit platforms
			f := rv.Float()
			if f < math.MinInt || f >= float64(math.MaxInt) || f != math.Trunc(f) {
				return nil, fmt.Errorf("cannot convert %v to int", f)
			}
			return int(f), nil
		case reflect.String:
			n, err := strconv.Atoi(rv.String())
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to int", rv.String())
			}
			return n, nil
		}
	case KindUint64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if rv.Int() < 0 {
				return nil, fmt.Errorf("cannot convert %d to uint64", rv.Int())
			}
			return uint64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return rv.Uint(), nil
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f < 0 || f >= math.MaxUint64 || f != math.Trunc(f) {
				return nil, fmt.Errorf("cannot convert %v to uint64", f)
			}
			return uint64(f), nil
		case reflect.String:
			n, err := strconv.ParseUint(rv.String(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to uint64", rv.String())
			}
			return n, nil
		}
	}

	return nil, fmt.Errorf("unsupported value type %T for %s property", value, p.Kind)
}
