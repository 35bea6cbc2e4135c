package network

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

var (
	ErrUnknownKind   = errors.New("unknown message kind")
	ErrTruncated     = errors.New("message truncated")
	ErrMalformed     = errors.New("malformed message")
	ErrFieldOverflow = errors.New("field value exceeds its bit width")
)

type fieldKind uint8

const (
	fieldUint fieldKind = iota
	fieldBool
	fieldArray
	fieldString
)

type field struct {
	name  string
	index int
	kind  fieldKind
	width int // bits per value or per array element
}

type schema struct {
	typ       reflect.Type
	fields    []field
	fixedBits int
	tail      *field // implicit-length trailing field, if any
}

var schemas [kindCount]*schema

// register derives the schema of a message struct from its tags. Invalid
// schemas are programming errors and panic at init.
func register(msg Message) {
	t := reflect.TypeOf(msg)
	s := &schema{typ: t}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		f := field{name: sf.Name, index: i}
		if s.tail != nil {
			panic(fmt.Sprintf("network: %s.%s follows implicit-length field %s", t.Name(), sf.Name, s.tail.name))
		}

		switch {
		case sf.Type.Kind() == reflect.Bool:
			f.kind = fieldBool
		case sf.Type.Kind() >= reflect.Uint && sf.Type.Kind() <= reflect.Uint64:
			f.kind = fieldUint
		case sf.Type.Kind() == reflect.Slice && sf.Type.Elem().Kind() == reflect.Uint32:
			f.kind = fieldArray
		case sf.Type.Kind() == reflect.String:
			f.kind = fieldString
			f.width = 8
		default:
			panic(fmt.Sprintf("network: unsupported field type %s in %s", sf.Type, t.Name()))
		}

		if tag, ok := sf.Tag.Lookup("bits"); ok {
			w, err := strconv.Atoi(tag)
			if err != nil || w <= 0 || w > 32 {
				panic(fmt.Sprintf("network: bad bits tag %q on %s.%s", tag, t.Name(), sf.Name))
			}
			f.width = w
		}
		if f.width == 0 {
			panic(fmt.Sprintf("network: %s.%s has no bit width", t.Name(), sf.Name))
		}

		s.fields = append(s.fields, f)
		if f.kind == fieldArray || f.kind == fieldString {
			s.tail = &s.fields[len(s.fields)-1]
		} else {
			s.fixedBits += f.width
		}
	}
	schemas[msg.Kind()] = s
}

// Encode packs msg into its bit-exact wire form.
func Encode(msg Message) ([]byte, error) {
	k := msg.Kind()
	if k >= kindCount || schemas[k] == nil {
		return nil, ErrUnknownKind
	}
	s := schemas[k]
	v := reflect.ValueOf(msg)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	w := &bitWriter{}
	w.write(uint64(k), TypeBits)
	for _, f := range s.fields {
		fv := v.Field(f.index)
		switch f.kind {
		case fieldUint:
			if err := writeChecked(w, fv.Uint(), f); err != nil {
				return nil, err
			}
		case fieldBool:
			var b uint64
			if fv.Bool() {
				b = 1
			}
			w.write(b, f.width)
		case fieldArray:
			for i := 0; i < fv.Len(); i++ {
				if err := writeChecked(w, fv.Index(i).Uint(), f); err != nil {
					return nil, err
				}
			}
		case fieldString:
			str := fv.String()
			for i := 0; i < len(str); i++ {
				w.write(uint64(str[i]), f.width)
			}
		}
	}
	return w.bytes(), nil
}

func writeChecked(w *bitWriter, v uint64, f field) error {
	if v >= 1<<uint(f.width) {
		return fmt.Errorf("%w: %s=%d in %d bits", ErrFieldOverflow, f.name, v, f.width)
	}
	w.write(v, f.width)
	return nil
}

// Decode unpacks one message. The trailing implicit-length field takes every
// whole element left after the fixed fields; what remains must be the zero
// padding of the final byte.
//
// Elements narrower than a byte cannot be told apart from padding, so BOARD,
// CHORD, LOSE and HOLE payloads may carry trailing zero elements; consumers
// trim them to the length implied by the board or stop at the end unit.
func Decode(data []byte) (Message, error) {
	r := &bitReader{buf: data}
	if r.remaining() < TypeBits {
		return nil, ErrTruncated
	}
	k := Kind(r.read(TypeBits))
	if k >= kindCount || schemas[k] == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, k)
	}
	s := schemas[k]
	if r.remaining() < s.fixedBits {
		return nil, fmt.Errorf("%w: %s needs %d bits, have %d", ErrTruncated, k, s.fixedBits, r.remaining())
	}

	v := reflect.New(s.typ).Elem()
	for _, f := range s.fields {
		fv := v.Field(f.index)
		switch f.kind {
		case fieldUint:
			fv.SetUint(r.read(f.width))
		case fieldBool:
			fv.SetBool(r.read(f.width) != 0)
		case fieldArray:
			n := r.remaining() / f.width
			if n > 0 {
				arr := make([]uint32, n)
				for i := range arr {
					arr[i] = uint32(r.read(f.width))
				}
				fv.Set(reflect.ValueOf(arr))
			}
		case fieldString:
			n := r.remaining() / f.width
			buf := make([]byte, n)
			for i := range buf {
				buf[i] = byte(r.read(f.width))
			}
			fv.SetString(string(buf))
		}
	}

	if pad := r.remaining(); pad >= 8 || r.read(pad) != 0 {
		return nil, fmt.Errorf("%w: %s has %d unexplained trailing bits", ErrMalformed, k, pad)
	}
	return v.Interface().(Message), nil
}

// Bits returns the encoded size of msg in bits, before padding.
func Bits(msg Message) int {
	s := schemas[msg.Kind()]
	n := TypeBits + s.fixedBits
	if s.tail != nil {
		v := reflect.ValueOf(msg)
		if v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		n += v.Field(s.tail.index).Len() * s.tail.width
	}
	return n
}
