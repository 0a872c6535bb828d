package schema

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// GoMapper is implemented by ordered-map host values that can present
// themselves as a Go map. It lets map-typed struct fields accept them.
type GoMapper interface {
	GoMap() (map[any]any, error)
}

var (
	validate     = newValidator()
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
	emptyStruct  = reflect.TypeOf(struct{}{})
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, skip := wireName(sf)
		if skip {
			return ""
		}
		return name
	})
	return v
}

// Build validates fields against the schema and constructs a new value.
// It returns a pointer to the struct.
//
// Steps, in order:
//  1. Unknown field names are rejected
//  2. Absent fields take their default, or are rejected when required
//  3. Each field is decoded into its Go type (mapstructure, strict typing)
//  4. Struct tags are validated (validator/v10)
//  5. CUE constraints, if any, are checked against the constructed value
//
// Every failure is reported as a *ValidationError.
func (s *Schema) Build(fields map[string]any) (any, error) {
	verr := &ValidationError{Type: s.Type.String()}

	for name := range fields {
		if _, ok := s.byName[name]; !ok {
			verr.Add(name, "unknown field")
		}
	}

	out := reflect.New(s.Type)
	for _, f := range s.Fields {
		raw, present := fields[f.Name]
		if !present {
			if !f.HasDefault {
				if f.Required {
					verr.Add(f.Name, "missing required field")
				}
				continue
			}
			def, err := parseDefault(f.Type, f.Default)
			if err != nil {
				verr.Add(f.Name, fmt.Sprintf("bad default %q: %v", f.Default, err))
				continue
			}
			raw = def
		}
		if err := decodeField(raw, out.Elem().Field(f.Index)); err != nil {
			verr.Add(f.Name, err.Error())
		}
	}
	if verr.HasProblems() {
		return nil, verr
	}

	if err := validate.Struct(out.Interface()); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			verr.Add("", err.Error())
			return nil, verr
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), describeRule(fe))
		}
		return nil, verr
	}

	if s.constraints != "" {
		flat, err := s.Flatten(out.Interface())
		if err != nil {
			return nil, err
		}
		if problems := checkConstraints(s.constraints, flat); len(problems) > 0 {
			verr.Problems = append(verr.Problems, problems...)
			return nil, verr
		}
	}

	return out.Interface(), nil
}

// decodeField converts a decoded host value into the field's Go type.
func decodeField(raw any, field reflect.Value) error {
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      field.Addr().Interface(),
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bigIntHook,
			goMapHook,
			setToMapHook,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// bigIntHook narrows a decoded *big.Int into an integer-kinded target.
func bigIntHook(from, to reflect.Type, data any) (any, error) {
	b, ok := data.(*big.Int)
	if !ok || b == nil {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !b.IsInt64() || reflect.Zero(to).OverflowInt(b.Int64()) {
			return nil, fmt.Errorf("%s overflows %s", b, to)
		}
		return b.Int64(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if !b.IsUint64() || reflect.Zero(to).OverflowUint(b.Uint64()) {
			return nil, fmt.Errorf("%s overflows %s", b, to)
		}
		return b.Uint64(), nil
	default:
		return data, nil
	}
}

// goMapHook unwraps ordered-map host values for map-typed targets.
func goMapHook(from, to reflect.Type, data any) (any, error) {
	gm, ok := data.(GoMapper)
	if !ok || to.Kind() != reflect.Map {
		return data, nil
	}
	return gm.GoMap()
}

// setToMapHook turns a decoded set (a slice) into a map[K]struct{}.
func setToMapHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Map || to.Elem() != emptyStruct || from.Kind() != reflect.Slice {
		return data, nil
	}
	rv := reflect.ValueOf(data)
	out := make(map[any]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if elem != nil && !reflect.TypeOf(elem).Comparable() {
			return nil, fmt.Errorf("set element %T is not comparable", elem)
		}
		out[elem] = struct{}{}
	}
	return out, nil
}

// parseDefault converts a default tag into a value of type t.
func parseDefault(t reflect.Type, s string) (any, error) {
	var (
		v   any
		err error
	)
	switch {
	case t == durationType:
		v, err = cast.ToDurationE(s)
	case t == timeType:
		v, err = cast.ToTimeE(s)
	default:
		switch t.Kind() {
		case reflect.String:
			v = s
		case reflect.Bool:
			v, err = cast.ToBoolE(s)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			v, err = cast.ToInt64E(s)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			v, err = cast.ToUint64E(s)
		case reflect.Float32, reflect.Float64:
			v, err = cast.ToFloat64E(s)
		case reflect.Slice:
			if t.Elem().Kind() != reflect.String {
				return nil, fmt.Errorf("no default parser for %s", t)
			}
			v, err = cast.ToStringSliceE(s)
		default:
			return nil, fmt.Errorf("no default parser for %s", t)
		}
	}
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().ConvertibleTo(t) {
		return nil, fmt.Errorf("default %q is not convertible to %s", s, t)
	}
	return rv.Convert(t).Interface(), nil
}

func describeRule(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("failed %q rule (%s)", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed %q rule", fe.Tag())
}
