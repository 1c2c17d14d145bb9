package header

import (
	"fmt"
	"reflect"
)

// AttributeSource is a name-keyed collection of scalar attributes, such as
// the attributes attached to an HDF5 dataset. Keys may come back in any order.
type AttributeSource interface {
	Keys() []string
	Get(key string) (interface{}, bool)
}

// reservedAttributes are written by HDF5/netCDF tooling alongside the header
// keywords and carry no observation metadata.
var reservedAttributes = map[string]struct{}{
	"CLASS":               {},
	"VERSION":             {},
	"NAME":                {},
	"DIMENSION_LABELS":    {},
	"DIMENSION_LIST":      {},
	"REFERENCE_LIST":      {},
	"_Netcdf4Dimid":       {},
	"_Netcdf4Coordinates": {},
}

// FromAttributes builds a header from dataset attributes using the same
// keyword table as the flat format.
func FromAttributes(attrs AttributeSource) (Header, error) {
	h := New()
	for _, kwd := range attrs.Keys() {
		if _, skip := reservedAttributes[kwd]; skip {
			continue
		}
		kind, ok := KeywordKind(kwd)
		if !ok {
			return h, fmt.Errorf("%w: %q", ErrUnknownKeyword, kwd)
		}
		val, _ := attrs.Get(kwd)

		switch kind {
		case KindSentinel:
			// sentinels have no payload in attribute form
		case KindInt:
			v, err := attrFloat(kwd, val)
			if err != nil {
				return h, err
			}
			h.setInt(kwd, int(v))
		case KindFloat:
			v, err := attrFloat(kwd, val)
			if err != nil {
				return h, err
			}
			h.setFloat(kwd, v)
		case KindAngle:
			v, err := attrFloat(kwd, val)
			if err != nil {
				return h, err
			}
			h.setAngle(kwd, v)
		case KindString:
			v, err := attrString(kwd, val)
			if err != nil {
				return h, err
			}
			h.setString(kwd, v)
		}
	}
	return h, nil
}

// attrFloat coerces a numeric attribute (scalar or one-element slice) to float64.
func attrFloat(kwd string, val interface{}) (float64, error) {
	switch v := val.(type) {
	case int8:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}

	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice && rv.Len() == 1 {
		return attrFloat(kwd, rv.Index(0).Interface())
	}
	return 0, fmt.Errorf("%w: attribute %q has non-numeric type %T", ErrInvalidHeader, kwd, val)
}

func attrString(kwd string, val interface{}) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case []string:
		if len(v) == 1 {
			return v[0], nil
		}
	}
	return "", fmt.Errorf("%w: attribute %q has non-string type %T", ErrInvalidHeader, kwd, val)
}
