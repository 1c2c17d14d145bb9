package hdf5

import (
	"fmt"
	"reflect"

	"github.com/sxyu/watplot/internal/blfile"
)

// flatten appends the numeric leaves of a (possibly nested) slice to dst in
// row-major order. Hyperslab reads come back flat; netCDF slices of a
// (time, 1, frequency) dataset come back as [][][]T.
func flatten(dst []float64, v interface{}) ([]float64, error) {
	switch x := v.(type) {
	case [][][]float32:
		for _, a := range x {
			for _, b := range a {
				for _, c := range b {
					dst = append(dst, float64(c))
				}
			}
		}
		return dst, nil
	case [][][]float64:
		for _, a := range x {
			for _, b := range a {
				dst = append(dst, b...)
			}
		}
		return dst, nil
	case []float32:
		for _, c := range x {
			dst = append(dst, float64(c))
		}
		return dst, nil
	case []float64:
		return append(dst, x...), nil
	}
	return flattenValue(dst, reflect.ValueOf(v))
}

func flattenValue(dst []float64, rv reflect.Value) ([]float64, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var err error
		for i := 0; i < rv.Len(); i++ {
			if dst, err = flattenValue(dst, rv.Index(i)); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case reflect.Float32, reflect.Float64:
		return append(dst, rv.Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return append(dst, float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return append(dst, float64(rv.Uint())), nil
	}
	return dst, fmt.Errorf("%w: unsupported sample type %s", blfile.ErrInvalidHeader, rv.Type())
}
