package flight

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// NetCDF decodes MASIN core files. Values are kept raw: no scale factors are
// applied and fill values are left for the loader to mask.
type NetCDF struct{}

func (NetCDF) Decode(path string) (*Table, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	t := &Table{Global: attributeMap(nc.Attributes())}
	for _, name := range nc.ListVariables() {
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read %s in %s: %w", name, path, err)
		}
		values, ok := widen(v.Values)
		if !ok {
			continue
		}
		t.Variables = append(t.Variables, RawVariable{
			Name:       name,
			Dimensions: v.Dimensions,
			Values:     values,
			Attrs:      NormalizeUnits(attributeMap(v.Attributes)),
		})
	}
	return t, nil
}

func (NetCDF) DecodeAttributes(path string) (map[string]any, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()
	return attributeMap(nc.Attributes()), nil
}

func attributeMap(am api.AttributeMap) map[string]any {
	out := map[string]any{}
	if am == nil {
		return out
	}
	for _, k := range am.Keys() {
		if v, ok := am.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// widen converts one-dimensional numeric arrays to float64. Strings and
// multi-dimensional arrays are reported as not convertible.
func widen(values any) ([]float64, bool) {
	switch x := values.(type) {
	case []float64:
		out := make([]float64, len(x))
		copy(out, x)
		return out, true
	case []float32:
		return convert(x), true
	case []int64:
		return convert(x), true
	case []int32:
		return convert(x), true
	case []int16:
		return convert(x), true
	case []int8:
		return convert(x), true
	case []uint64:
		return convert(x), true
	case []uint32:
		return convert(x), true
	case []uint16:
		return convert(x), true
	case []uint8:
		return convert(x), true
	}
	return nil, false
}

type number interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func convert[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
