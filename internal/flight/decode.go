package flight

// RawVariable is a channel as it comes out of a Decoder: values widened to
// float64, attributes already passed through NormalizeUnits.
type RawVariable struct {
	Name       string
	Dimensions []string
	Values     []float64
	Attrs      map[string]any
}

// Table is the undecorated content of a backing file.
type Table struct {
	Global    map[string]any
	Variables []RawVariable
}

// Variable returns the named raw variable.
func (t *Table) Variable(name string) (*RawVariable, bool) {
	for i := range t.Variables {
		if t.Variables[i].Name == name {
			return &t.Variables[i], true
		}
	}
	return nil, false
}

// Decoder reads a self-describing backing file.
type Decoder interface {
	Decode(path string) (*Table, error)
	DecodeAttributes(path string) (map[string]any, error)
}
