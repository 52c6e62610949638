package calibrate

import (
	"encoding/json"
	"io"
	"math"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

// Document is the JSON form of a dataset exchanged with a calibration
// command. Numeric data is flattened row-major with null for missing values.
type Document struct {
	Attrs    map[string]string      `json:"attrs,omitempty"`
	PingTime []string               `json:"ping_time"`
	Coords   map[string][]string    `json:"coords"`
	Vars     map[string]DocVariable `json:"data_vars"`
}

// DocVariable is one variable of a Document. Exactly one of Values or
// Strings is set, as Dtype says.
type DocVariable struct {
	Dims    []string          `json:"dims"`
	Dtype   string            `json:"dtype"`
	Values  []*float64        `json:"values,omitempty"`
	Strings []string          `json:"strings,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Dtypes of DocVariable.
const (
	DtypeFloat  = "float64"
	DtypeString = "str"
)

// Decode reads a Document from r and converts it to a dataset.
func Decode(r io.Reader) (*echo.Dataset, error) {
	doc := &Document{}
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "decoding dataset document")
	}
	return doc.Dataset()
}

// Dataset converts the Document.
func (doc *Document) Dataset() (*echo.Dataset, error) {
	ds := echo.NewDataset()
	for k, v := range doc.Attrs {
		ds.Attrs[k] = v
	}
	for _, s := range doc.PingTime {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing ping time '%s'", s)
		}
		ds.PingTime = append(ds.PingTime, t.UTC())
	}
	for dim, labels := range doc.Coords {
		if dim == echo.PingTime {
			continue
		}
		ds.Coords[dim] = labels
	}
	for name, dv := range doc.Vars {
		v := &echo.Variable{Dims: dv.Dims, Attrs: dv.Attrs}
		switch dv.Dtype {
		case DtypeString:
			v.Strings = dv.Strings
			if v.Strings == nil {
				v.Strings = []string{}
			}
		case DtypeFloat, "":
			v.Values = make([]float64, len(dv.Values))
			for i, p := range dv.Values {
				if p == nil {
					v.Values[i] = math.NaN()
				} else {
					v.Values[i] = *p
				}
			}
		default:
			return nil, errors.Errorf("variable %s has unsupported dtype '%s'", name, dv.Dtype)
		}
		ds.Vars[name] = v
	}
	if err := ds.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating dataset document")
	}
	return ds, nil
}

// NewDocument converts ds to a Document.
func NewDocument(ds *echo.Dataset) *Document {
	doc := &Document{
		Attrs:  ds.Attrs,
		Coords: ds.Coords,
		Vars:   make(map[string]DocVariable, len(ds.Vars)),
	}
	for _, t := range ds.PingTime {
		doc.PingTime = append(doc.PingTime, t.UTC().Format(time.RFC3339Nano))
	}
	for name, v := range ds.Vars {
		dv := DocVariable{Dims: v.Dims, Attrs: v.Attrs}
		if v.IsText() {
			dv.Dtype, dv.Strings = DtypeString, v.Strings
		} else {
			dv.Dtype = DtypeFloat
			dv.Values = make([]*float64, len(v.Values))
			for i := range v.Values {
				if !math.IsNaN(v.Values[i]) {
					dv.Values[i] = &v.Values[i]
				}
			}
		}
		doc.Vars[name] = dv
	}
	return doc
}
