// Package netcdf reads NetCDF files through the netCDF-C library
// (github.com/fhs/go-netcdf).
package netcdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/sirupsen/logrus"

	"go.ngs.io/gridquery/internal/adapter/store/cf"
	"go.ngs.io/gridquery/internal/domain"
)

// Loader decodes NetCDF files with netCDF-C.
type Loader struct {
	log logrus.FieldLogger
}

// NewLoader creates a Loader. A nil logger discards log output.
func NewLoader(log logrus.FieldLogger) *Loader {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Loader{log: log}
}

// Load reads and decodes the file at path. Decode failures are returned as
// *domain.ReadError carrying the library's message.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, &domain.ReadError{Path: path, Err: err}
	}
	ds, err := cf.Assemble(f)
	if err != nil {
		return nil, &domain.ReadError{Path: path, Err: err}
	}
	l.log.WithFields(logrus.Fields{
		"path":      path,
		"dims":      len(ds.Dims),
		"coords":    len(ds.Coords),
		"variables": len(ds.Vars),
	}).Debug("decoded netcdf file")
	return ds, nil
}

// ReadFile reads every variable and attribute of a NetCDF file.
func ReadFile(path string) (cf.File, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return cf.File{}, err
	}
	defer func() { _ = nc.Close() }()

	out := cf.File{Path: path}
	out.Attrs, err = readGlobalAttrs(nc)
	if err != nil {
		return cf.File{}, err
	}

	nvars, err := nc.NVars()
	if err != nil {
		return cf.File{}, fmt.Errorf("failed to count variables: %w", err)
	}
	seen := make(map[string]bool)
	for i := 0; i < nvars; i++ {
		v := nc.VarN(i)
		rv, dims, err := readVar(v)
		if err != nil {
			return cf.File{}, err
		}
		// Dimensions are ordered by first use.
		for _, d := range dims {
			if !seen[d.Name] {
				seen[d.Name] = true
				out.Dims = append(out.Dims, d)
			}
		}
		out.Vars = append(out.Vars, rv)
	}
	return out, nil
}

func readVar(v netcdf.Var) (cf.Var, []domain.Dim, error) {
	name, err := v.Name()
	if err != nil {
		return cf.Var{}, nil, fmt.Errorf("failed to get variable name: %w", err)
	}
	ncDims, err := v.Dims()
	if err != nil {
		return cf.Var{}, nil, fmt.Errorf("variable %s: failed to get dimensions: %w", name, err)
	}
	rv := cf.Var{Name: name, Dims: make([]string, len(ncDims)), Shape: make([]int, len(ncDims))}
	dims := make([]domain.Dim, len(ncDims))
	for i, d := range ncDims {
		dn, err := d.Name()
		if err != nil {
			return cf.Var{}, nil, fmt.Errorf("variable %s: %w", name, err)
		}
		dl, err := d.Len()
		if err != nil {
			return cf.Var{}, nil, fmt.Errorf("variable %s: dimension %s: %w", name, dn, err)
		}
		rv.Dims[i], rv.Shape[i] = dn, int(dl)
		dims[i] = domain.Dim{Name: dn, Len: int(dl)}
	}

	rv.Attrs, err = readVarAttrs(v)
	if err != nil {
		return cf.Var{}, nil, fmt.Errorf("variable %s: %w", name, err)
	}
	rv.Data, err = readFloat64Var(v)
	if err != nil {
		return cf.Var{}, nil, fmt.Errorf("variable %s: %w", name, err)
	}
	if t, err := v.Type(); err == nil {
		rv.Single = t == netcdf.FLOAT
	}
	return rv, dims, nil
}

// readFloat64Var reads a variable of any numeric type as float64. Character
// and string variables return nil data.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	n, err := v.Len()
	if err != nil {
		return nil, fmt.Errorf("failed to get length: %w", err)
	}
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, n)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		return widen(v.ReadFloat32s, n)
	case netcdf.INT:
		return widen(v.ReadInt32s, n)
	case netcdf.SHORT:
		return widen(v.ReadInt16s, n)
	case netcdf.BYTE:
		return widen(v.ReadInt8s, n)
	case netcdf.UBYTE:
		return widen(v.ReadUint8s, n)
	case netcdf.USHORT:
		return widen(v.ReadUint16s, n)
	case netcdf.UINT:
		return widen(v.ReadUint32s, n)
	case netcdf.INT64:
		return widen(v.ReadInt64s, n)
	case netcdf.UINT64:
		return widen(v.ReadUint64s, n)
	case netcdf.CHAR, netcdf.STRING:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32
}

func widen[T number](read func([]T) error, n uint64) ([]float64, error) {
	tmp := make([]T, n)
	if err := read(tmp); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, val := range tmp {
		out[i] = float64(val)
	}
	return out, nil
}

func readVarAttrs(v netcdf.Var) (map[string]any, error) {
	n, err := v.NAttrs()
	if err != nil {
		return nil, fmt.Errorf("failed to count attributes: %w", err)
	}
	attrs := make(map[string]any, n)
	for i := 0; i < n; i++ {
		a, err := v.AttrN(i)
		if err != nil {
			return nil, err
		}
		if err := readAttr(a, attrs); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

func readGlobalAttrs(nc netcdf.Dataset) (map[string]any, error) {
	n, err := nc.NAttrs()
	if err != nil {
		return nil, fmt.Errorf("failed to count global attributes: %w", err)
	}
	attrs := make(map[string]any, n)
	for i := 0; i < n; i++ {
		a, err := nc.AttrN(i)
		if err != nil {
			return nil, err
		}
		if err := readAttr(a, attrs); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

// readAttr stores the value of a into attrs under its name. Text attributes
// become strings and numeric attributes typed slices. Attribute types the
// reader does not handle are skipped.
func readAttr(a netcdf.Attr, attrs map[string]any) error {
	name := a.Name()
	n, err := a.Len()
	if err != nil {
		return fmt.Errorf("attribute %s: %w", name, err)
	}
	t, err := a.Type()
	if err != nil {
		return fmt.Errorf("attribute %s: %w", name, err)
	}

	var val any
	switch t {
	case netcdf.CHAR:
		buf := make([]byte, n)
		err = a.ReadBytes(buf)
		val = strings.TrimRight(string(buf), "\x00")
	case netcdf.DOUBLE:
		buf := make([]float64, n)
		val, err = buf, a.ReadFloat64s(buf)
	case netcdf.FLOAT:
		buf := make([]float32, n)
		val, err = buf, a.ReadFloat32s(buf)
	case netcdf.INT:
		buf := make([]int32, n)
		val, err = buf, a.ReadInt32s(buf)
	case netcdf.SHORT:
		buf := make([]int16, n)
		val, err = buf, a.ReadInt16s(buf)
	case netcdf.BYTE:
		buf := make([]int8, n)
		val, err = buf, a.ReadInt8s(buf)
	case netcdf.INT64:
		buf := make([]int64, n)
		val, err = buf, a.ReadInt64s(buf)
	case netcdf.UBYTE:
		// Widened: a []uint8 value would read back as text.
		buf := make([]uint8, n)
		err = a.ReadUint8s(buf)
		wide := make([]uint16, n)
		for i, b := range buf {
			wide[i] = uint16(b)
		}
		val = wide
	case netcdf.USHORT:
		buf := make([]uint16, n)
		val, err = buf, a.ReadUint16s(buf)
	case netcdf.UINT:
		buf := make([]uint32, n)
		val, err = buf, a.ReadUint32s(buf)
	case netcdf.UINT64:
		buf := make([]uint64, n)
		val, err = buf, a.ReadUint64s(buf)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("attribute %s: %w", name, err)
	}
	attrs[name] = val
	return nil
}
