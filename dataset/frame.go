package dataset

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// Frame is an immutable table of collision rows. Operations return new frames.
type Frame struct {
	df dataframe.DataFrame
}

// NewFrame wraps a gota DataFrame, surfacing any error it carries.
func NewFrame(df dataframe.DataFrame) (*Frame, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dataframe")
	}
	return &Frame{df: df}, nil
}

// FromSeries builds a frame from equal-length columns.
func FromSeries(cols ...series.Series) (*Frame, error) {
	return NewFrame(dataframe.New(cols...))
}

// EmptyFrame returns a zero-row frame with the collision columns.
func EmptyFrame() *Frame {
	cols := make([]series.Series, 0, len(CollisionSchema.Fields()))
	for _, f := range CollisionSchema.Fields() {
		cols = append(cols, series.New([]interface{}{}, seriesType(f.Type), f.Name))
	}
	return &Frame{df: dataframe.New(cols...)}
}

// DataFrame exposes the underlying gota DataFrame.
func (f *Frame) DataFrame() dataframe.DataFrame { return f.df }

// Nrow returns the number of rows.
func (f *Frame) Nrow() int { return f.df.Nrow() }

// Names returns the column names in order.
func (f *Frame) Names() []string { return f.df.Names() }

// HasColumn reports whether the frame has a column called name.
func (f *Frame) HasColumn(name string) bool {
	for _, n := range f.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func (f *Frame) col(name string) (series.Series, error) {
	if !f.HasColumn(name) {
		return series.Series{}, errors.NewValueError("Frame", "unknown column "+name)
	}
	s := f.df.Col(name)
	if s.Err != nil {
		return series.Series{}, errors.Wrapf(s.Err, "column %s", name)
	}
	return s, nil
}

// Float returns a column as float64. Nulls become NaN.
func (f *Frame) Float(name string) ([]float64, error) {
	s, err := f.col(name)
	if err != nil {
		return nil, err
	}
	return s.Float(), nil
}

// Ints returns an integer column and a validity mask (false for nulls).
func (f *Frame) Ints(name string) ([]int, []bool, error) {
	s, err := f.col(name)
	if err != nil {
		return nil, nil, err
	}
	n := s.Len()
	vals := make([]int, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		v, err := e.Int()
		if err != nil {
			continue
		}
		vals[i] = v
		valid[i] = true
	}
	return vals, valid, nil
}

// Strings returns a text column and a validity mask (false for nulls).
func (f *Frame) Strings(name string) ([]string, []bool, error) {
	s, err := f.col(name)
	if err != nil {
		return nil, nil, err
	}
	n := s.Len()
	vals := make([]string, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		vals[i] = e.String()
		valid[i] = true
	}
	return vals, valid, nil
}

// WithColumn adds s as a column, replacing an existing column of the same name.
func (f *Frame) WithColumn(s series.Series) (*Frame, error) {
	if s.Len() != f.Nrow() {
		return nil, errors.NewDimensionError("Frame.WithColumn", f.Nrow(), s.Len(), 0)
	}
	return NewFrame(f.df.Mutate(s))
}

// Append returns the rows of f followed by the rows of other. Both frames
// must have the same columns.
func (f *Frame) Append(other *Frame) (*Frame, error) {
	if other.Nrow() == 0 {
		return f, nil
	}
	if f.Nrow() == 0 {
		return other, nil
	}
	return NewFrame(f.df.RBind(other.df))
}

// Subset returns the rows at the given positions, in that order.
func (f *Frame) Subset(rows []int) (*Frame, error) {
	if len(rows) == 0 {
		return f.emptyLike(), nil
	}
	return NewFrame(f.df.Subset(rows))
}

func (f *Frame) emptyLike() *Frame {
	cols := make([]series.Series, 0, f.df.Ncol())
	for _, name := range f.df.Names() {
		cols = append(cols, series.New([]interface{}{}, f.df.Col(name).Type(), name))
	}
	return &Frame{df: dataframe.New(cols...)}
}
