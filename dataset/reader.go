package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/crashseverity/core/parallel"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
)

// Pool is the Go memory allocator used by Arrow.
var Pool = memory.NewGoAllocator()

// DefaultChunkSize is the number of CSV rows per Arrow record batch.
const DefaultChunkSize = 4096

// ReadOptions controls CSV ingestion.
type ReadOptions struct {
	// ChunkSize is the number of rows per record batch. Zero means DefaultChunkSize.
	ChunkSize int
	// Source names the input in errors and logs.
	Source string
	// Logger receives progress records. Nil means the package logger.
	Logger log.Logger
	// Workers bounds how many files ReadPath parses at once. Zero means one
	// per CPU.
	Workers int
}

func (o ReadOptions) logger() log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.GetLoggerWithName("dataset")
}

// ReadCSV parses a CSV stream with a header line against CollisionSchema.
// Header names are not checked; columns are taken positionally. Empty cells
// are nulls. A value that does not parse as its declared type fails the read.
func ReadCSV(ctx context.Context, r io.Reader, opts ReadOptions) (*Frame, error) {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	source := opts.Source
	if source == "" {
		source = "<stream>"
	}

	rd := csv.NewReader(r, CollisionSchema,
		csv.WithHeader(true),
		csv.WithChunk(chunk),
		csv.WithNullReader(true, ""),
		csv.WithAllocator(Pool),
	)
	defer rd.Release()

	b := newFrameBuilder(CollisionSchema)
	for rd.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.appendRecord(rd.Record()); err != nil {
			return nil, errors.NewParseError(source, 0, err)
		}
	}
	if err := rd.Err(); err != nil {
		return nil, errors.NewParseError(source, 0, err)
	}
	return b.frame()
}

// ReadPath reads every CSV file named by paths, concurrently, and
// concatenates the rows in path order. A path may be a file, a directory (its *.csv entries, sorted)
// or a glob pattern.
func ReadPath(ctx context.Context, paths []string, opts ReadOptions) (*Frame, error) {
	files, err := ExpandPaths(paths)
	if err != nil {
		return nil, err
	}

	logger := opts.logger()
	frames := make([]*Frame, len(files))
	err = parallel.ForEach(ctx, len(files), opts.Workers, func(ctx context.Context, i int) error {
		start := time.Now()
		f, err := readFile(ctx, files[i], opts)
		if err != nil {
			return err
		}
		logger.Debug("CSV file read",
			log.SourceKey, files[i],
			log.SamplesKey, f.Nrow(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		frames[i] = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := EmptyFrame()
	for _, f := range frames {
		if out, err = out.Append(f); err != nil {
			return nil, err
		}
	}
	logger.Info("Dataset loaded", log.FilesKey, len(files), log.SamplesKey, out.Nrow())
	return out, nil
}

func readFile(ctx context.Context, path string, opts ReadOptions) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer fh.Close()
	opts.Source = path
	return ReadCSV(ctx, fh, opts)
}

// ExpandPaths resolves files, directories and glob patterns to a list of
// CSV files. It fails if a path does not exist or nothing matches.
func ExpandPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, errors.NewValueError("ExpandPaths", "no input paths")
	}
	var files []string
	for _, p := range paths {
		if strings.ContainsAny(p, "*?[") {
			matches, err := filepath.Glob(p)
			if err != nil {
				return nil, errors.Wrapf(err, "glob %s", p)
			}
			sort.Strings(matches)
			files = append(files, matches...)
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.csv"))
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", p)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, errors.NewValueError("ExpandPaths", "no CSV files matched "+strings.Join(paths, ", "))
	}
	return files, nil
}

// frameBuilder accumulates record batches column by column.
type frameBuilder struct {
	schema *arrow.Schema
	cols   [][]interface{}
}

func newFrameBuilder(schema *arrow.Schema) *frameBuilder {
	return &frameBuilder{
		schema: schema,
		cols:   make([][]interface{}, len(schema.Fields())),
	}
}

func (b *frameBuilder) appendRecord(rec arrow.Record) error {
	if int(rec.NumCols()) != len(b.cols) {
		return errors.NewDimensionError("ReadCSV", len(b.cols), int(rec.NumCols()), 1)
	}
	for i := range b.cols {
		switch col := rec.Column(i).(type) {
		case *array.Int32:
			for j := 0; j < col.Len(); j++ {
				if col.IsNull(j) {
					b.cols[i] = append(b.cols[i], nil)
				} else {
					b.cols[i] = append(b.cols[i], int(col.Value(j)))
				}
			}
		case *array.Float64:
			for j := 0; j < col.Len(); j++ {
				if col.IsNull(j) {
					b.cols[i] = append(b.cols[i], nil)
				} else {
					b.cols[i] = append(b.cols[i], col.Value(j))
				}
			}
		case *array.String:
			for j := 0; j < col.Len(); j++ {
				if col.IsNull(j) {
					b.cols[i] = append(b.cols[i], nil)
				} else {
					b.cols[i] = append(b.cols[i], col.Value(j))
				}
			}
		default:
			return errors.Newf("column %s: unsupported arrow type %s", b.schema.Field(i).Name, col.DataType())
		}
	}
	return nil
}

func (b *frameBuilder) frame() (*Frame, error) {
	cols := make([]series.Series, len(b.cols))
	for i, f := range b.schema.Fields() {
		vals := b.cols[i]
		if vals == nil {
			vals = []interface{}{}
		}
		cols[i] = series.New(vals, seriesType(f.Type), f.Name)
	}
	return NewFrame(dataframe.New(cols...))
}
