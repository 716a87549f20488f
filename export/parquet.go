// Package export writes scored collision rows as Parquet.
package export

import (
	"bytes"
	"io"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// ContentType is the media type of the files written by WriteScoredParquet.
const ContentType = "application/vnd.apache.parquet"

// writerParallelism is the goroutine count parquet-go uses to encode a row group.
const writerParallelism = 4

// ScoredRow is one evaluated test row.
type ScoredRow struct {
	Index       int32   `parquet:"name=index, type=INT32"`
	Borough     string  `parquet:"name=borough, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Latitude    float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude   float64 `parquet:"name=longitude, type=DOUBLE"`
	Injured     int32   `parquet:"name=injured, type=INT32"`
	Killed      int32   `parquet:"name=killed, type=INT32"`
	Label       int32   `parquet:"name=label, type=INT32"`
	Probability float64 `parquet:"name=probability, type=DOUBLE"`
	Prediction  int32   `parquet:"name=prediction, type=INT32"`
}

// WriteScoredParquet encodes rows as a snappy-compressed Parquet file into w.
// The file is assembled in memory first so w only ever sees a complete file.
func WriteScoredParquet(w io.Writer, rows []ScoredRow) (err error) {
	defer errors.Recover(&err, "WriteScoredParquet")

	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewParquetWriter(pfw, new(ScoredRow), writerParallelism)
	if err != nil {
		return errors.Wrap(err, "create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return errors.Wrap(err, "finish parquet file")
	}
	_ = pfw.Close()

	if _, err := buf.WriteTo(w); err != nil {
		return errors.Wrap(err, "flush parquet file")
	}
	return nil
}

// EncodeScored is WriteScoredParquet into a fresh byte slice.
func EncodeScored(rows []ScoredRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteScoredParquet(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
