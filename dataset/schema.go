// Package dataset loads collision CSV files into typed in-memory frames.
//
// The column layout is declared once as an Arrow schema; CSV parsing is done
// by the Arrow CSV reader against that schema and the resulting record batches
// are materialized as a gota DataFrame for column-level work.
package dataset

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-gota/gota/series"
)

// Column names of the collision CSV export.
const (
	ColIndex     = "Index"
	ColCrashDate = "CRASH DATE"
	ColCrashTime = "CRASH TIME"
	ColBorough   = "BOROUGH"
	ColZipCode   = "ZIP CODE"
	ColLatitude  = "LATITUDE"
	ColLongitude = "LONGITUDE"
	ColInjured   = "NUMBER OF PERSONS INJURED"
	ColKilled    = "NUMBER OF PERSONS KILLED"

	// ColSeverity is derived by the labeling package, not read from CSV.
	ColSeverity = "severity"
)

// CollisionSchema is the declared layout of every input file. Integer columns
// are 32-bit, coordinates are doubles and everything else is text. All fields
// are nullable; empty cells read as nulls.
var CollisionSchema = arrow.NewSchema([]arrow.Field{
	{Name: ColIndex, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: ColCrashDate, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: ColCrashTime, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: ColBorough, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: ColZipCode, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: ColLatitude, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: ColLongitude, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: ColInjured, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: ColKilled, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
}, nil)

// seriesType maps an Arrow field type to the gota series type that holds it.
func seriesType(dt arrow.DataType) series.Type {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return series.Int
	case arrow.FLOAT32, arrow.FLOAT64:
		return series.Float
	case arrow.BOOL:
		return series.Bool
	default:
		return series.String
	}
}
