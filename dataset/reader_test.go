package dataset

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

const sampleCSV = `Index,CRASH DATE,CRASH TIME,BOROUGH,ZIP CODE,LATITUDE,LONGITUDE,NUMBER OF PERSONS INJURED,NUMBER OF PERSONS KILLED
0,09/11/2021,2:39,,,40.667202,-73.8665,2,0
1,03/26/2022,11:45,BROOKLYN,11208,40.683304,-73.917274,1,0
2,06/29/2022,6:55,,,,,0,0
3,09/11/2021,9:35,BROOKLYN,11233,40.667202,-73.8665,7,4
`

func TestReadCSV(t *testing.T) {
	f, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), ReadOptions{Source: "sample", ChunkSize: 2})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if f.Nrow() != 4 {
		t.Fatalf("expected 4 rows, got %d", f.Nrow())
	}
	if got := f.Names(); len(got) != len(CollisionSchema.Fields()) || got[0] != ColIndex || got[8] != ColKilled {
		t.Errorf("unexpected columns %v", got)
	}

	lat, err := f.Float(ColLatitude)
	if err != nil {
		t.Fatal(err)
	}
	if lat[1] != 40.683304 {
		t.Errorf("lat[1] = %v", lat[1])
	}
	if !math.IsNaN(lat[2]) {
		t.Errorf("empty latitude should read as NaN, got %v", lat[2])
	}

	injured, valid, err := f.Ints(ColInjured)
	if err != nil {
		t.Fatal(err)
	}
	if injured[3] != 7 || !valid[3] {
		t.Errorf("injured[3] = %d (valid=%v)", injured[3], valid[3])
	}

	borough, bvalid, err := f.Strings(ColBorough)
	if err != nil {
		t.Fatal(err)
	}
	if bvalid[0] {
		t.Errorf("empty borough should be null, got %q", borough[0])
	}
	if borough[1] != "BROOKLYN" {
		t.Errorf("borough[1] = %q", borough[1])
	}

	zip, _, err := f.Strings(ColZipCode)
	if err != nil {
		t.Fatal(err)
	}
	if zip[1] != "11208" {
		t.Errorf("zip codes stay text, got %q", zip[1])
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	header := strings.SplitN(sampleCSV, "\n", 2)[0] + "\n"
	f, err := ReadCSV(context.Background(), strings.NewReader(header), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if f.Nrow() != 0 {
		t.Errorf("expected empty frame, got %d rows", f.Nrow())
	}
}

func TestReadCSV_BadValue(t *testing.T) {
	bad := strings.Replace(sampleCSV, "40.683304", "north", 1)
	_, err := ReadCSV(context.Background(), strings.NewReader(bad), ReadOptions{Source: "bad.csv"})
	if err == nil {
		t.Fatal("expected a parse error")
	}
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if pe.Source != "bad.csv" {
		t.Errorf("source = %q", pe.Source)
	}
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadCSV(ctx, strings.NewReader(sampleCSV), ReadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), sampleCSV)
	writeFile(t, filepath.Join(dir, "b.csv"), sampleCSV)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	tests := []struct {
		name    string
		paths   []string
		want    int
		wantErr bool
	}{
		{"directory", []string{dir}, 8, false},
		{"single file", []string{filepath.Join(dir, "a.csv")}, 4, false},
		{"glob", []string{filepath.Join(dir, "a*.csv")}, 4, false},
		{"missing", []string{filepath.Join(dir, "missing.csv")}, 0, true},
		{"no match", []string{filepath.Join(dir, "*.parquet")}, 0, true},
		{"empty", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadPath(context.Background(), tt.paths, ReadOptions{})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadPath failed: %v", err)
			}
			if f.Nrow() != tt.want {
				t.Errorf("rows = %d, want %d", f.Nrow(), tt.want)
			}
		})
	}
}

func TestExpandPaths_Sorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2022.csv"), sampleCSV)
	writeFile(t, filepath.Join(dir, "2021.csv"), sampleCSV)

	files, err := ExpandPaths([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "2021.csv" {
		t.Errorf("unexpected order %v", files)
	}
}
