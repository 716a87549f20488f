// Package report renders evaluation charts with gonum/plot.
package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// Supported output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

// Chart size.
var (
	Width  = 6 * vg.Inch
	Height = 6 * vg.Inch
)

var (
	curveColor  = color.RGBA{R: 255, G: 140, A: 255}
	chanceColor = color.RGBA{B: 128, A: 255}
)

// ContentType returns the MIME type for a chart format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

func checkFormat(format string) error {
	switch format {
	case FormatPNG, FormatSVG, FormatPDF:
		return nil
	}
	return errors.NewValidationError("format", "must be png, svg or pdf", format)
}

// Curve is a ROC curve as returned by metrics.ROCCurve.
type Curve struct {
	FPR []float64
	TPR []float64
}

// RenderROC draws the curve with the chance diagonal and the AUC in the
// legend. The curve must start at (0, 0) and end at (1, 1).
func RenderROC(c Curve, auc float64, format string) (io.WriterTo, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if len(c.FPR) < 2 || len(c.FPR) != len(c.TPR) {
		return nil, errors.NewDimensionError("RenderROC", len(c.FPR), len(c.TPR), 0)
	}

	p := plot.New()
	p.Title.Text = "Receiver Operating Characteristic"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(c.FPR))
	for i := range pts {
		pts[i].X = c.FPR[i]
		pts[i].Y = c.TPR[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "roc line")
	}
	curve.LineStyle.Width = vg.Points(2)
	curve.LineStyle.Color = curveColor

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, errors.Wrap(err, "chance line")
	}
	chance.LineStyle.Width = vg.Points(2)
	chance.LineStyle.Color = chanceColor
	chance.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(curve, chance)
	p.Legend.Add(fmt.Sprintf("ROC curve (area = %.2f)", auc), curve)
	p.Legend.Add("Chance", chance)
	p.Legend.Top = false
	p.Legend.Left = false
	p.Legend.XOffs = -vg.Points(10)
	p.Legend.YOffs = vg.Points(10)

	return p.WriterTo(Width, Height, format)
}

// ClassCounts holds the number of rows per severity label.
type ClassCounts struct {
	NotSevere int `json:"notSevere"`
	Severe    int `json:"severe"`
}

// RenderClassBalance draws grouped bars of the class counts before and after
// oversampling.
func RenderClassBalance(before, after ClassCounts, format string) (io.WriterTo, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Class balance"
	p.Y.Label.Text = "Rows"
	p.Y.Min = 0

	w := vg.Points(28)
	beforeBars, err := plotter.NewBarChart(plotter.Values{float64(before.NotSevere), float64(before.Severe)}, w)
	if err != nil {
		return nil, errors.Wrap(err, "before bars")
	}
	beforeBars.Color = chanceColor
	beforeBars.LineStyle.Width = 0
	beforeBars.Offset = -w / 2

	afterBars, err := plotter.NewBarChart(plotter.Values{float64(after.NotSevere), float64(after.Severe)}, w)
	if err != nil {
		return nil, errors.Wrap(err, "after bars")
	}
	afterBars.Color = curveColor
	afterBars.LineStyle.Width = 0
	afterBars.Offset = w / 2

	p.Add(beforeBars, afterBars)
	p.Legend.Add("before oversampling", beforeBars)
	p.Legend.Add("after oversampling", afterBars)
	p.Legend.Top = true
	p.NominalX("not severe (0)", "severe (1)")

	return p.WriterTo(Width, Height*2/3, format)
}
