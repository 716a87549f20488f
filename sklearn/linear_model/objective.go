package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/crashseverity/core/parallel"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// objective is the weighted, L2-regularized binary log-loss
//
//	f(θ) = Σ wᵢ·[log(1+e^zᵢ) − yᵢ·zᵢ] / Σ wᵢ + λ/2·‖β‖²,  zᵢ = β·xᵢ + b
//
// with θ = (β, b). The intercept is not regularized.
type objective struct {
	X            *mat.Dense
	y            []float64
	w            []float64
	lambda       float64
	fitIntercept bool
	workers      int
}

// partial holds one chunk's contribution.
type partial struct {
	loss float64
	grad []float64
}

// evaluate computes the loss and, when grad is non-nil, the gradient. Rows are
// split across workers; each chunk accumulates into its own partial.
func (o *objective) evaluate(grad, theta []float64) float64 {
	n, d := o.X.Dims()
	b := theta[d]
	if !o.fitIntercept {
		b = 0
	}

	parts := make([]partial, parallel.Chunks(n, o.workers))
	parallel.ParallelizeN(n, o.workers, func(chunk, start, end int) {
		p := partial{}
		if grad != nil {
			p.grad = make([]float64, d+1)
		}
		for i := start; i < end; i++ {
			row := o.X.RawRowView(i)
			z := b
			for j, x := range row {
				z += theta[j] * x
			}
			wi := o.w[i]
			p.loss += wi * (errors.Log1pExp(z) - o.y[i]*z)
			if p.grad != nil {
				r := wi * (errors.Sigmoid(z) - o.y[i])
				for j, x := range row {
					p.grad[j] += r * x
				}
				p.grad[d] += r
			}
		}
		parts[chunk] = p
	})

	var wsum float64
	for _, wi := range o.w {
		wsum += wi
	}

	var loss float64
	if grad != nil {
		for k := range grad {
			grad[k] = 0
		}
	}
	for _, p := range parts {
		loss += p.loss
		for k, g := range p.grad {
			grad[k] += g
		}
	}

	loss /= wsum
	var reg float64
	for j := 0; j < d; j++ {
		reg += theta[j] * theta[j]
	}
	loss += 0.5 * o.lambda * reg

	if grad != nil {
		for k := range grad {
			grad[k] /= wsum
		}
		for j := 0; j < d; j++ {
			grad[j] += o.lambda * theta[j]
		}
		if !o.fitIntercept {
			grad[d] = 0
		}
	}
	return loss
}

// Loss returns f(θ).
func (o *objective) Loss(theta []float64) float64 {
	return o.evaluate(nil, theta)
}

// LossGrad writes ∇f(θ) into grad and returns f(θ).
func (o *objective) LossGrad(grad, theta []float64) float64 {
	return o.evaluate(grad, theta)
}
