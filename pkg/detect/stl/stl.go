// Package stl implements seasonal-trend decomposition by loess.
//
// Decompose splits an ordered, regularly spaced series into trend, seasonal,
// and residual components following Cleveland's STL procedure: cycle-subseries
// loess smoothing for the seasonal component, a moving-average low-pass filter
// to keep trend out of the seasonal estimate, and loess smoothing of the
// deseasonalized series for the trend. Optional robustness iterations
// down-weight outlying points so they do not distort the fit.
package stl

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Result holds the decomposition components. All three slices have the same
// length and ordering as the input series, and for every index i
// input[i] == Trend[i] + Seasonal[i] + Residual[i].
type Result struct {
	Trend    []float64
	Seasonal []float64
	Residual []float64
}

type config struct {
	seasonalWidth    int
	trendWidth       int
	lowPassWidth     int
	innerIterations  int
	robustIterations int
}

// Option configures a decomposition.
type Option func(*config)

// WithSeasonalWidth sets the loess window for cycle-subseries smoothing.
func WithSeasonalWidth(n int) Option {
	return func(c *config) {
		c.seasonalWidth = n
	}
}

// WithTrendWidth sets the loess window for trend smoothing.
func WithTrendWidth(n int) Option {
	return func(c *config) {
		c.trendWidth = n
	}
}

// WithLowPassWidth sets the loess window of the low-pass filter.
func WithLowPassWidth(n int) Option {
	return func(c *config) {
		c.lowPassWidth = n
	}
}

// WithInnerIterations sets the number of seasonal/trend fitting passes.
func WithInnerIterations(n int) Option {
	return func(c *config) {
		c.innerIterations = n
	}
}

// WithRobust enables robustness iterations that down-weight outliers
// during seasonal and trend estimation.
func WithRobust(robust bool) Option {
	return func(c *config) {
		if robust {
			c.robustIterations = 2
		} else {
			c.robustIterations = 0
		}
	}
}

// WithRobustIterations sets the exact number of robustness iterations.
func WithRobustIterations(n int) Option {
	return func(c *config) {
		c.robustIterations = n
	}
}

// SeasonalWidth returns the default seasonal smoothing window for a period:
// at least 7, and odd (period+1 when the period is even, otherwise period).
func SeasonalWidth(period int) int {
	w := period
	if w%2 == 0 {
		w++
	}
	if w < 7 {
		w = 7
	}
	return w
}

// Decompose splits values into trend, seasonal, and residual components with
// the given seasonal period. The series must be NaN-free and contain at
// least two full periods.
func Decompose(values []float64, period int, opts ...Option) (*Result, error) {
	if period < 2 {
		return nil, fmt.Errorf("seasonal period must be at least 2, got %d", period)
	}
	n := len(values)
	if n < 2*period {
		return nil, fmt.Errorf("need at least %d observations for period %d, have %d", 2*period, period, n)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("series contains NaN or Inf")
		}
	}

	cfg := config{
		seasonalWidth:   SeasonalWidth(period),
		innerIterations: 2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.seasonalWidth < 3 {
		cfg.seasonalWidth = 3
	}
	if cfg.trendWidth <= 0 {
		cfg.trendWidth = defaultTrendWidth(period, cfg.seasonalWidth)
	}
	if cfg.lowPassWidth <= 0 {
		cfg.lowPassWidth = nextOdd(period)
	}
	if cfg.innerIterations < 1 {
		cfg.innerIterations = 1
	}

	trend := make([]float64, n)
	seasonal := make([]float64, n)
	residual := make([]float64, n)
	detrended := make([]float64, n)
	deseason := make([]float64, n)
	var rho []float64

	for outer := 0; ; outer++ {
		for inner := 0; inner < cfg.innerIterations; inner++ {
			for i := range values {
				detrended[i] = values[i] - trend[i]
			}
			cycle := smoothSubseries(detrended, rho, period, cfg.seasonalWidth)
			low := lowPass(cycle, period, cfg.lowPassWidth)
			for i := range seasonal {
				seasonal[i] = cycle[i+period] - low[i]
			}
			for i := range values {
				deseason[i] = values[i] - seasonal[i]
			}
			trend = loessSmooth(deseason, rho, cfg.trendWidth)
		}
		for i := range values {
			residual[i] = values[i] - trend[i] - seasonal[i]
		}
		if outer >= cfg.robustIterations {
			break
		}
		rho = robustnessWeights(residual)
	}

	return &Result{Trend: trend, Seasonal: seasonal, Residual: residual}, nil
}

// smoothSubseries loess-smooths each cycle subseries of xs and extends it by
// one period at both ends. The returned slice has length len(xs)+2*period;
// index i corresponds to original position i-period.
func smoothSubseries(xs, rho []float64, period, width int) []float64 {
	n := len(xs)
	out := make([]float64, n+2*period)
	sub := make([]float64, 0, n/period+1)
	subRho := make([]float64, 0, n/period+1)

	for k := 0; k < period; k++ {
		sub = sub[:0]
		subRho = subRho[:0]
		for i := k; i < n; i += period {
			sub = append(sub, xs[i])
			if rho != nil {
				subRho = append(subRho, rho[i])
			}
		}
		var rw []float64
		if rho != nil {
			rw = subRho
		}
		m := len(sub)
		for j := -1; j <= m; j++ {
			out[k+(j+1)*period] = loessAt(sub, rw, width, float64(j))
		}
	}
	return out
}

// lowPass extracts the trend leakage from the extended cycle-subseries
// estimate: moving averages of length period, period, and 3, followed by a
// loess pass. The input has length n+2*period, the output length n.
func lowPass(cycle []float64, period, width int) []float64 {
	a := movingAverage(cycle, period)
	b := movingAverage(a, period)
	c := movingAverage(b, 3)
	return loessSmooth(c, nil, width)
}

func movingAverage(xs []float64, window int) []float64 {
	out := make([]float64, len(xs)-window+1)
	var sum float64
	for i := 0; i < window; i++ {
		sum += xs[i]
	}
	out[0] = sum / float64(window)
	for i := 1; i < len(out); i++ {
		sum += xs[i+window-1] - xs[i-1]
		out[i] = sum / float64(window)
	}
	return out
}

func loessSmooth(ys, rho []float64, width int) []float64 {
	out := make([]float64, len(ys))
	for i := range ys {
		out[i] = loessAt(ys, rho, width, float64(i))
	}
	return out
}

// loessAt evaluates a locally weighted linear fit of ys (at integer
// positions) at position x, using tricube distance weights over the nearest
// width points multiplied by the robustness weights rho (nil means all one).
// When width exceeds the series length, the normalization distance is
// stretched by width/n (Cleveland's lambda_q = lambda_n * q/n), so a wide
// window flattens the weights instead of zeroing the boundary points.
func loessAt(ys, rho []float64, width int, x float64) float64 {
	n := len(ys)
	if n == 1 {
		return ys[0]
	}
	if width < 2 {
		width = 2
	}
	span := width
	if span > n {
		span = n
	}

	left := int(math.Round(x)) - span/2
	if left < 0 {
		left = 0
	}
	if left+span > n {
		left = n - span
	}
	maxd := math.Max(x-float64(left), float64(left+span-1)-x)
	if width > n {
		maxd *= float64(width) / float64(n)
	}
	if maxd <= 0 {
		return ys[left]
	}

	var sw, swx, swy, swxx, swxy float64
	for i := left; i < left+span; i++ {
		d := math.Abs(float64(i)-x) / maxd
		w := tricube(d)
		if rho != nil {
			w *= rho[i]
		}
		if w <= 0 {
			continue
		}
		xi := float64(i) - x
		sw += w
		swx += w * xi
		swy += w * ys[i]
		swxx += w * xi * xi
		swxy += w * xi * ys[i]
	}
	if sw == 0 {
		// Every weighted point collapsed; average the window points the
		// robustness weights have not excluded.
		var s float64
		var cnt int
		for i := left; i < left+span; i++ {
			if rho != nil && rho[i] <= 0 {
				continue
			}
			s += ys[i]
			cnt++
		}
		if cnt == 0 {
			for i := left; i < left+span; i++ {
				s += ys[i]
			}
			cnt = span
		}
		return s / float64(cnt)
	}
	denom := sw*swxx - swx*swx
	if denom <= 1e-12*sw*swxx {
		return swy / sw
	}
	b := (sw*swxy - swx*swy) / denom
	return (swy - b*swx) / sw
}

func tricube(d float64) float64 {
	if d >= 1 {
		return 0
	}
	t := 1 - d*d*d
	return t * t * t
}

// robustnessWeights computes bisquare weights from residuals so that points
// far from the fit contribute less to the next iteration.
func robustnessWeights(residual []float64) []float64 {
	abs := make([]float64, len(residual))
	for i, r := range residual {
		abs[i] = math.Abs(r)
	}
	sorted := make([]float64, len(abs))
	copy(sorted, abs)
	sort.Float64s(sorted)
	med := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		med = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	rho := make([]float64, len(abs))
	h := 6 * med
	for i, a := range abs {
		if h == 0 || a < 1e-12*h {
			rho[i] = 1
			continue
		}
		u := a / h
		if u >= 1 {
			rho[i] = 0
			continue
		}
		t := 1 - u*u
		rho[i] = t * t
	}
	return rho
}

func defaultTrendWidth(period, seasonalWidth int) int {
	w := 1.5 * float64(period) / (1 - 1.5/float64(seasonalWidth))
	return nextOdd(int(math.Ceil(w)))
}

func nextOdd(n int) int {
	if n < 3 {
		return 3
	}
	if n%2 == 0 {
		return n + 1
	}
	return n
}
