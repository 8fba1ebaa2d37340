// Package stats provides the small set of statistical primitives the
// correlation engine needs: sample mean/stddev, Pearson's r, and its
// two-tailed significance under the t distribution.
package stats

import "math"

// Mean returns the arithmetic mean of vals, 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// StdDev returns the sample standard deviation (n−1 denominator), 0 when
// fewer than two values are given.
func StdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := Mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

// Pearson computes Pearson's correlation coefficient between x and y and the
// two-tailed p-value of the hypothesis r == 0. ok is false when the inputs
// are too short, mismatched, or degenerate (zero variance in either series);
// degenerate series are excluded from analysis rather than reported as r=0.
func Pearson(x, y []float64) (r, p float64, ok bool) {
	n := len(x)
	if n != len(y) || n < 3 {
		return 0, 0, false
	}

	mx, my := Mean(x), Mean(y)
	var num, dx2, dy2 float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		num += dx * dy
		dx2 += dx * dx
		dy2 += dy * dy
	}

	denom := math.Sqrt(dx2 * dy2)
	if denom == 0 {
		return 0, 0, false
	}

	r = num / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}

	// t-statistic with n-2 degrees of freedom.
	df := float64(n - 2)
	if 1-r*r <= 0 {
		// Perfect correlation: p is exactly 0.
		return r, 0, true
	}
	t := r * math.Sqrt(df/(1-r*r))
	p = tTestTwoTailed(t, df)
	return r, p, true
}

// tTestTwoTailed returns P(|T| >= |t|) for a Student's t variable with df
// degrees of freedom, via the regularized incomplete beta function:
// p = I_{df/(df+t²)}(df/2, 1/2).
func tTestTwoTailed(t, df float64) float64 {
	x := df / (df + t*t)
	p := regIncBeta(df/2, 0.5, x)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// regIncBeta computes the regularized incomplete beta function I_x(a, b)
// using the continued-fraction expansion (Numerical Recipes 6.4).
func regIncBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lnFront := lnGamma(a+b) - lnGamma(a) - lnGamma(b) +
		a*math.Log(x) + b*math.Log(1-x)
	front := math.Exp(lnFront)

	// The continued fraction converges fastest for x < (a+1)/(a+b+2);
	// otherwise use the symmetry I_x(a,b) = 1 − I_{1−x}(b,a).
	if x < (a+1)/(a+b+2) {
		return front * betaCF(a, b, x) / a
	}
	return 1 - regIncBeta(b, a, 1-x)
}

// betaCF evaluates the continued fraction for the incomplete beta function
// by the modified Lentz method.
func betaCF(a, b, x float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
		fpmin   = 1e-300
	)

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < fpmin {
		d = fpmin
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}

func lnGamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
