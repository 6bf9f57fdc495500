package service

import (
	"math"
	"sort"
)

// quantile 线性插值分位数（与 numpy 默认 linear 方法一致），sorted 必须已升序
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// RobustScaler 按中位数居中、按四分位距缩放
type RobustScaler struct {
	Center float64
	Scale  float64
}

// FitRobustScaler 用非缺失值拟合，values 为空时 Center=0, Scale=1
func FitRobustScaler(values []float64) RobustScaler {
	if len(values) == 0 {
		return RobustScaler{Center: 0, Scale: 1}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	scale := quantile(sorted, 0.75) - quantile(sorted, 0.25)
	// 四分位距为 0 时不缩放
	if scale == 0 {
		scale = 1
	}
	return RobustScaler{Center: quantile(sorted, 0.5), Scale: scale}
}

// Transform 缩放单个值
func (s RobustScaler) Transform(x float64) float64 {
	return (x - s.Center) / s.Scale
}

// median 中位数，values 会被排序
func median(values []float64) float64 {
	sort.Float64s(values)
	return quantile(values, 0.5)
}
