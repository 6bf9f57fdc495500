package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/user/cinevasion/internal/metrics"
	"github.com/user/cinevasion/internal/model"
)

// 数值特征列，顺序固定，之后是按字母排序的类型列
const (
	ColumnRating     = "averageRating"
	ColumnPopularity = "popularity"
	ColumnYear       = "year"
)

var numericColumns = []string{ColumnRating, ColumnPopularity, ColumnYear}

// FeatureMatrix 电影特征矩阵，行与 films 表下标一一对应
type FeatureMatrix struct {
	Columns     []string
	Rows        [][]float64
	GenreOffset int
	Fingerprint string
}

// Len 行数
func (m *FeatureMatrix) Len() int {
	return len(m.Rows)
}

// GenreColumns 类型列名
func (m *FeatureMatrix) GenreColumns() []string {
	return m.Columns[m.GenreOffset:]
}

// BuildFeatures 构建特征矩阵
//
// 数值列（评分、热度、年份）缺失时用该列已知值的中位数填充，再做稳健缩放；
// 整列都缺失时该列全部为 0。类型列为 one-hot。
func BuildFeatures(films []model.Film) (*FeatureMatrix, error) {
	if len(films) == 0 {
		return nil, model.NewDataError("build features", "film table is empty")
	}
	start := time.Now()
	defer func() {
		metrics.FeatureBuildDuration.Observe(time.Since(start).Seconds())
	}()

	raw := make([][]*float64, len(numericColumns))
	for c := range raw {
		raw[c] = make([]*float64, len(films))
	}
	for i := range films {
		f := &films[i]
		raw[0][i] = f.AverageRating
		raw[1][i] = f.Popularity
		if year, ok := f.Year(); ok {
			y := float64(year)
			raw[2][i] = &y
		}
	}

	scaled := make([][]float64, len(numericColumns))
	for c, column := range raw {
		scaled[c] = scaleColumn(column)
	}

	genreSet := make(map[string]struct{})
	filmGenres := make([][]string, len(films))
	for i := range films {
		filmGenres[i] = films[i].GenreList()
		for _, g := range filmGenres[i] {
			genreSet[g] = struct{}{}
		}
	}
	genres := make([]string, 0, len(genreSet))
	for g := range genreSet {
		genres = append(genres, g)
	}
	sort.Strings(genres)

	genreIndex := make(map[string]int, len(genres))
	for i, g := range genres {
		genreIndex[g] = i
	}

	offset := len(numericColumns)
	m := &FeatureMatrix{
		Columns:     append(append([]string(nil), numericColumns...), genres...),
		Rows:        make([][]float64, len(films)),
		GenreOffset: offset,
	}

	for i := range films {
		row := make([]float64, offset+len(genres))
		for c := range numericColumns {
			row[c] = scaled[c][i]
		}
		for _, g := range filmGenres[i] {
			row[offset+genreIndex[g]] = 1
		}
		for c, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &model.ComputationError{
					Op:  "build features",
					Err: fmt.Errorf("non-finite value in column %s for %s", m.Columns[c], films[i].Tconst),
				}
			}
		}
		m.Rows[i] = row
	}

	return m, nil
}

// scaleColumn 中位数填充缺失值后稳健缩放
func scaleColumn(column []*float64) []float64 {
	known := make([]float64, 0, len(column))
	for _, v := range column {
		if v != nil {
			known = append(known, *v)
		}
	}

	out := make([]float64, len(column))
	if len(known) == 0 {
		return out
	}

	scaler := FitRobustScaler(known)
	fill := median(known)
	for i, v := range column {
		x := fill
		if v != nil {
			x = *v
		}
		out[i] = scaler.Transform(x)
	}
	return out
}
