package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/metrics"
	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/repository"
	"golang.org/x/sync/singleflight"
)

// DefaultGenreWeight 类型列默认放大倍数
const DefaultGenreWeight = 10.0

// Neighbor 近邻结果
type Neighbor struct {
	Index    int
	Distance float64
}

// RankSimilar 对参考电影做类型加权的欧氏距离近邻排序
//
// 参考电影所属类型的列在所有行上乘以 genreWeight，参考电影本身按下标排除；
// 其他距离为 0 的电影照常返回。距离相同按表中顺序。
func RankSimilar(m *FeatureMatrix, ref, n int, genreWeight float64) []Neighbor {
	if n <= 0 || ref < 0 || ref >= m.Len() {
		return []Neighbor{}
	}

	refRow := m.Rows[ref]
	weights := make([]float64, len(refRow))
	for c := range weights {
		weights[c] = 1
		if c >= m.GenreOffset && refRow[c] == 1 {
			weights[c] = genreWeight
		}
	}

	neighbors := make([]Neighbor, 0, m.Len()-1)
	for i, row := range m.Rows {
		if i == ref {
			continue
		}
		var sum float64
		for c, v := range row {
			d := (v - refRow[c]) * weights[c]
			sum += d * d
		}
		neighbors = append(neighbors, Neighbor{Index: i, Distance: math.Sqrt(sum)})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if len(neighbors) > n {
		neighbors = neighbors[:n]
	}
	return neighbors
}

// RecommendationService 基于内容特征的相似电影推荐
type RecommendationService struct {
	catalog     *repository.CatalogRepository
	genreWeight float64

	sf     singleflight.Group
	mu     sync.RWMutex
	matrix *FeatureMatrix
}

// NewRecommendationService 创建推荐服务
func NewRecommendationService(catalog *repository.CatalogRepository, genreWeight float64) *RecommendationService {
	if genreWeight <= 0 {
		genreWeight = DefaultGenreWeight
	}
	return &RecommendationService{
		catalog:     catalog,
		genreWeight: genreWeight,
	}
}

// Features 返回特征矩阵，首次调用时构建，并发调用只构建一次
func (s *RecommendationService) Features(ctx context.Context) (*FeatureMatrix, error) {
	fingerprint := s.catalog.Fingerprint()

	s.mu.RLock()
	m := s.matrix
	s.mu.RUnlock()
	if m != nil && m.Fingerprint == fingerprint {
		return m, nil
	}

	ch := s.sf.DoChan(fingerprint, func() (interface{}, error) {
		m, err := BuildFeatures(s.catalog.Films())
		if err != nil {
			return nil, err
		}
		m.Fingerprint = fingerprint

		s.mu.Lock()
		s.matrix = m
		s.mu.Unlock()

		logger := logging.Component("recommend")
		logger.Info().
			Int("films", m.Len()).
			Int("genres", len(m.GenreColumns())).
			Msg("特征矩阵构建完成")
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*FeatureMatrix), nil
	}
}

// Recommend 按标题推荐相似电影，同名电影取目录中的第一部
func (s *RecommendationService) Recommend(ctx context.Context, title string, n int) ([]model.Recommendation, error) {
	ref, err := s.catalog.FirstIndexByTitle(title)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}
	return s.recommendIndex(ctx, ref, n)
}

// RecommendByKey 按 tconst 推荐相似电影
func (s *RecommendationService) RecommendByKey(ctx context.Context, tconst string, n int) ([]model.Recommendation, error) {
	ref, ok := s.catalog.IndexOf(tconst)
	if !ok {
		metrics.RecommendationsTotal.WithLabelValues("not_found").Inc()
		return nil, model.NewNotFound("film", tconst)
	}
	return s.recommendIndex(ctx, ref, n)
}

func (s *RecommendationService) recommendIndex(ctx context.Context, ref, n int) ([]model.Recommendation, error) {
	if n <= 0 {
		return []model.Recommendation{}, nil
	}

	m, err := s.Features(ctx)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
		metrics.RecommendationsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}

	neighbors := RankSimilar(m, ref, n, s.genreWeight)
	source := s.profile(ref)

	out := make([]model.Recommendation, 0, len(neighbors))
	for _, nb := range neighbors {
		target := s.profile(nb.Index)
		reason, reasonType, _ := GenerateRecommendationReason(source, target)
		out = append(out, model.Recommendation{
			Film:       target.Film.Summary(),
			Distance:   nb.Distance,
			Reason:     reason,
			ReasonType: reasonType,
		})
	}

	metrics.RecommendationsTotal.WithLabelValues("ok").Inc()
	return out, nil
}

// profile 导演和前 5 位演员
func (s *RecommendationService) profile(i int) FilmProfile {
	film := s.catalog.FilmAt(i)
	return FilmProfile{
		Film:      film,
		Directors: personNames(s.catalog.PeopleFor(film.Tconst, 0, model.CategoryDirector)),
		Actors:    personNames(s.catalog.Cast(film.Tconst, 5)),
	}
}

func personNames(people []model.Person) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		names = append(names, p.PrimaryName)
	}
	return names
}
