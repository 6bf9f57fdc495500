package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/metrics"
	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/repository"
	"github.com/user/cinevasion/internal/utils"
	"golang.org/x/sync/singleflight"
)

// 搜索命中阶段
const (
	StagePerson = "person"
	StageField  = "field"
	StageTFIDF  = "tfidf"
	StageNone   = "none"
)

// DefaultMaxFeatures TF-IDF 词表上限
const DefaultMaxFeatures = 5000

// SearchResult 搜索结果
type SearchResult struct {
	Stage  string              `json:"stage"`
	Person *model.Person       `json:"person,omitempty"`
	Films  []model.FilmSummary `json:"films"`
}

// SearchService 电影搜索：人名 -> 字段子串 -> TF-IDF，前一阶段有结果即返回
type SearchService struct {
	catalog     *repository.CatalogRepository
	maxFeatures int
	cache       *utils.LRUCache[*SearchResult]

	sf    singleflight.Group
	mu    sync.RWMutex
	index *TFIDFIndex
}

// NewSearchService 创建搜索服务，cache 可为 nil
func NewSearchService(catalog *repository.CatalogRepository, maxFeatures int, cache *utils.LRUCache[*SearchResult]) *SearchService {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &SearchService{
		catalog:     catalog,
		maxFeatures: maxFeatures,
		cache:       cache,
	}
}

// Search 搜索电影
func (s *SearchService) Search(ctx context.Context, query string, n int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &model.ValidationError{Field: "query", Message: "must not be blank"}
	}
	if n <= 0 {
		return &SearchResult{Stage: StageNone, Films: []model.FilmSummary{}}, nil
	}

	key := fmt.Sprintf("%s|%d", strings.ToLower(query), n)
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			metrics.SearchCacheHits.Inc()
			return res, nil
		}
	}

	res, err := s.search(ctx, query, n)
	if err != nil {
		return nil, err
	}

	metrics.SearchStageTotal.WithLabelValues(res.Stage).Inc()
	if s.cache != nil {
		s.cache.Set(key, res)
	}
	return res, nil
}

func (s *SearchService) search(ctx context.Context, query string, n int) (*SearchResult, error) {
	// 1. 人名匹配：只取 people 表中第一个命中的人
	if person, ok := s.catalog.FindPersonByName(query); ok {
		indices := s.catalog.FilmIndicesForPerson(person.Nconst)
		if len(indices) > 0 {
			if len(indices) > n {
				indices = indices[:n]
			}
			p := *person
			return &SearchResult{Stage: StagePerson, Person: &p, Films: s.summaries(indices)}, nil
		}
	}

	// 2. 字段子串匹配
	if indices := s.fieldMatch(query, n); len(indices) > 0 {
		return &SearchResult{Stage: StageField, Films: s.summaries(indices)}, nil
	}

	// 3. TF-IDF
	index, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	hits := index.Query(query, n)
	if len(hits) == 0 {
		return &SearchResult{Stage: StageNone, Films: []model.FilmSummary{}}, nil
	}
	indices := make([]int, len(hits))
	for i, h := range hits {
		indices[i] = h.Index
	}
	return &SearchResult{Stage: StageTFIDF, Films: s.summaries(indices)}, nil
}

// fieldMatch 标题、简介、类型、关键词、标语、国家中任一字段包含查询串（大小写不敏感）
func (s *SearchService) fieldMatch(query string, n int) []int {
	needle := strings.ToLower(query)
	out := make([]int, 0, n)
	for i, f := range s.catalog.Films() {
		fields := [...]string{f.Title, f.Overview, f.Genres, f.Keywords, f.Tagline, f.OriginCountry}
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), needle) {
				out = append(out, i)
				break
			}
		}
		if len(out) >= n {
			break
		}
	}
	return out
}

// Index 返回 TF-IDF 索引，首次调用时构建
func (s *SearchService) Index(ctx context.Context) (*TFIDFIndex, error) {
	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()
	if index != nil {
		return index, nil
	}

	ch := s.sf.DoChan("tfidf", func() (interface{}, error) {
		start := time.Now()
		films := s.catalog.Films()
		corpus := make([]string, len(films))
		for i := range films {
			corpus[i] = SearchText(&films[i])
		}
		index := BuildTFIDF(corpus, s.maxFeatures)

		s.mu.Lock()
		s.index = index
		s.mu.Unlock()

		logger := logging.Component("search")
		logger.Info().
			Int("documents", len(corpus)).
			Int("vocabulary", index.VocabularySize()).
			Dur("elapsed", time.Since(start)).
			Msg("TF-IDF 索引构建完成")
		return index, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TFIDFIndex), nil
	}
}

// SearchText TF-IDF 使用的文本，简介重复三次以提高权重
func SearchText(f *model.Film) string {
	parts := []string{f.Title, f.Overview, f.Overview, f.Overview, f.Keywords, f.Genres, f.Tagline, f.OriginCountry}
	return strings.Join(parts, " ")
}

func (s *SearchService) summaries(indices []int) []model.FilmSummary {
	out := make([]model.FilmSummary, 0, len(indices))
	for _, i := range indices {
		out = append(out, s.catalog.FilmAt(i).Summary())
	}
	return out
}
