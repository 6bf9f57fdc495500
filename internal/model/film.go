package model

import (
	"strings"
	"time"
)

// Film 电影（films 表一行）
// 除 Tconst 外所有字段都可能缺失，缺失按零值或 nil 处理
type Film struct {
	Tconst         string     `json:"tconst"`
	Title          string     `json:"title"`
	ReleaseDate    *time.Time `json:"release_date,omitempty"`
	RawReleaseDate string     `json:"-"`
	Genres         string     `json:"genres"`
	AverageRating  *float64   `json:"average_rating,omitempty"`
	Popularity     *float64   `json:"popularity,omitempty"`
	Overview       string     `json:"overview"`
	OriginCountry  string     `json:"origin_country"`
	Keywords       string     `json:"keywords"`
	Tagline        string     `json:"tagline"`
	PosterPath     string     `json:"poster_path"`
	TrailerLink    string     `json:"trailer_link,omitempty"`
}

// Year 返回上映年份，日期缺失或无法解析时 ok 为 false
func (f *Film) Year() (int, bool) {
	if f.ReleaseDate == nil {
		return 0, false
	}
	return f.ReleaseDate.Year(), true
}

// GenreList 解析类型字符串
func (f *Film) GenreList() []string {
	return ParseGenres(f.Genres)
}

// Summary 转换为列表展示用的摘要
func (f *Film) Summary() FilmSummary {
	s := FilmSummary{
		Tconst:     f.Tconst,
		Title:      f.Title,
		PosterPath: f.PosterPath,
		Rating:     f.AverageRating,
		Genres:     f.GenreList(),
	}
	if year, ok := f.Year(); ok {
		s.Year = year
	}
	return s
}

// ParseGenres 按逗号切分类型并去除空白，空串返回空切片
func ParseGenres(genres string) []string {
	if strings.TrimSpace(genres) == "" {
		return []string{}
	}

	parts := strings.Split(genres, ",")
	result := make([]string, 0, len(parts))
	for _, genre := range parts {
		if trimmed := strings.TrimSpace(genre); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// FilmSummary 推荐/搜索接口返回的电影摘要
type FilmSummary struct {
	Tconst     string   `json:"tconst"`
	Title      string   `json:"title"`
	PosterPath string   `json:"poster_path"`
	Rating     *float64 `json:"rating"`
	Genres     []string `json:"genres"`
	Year       int      `json:"year,omitempty"`
}

// FilmDetail 电影详情（含导演和主演）
type FilmDetail struct {
	Film
	Year      int      `json:"year,omitempty"`
	Directors []Person `json:"directors"`
	Actors    []Person `json:"actors"`
}

// Recommendation 带距离和推荐理由的相似电影
type Recommendation struct {
	Film       FilmSummary `json:"film"`
	Distance   float64     `json:"distance"`
	Reason     string      `json:"reason"`
	ReasonType string      `json:"reason_type"`
}

// BrowseFilter 目录筛选条件，零值表示不限
type BrowseFilter struct {
	Decade  int    `form:"decade" binding:"omitempty,min=1800,max=2100"`
	Genre   string `form:"genre" binding:"omitempty,max=64"`
	Country string `form:"country" binding:"omitempty,max=64"`
	Rating  int    `form:"rating" binding:"omitempty,min=0,max=10"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Facets 筛选项
type Facets struct {
	Genres    []string `json:"genres"`
	Decades   []int    `json:"decades"`
	Countries []string `json:"countries"`
}
