package model

// Document 聊天检索用的电影文档
type Document struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata 文档元数据，Tconst 必填
// Order 为电影在目录中的下标，检索得分相同时按它排序
type DocumentMetadata struct {
	Tconst string   `json:"tconst"`
	Order  int      `json:"order"`
	Title  string   `json:"title"`
	Year   int      `json:"year,omitempty"`
	Genres []string `json:"genres,omitempty"`
}

// DocumentFilter 检索时的元数据过滤，零值不过滤
type DocumentFilter struct {
	MaxYear int
	Genre   string
}

// Match 判断元数据是否满足过滤条件
// MaxYear 生效时，没有年份的文档不会命中
func (f DocumentFilter) Match(m DocumentMetadata) bool {
	if f.MaxYear > 0 && (m.Year == 0 || m.Year > f.MaxYear) {
		return false
	}
	if f.Genre != "" {
		for _, g := range m.Genres {
			if g == f.Genre {
				return true
			}
		}
		return false
	}
	return true
}

// ScoredDocument 带相似度的检索结果
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}
