package service

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern 至少两个字符的词
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TFIDFIndex 词袋 TF-IDF 索引（一元 + 二元词组，英文停用词，平滑 idf，L2 归一化）
type TFIDFIndex struct {
	vocab map[string]int
	idf   []float64
	docs  []map[int]float64
}

// TFIDFHit 检索命中
type TFIDFHit struct {
	Index int
	Score float64
}

// analyze 小写、分词、去停用词，再生成一元和二元词组
func analyze(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	kept := words[:0]
	for _, w := range words {
		if _, stop := englishStopWords[w]; !stop {
			kept = append(kept, w)
		}
	}

	terms := make([]string, 0, len(kept)*2)
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// BuildTFIDF 用语料构建索引，maxFeatures 按语料总词频截断词表（频次相同按字母序）
func BuildTFIDF(corpus []string, maxFeatures int) *TFIDFIndex {
	counts := make([]map[string]int, len(corpus))
	total := make(map[string]int)
	df := make(map[string]int)

	for i, text := range corpus {
		c := make(map[string]int)
		for _, term := range analyze(text) {
			c[term]++
		}
		for term, n := range c {
			total[term] += n
			df[term]++
		}
		counts[i] = c
	}

	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.SliceStable(terms, func(i, j int) bool {
			return total[terms[i]] > total[terms[j]]
		})
		terms = terms[:maxFeatures]
		sort.Strings(terms)
	}

	n := float64(len(corpus))
	idx := &TFIDFIndex{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
		docs:  make([]map[int]float64, len(corpus)),
	}
	for i, term := range terms {
		idx.vocab[term] = i
		idx.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	for i, c := range counts {
		idx.docs[i] = idx.weigh(c)
	}
	return idx
}

// VocabularySize 词表大小
func (x *TFIDFIndex) VocabularySize() int {
	return len(x.vocab)
}

// weigh 词频 * idf 后做 L2 归一化，词表外的词忽略
func (x *TFIDFIndex) weigh(counts map[string]int) map[int]float64 {
	vec := make(map[int]float64, len(counts))
	var norm float64
	for term, n := range counts {
		id, ok := x.vocab[term]
		if !ok {
			continue
		}
		w := float64(n) * x.idf[id]
		vec[id] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for id := range vec {
		vec[id] /= norm
	}
	return vec
}

// Query 余弦相似度大于 0 的文档，按得分降序（相同得分按文档顺序），最多 n 个
func (x *TFIDFIndex) Query(text string, n int) []TFIDFHit {
	if n <= 0 {
		return []TFIDFHit{}
	}
	counts := make(map[string]int)
	for _, term := range analyze(text) {
		counts[term]++
	}
	q := x.weigh(counts)
	if len(q) == 0 {
		return []TFIDFHit{}
	}

	hits := make([]TFIDFHit, 0)
	for i, doc := range x.docs {
		var dot float64
		for id, w := range q {
			dot += w * doc[id]
		}
		if dot > 0 {
			hits = append(hits, TFIDFHit{Index: i, Score: dot})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits
}
