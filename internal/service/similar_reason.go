package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/user/cinevasion/internal/model"
)

// 推荐理由类型
const (
	ReasonDirector  = "director"
	ReasonActor     = "actor"
	ReasonGenre     = "genre"
	ReasonEraRating = "era_rating"
	ReasonEra       = "era"
	ReasonRating    = "rating"
	ReasonSemantic  = "semantic"
	ReasonGeneral   = "general"
)

// FilmProfile 生成推荐理由所需的电影信息
type FilmProfile struct {
	Film      *model.Film
	Directors []string
	Actors    []string
}

// calculateOverlap 计算两个列表的重合度（重合数 / 较长列表长度）
func calculateOverlap(source, target []string) (float64, []string) {
	common := []string{}
	for _, s := range source {
		for _, t := range target {
			if s == t && s != "" && !contains(common, s) {
				common = append(common, s)
			}
		}
	}

	maxLen := math.Max(float64(len(source)), float64(len(target)))
	if maxLen == 0 {
		return 0, common
	}
	return float64(len(common)) / maxLen, common
}

// calculateRatingSimilarity 计算评分相似度，任一评分缺失时为 0
func calculateRatingSimilarity(source, target *float64) float64 {
	if source == nil || target == nil {
		return 0
	}
	// 评分差异越小，相似度越高
	similarity := 1 - math.Abs(*source-*target)/10.0
	return math.Max(0, similarity)
}

// calculateEraSimilarity 计算年代相似度
func calculateEraSimilarity(sourceYear, targetYear int) float64 {
	if sourceYear == 0 || targetYear == 0 {
		return 0.5 // 年份未知，返回中等相似度
	}

	yearDiff := math.Abs(float64(sourceYear - targetYear))
	switch {
	case yearDiff <= 1:
		return 1.0
	case yearDiff <= 3:
		return 0.8
	case yearDiff <= 5:
		return 0.6
	case yearDiff <= 10:
		return 0.4
	default:
		return 0.2
	}
}

// 核心类型，按体验分组
var (
	mindBenderGenres = []string{"Science Fiction", "Mystery", "Thriller"}
	thrillGenres     = []string{"Action", "War", "Adventure"}
	feelingGenres    = []string{"Comedy", "Romance", "Family"}
	coreGenres       = append(append(append([]string{"Drama", "History", "Horror", "Crime", "Animation"},
		mindBenderGenres...), thrillGenres...), feelingGenres...)
)

// GenerateRecommendationReason 生成推荐理由（基于优先级算法）
// 返回理由、理由类型和综合相似度
func GenerateRecommendationReason(source, target FilmProfile) (string, string, float64) {
	sourceYear, _ := source.Film.Year()
	targetYear, _ := target.Film.Year()

	genreSimilarity, commonGenres := calculateOverlap(source.Film.GenreList(), target.Film.GenreList())
	directorSimilarity, commonDirectors := calculateOverlap(source.Directors, target.Directors)
	actorSimilarity, commonActors := calculateOverlap(source.Actors, target.Actors)
	ratingSimilarity := calculateRatingSimilarity(source.Film.AverageRating, target.Film.AverageRating)
	eraSimilarity := calculateEraSimilarity(sourceYear, targetYear)

	totalSimilarity := genreSimilarity*0.4 +
		directorSimilarity*0.25 +
		actorSimilarity*0.2 +
		ratingSimilarity*0.1 +
		eraSimilarity*0.05

	// 1. 最高优先级：同导演
	if directorSimilarity > 0.5 && len(commonDirectors) > 0 {
		return fmt.Sprintf("Également réalisé par %s, avec la même signature",
			strings.Join(commonDirectors, " & ")), ReasonDirector, totalSimilarity
	}

	// 2. 同主演
	if actorSimilarity > 0.3 && len(commonActors) > 0 {
		return fmt.Sprintf("On retrouve %s au casting", commonActors[0]), ReasonActor, totalSimilarity
	}

	// 3. 核心类型重合
	coreCommon := []string{}
	for _, g := range commonGenres {
		if contains(coreGenres, g) {
			coreCommon = append(coreCommon, g)
		}
	}
	if len(coreCommon) > 0 {
		genreDesc := strings.Join(coreCommon, " / ")
		var reason string
		switch {
		case containsAny(coreCommon, mindBenderGenres):
			reason = fmt.Sprintf("Un autre %s marquant, tout aussi vertigineux", genreDesc)
		case containsAny(coreCommon, thrillGenres):
			reason = fmt.Sprintf("Un autre %s marquant, avec la même tension", genreDesc)
		case containsAny(coreCommon, feelingGenres):
			reason = fmt.Sprintf("Un autre %s marquant, avec la même émotion", genreDesc)
		default:
			reason = fmt.Sprintf("Un autre %s marquant, dans un style proche", genreDesc)
		}
		return reason, ReasonGenre, totalSimilarity
	}

	// 4. 年代 + 评分接近
	if eraSimilarity > 0.6 && ratingSimilarity > 0.7 {
		yearRange := fmt.Sprintf("vers %d", sourceYear)
		if sourceYear != targetYear {
			yearRange = fmt.Sprintf("%d-%d", min(sourceYear, targetYear), max(sourceYear, targetYear))
		}
		return fmt.Sprintf("Deux films salués de %s (notés %.1f et %.1f)",
			yearRange, *source.Film.AverageRating, *target.Film.AverageRating), ReasonEraRating, totalSimilarity
	}

	// 5. 仅年代接近（年份未知时 eraSimilarity 为 0.5，不会进入）
	if eraSimilarity > 0.6 {
		return fmt.Sprintf("Un autre classique des environs de %d", sourceYear), ReasonEra, totalSimilarity
	}

	// 6. 仅评分接近
	if ratingSimilarity > 0.8 {
		return fmt.Sprintf("Tout aussi bien noté (%.1f et %.1f)",
			*source.Film.AverageRating, *target.Film.AverageRating), ReasonRating, totalSimilarity
	}

	// 7. 关键词重合
	if _, commonKeywords := calculateOverlap(splitKeywords(source.Film.Keywords), splitKeywords(target.Film.Keywords)); len(commonKeywords) > 0 {
		if len(commonKeywords) > 3 {
			commonKeywords = commonKeywords[:3]
		}
		return fmt.Sprintf("Des thèmes voisins : %s", strings.Join(commonKeywords, ", ")), ReasonSemantic, totalSimilarity
	}

	return "Proche par le genre, l'époque, la note et la popularité", ReasonGeneral, totalSimilarity
}

// splitKeywords 关键词按逗号切分并转小写
func splitKeywords(keywords string) []string {
	parts := model.ParseGenres(keywords)
	for i := range parts {
		parts[i] = strings.ToLower(parts[i])
	}
	return parts
}

// contains 检查字符串是否在切片中
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func containsAny(slice, items []string) bool {
	for _, item := range items {
		if contains(slice, item) {
			return true
		}
	}
	return false
}
