package service

import (
	"strconv"
	"strings"

	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/repository"
	"github.com/user/cinevasion/internal/utils"
)

// DocumentActors 每部电影文档里列出的演员数
const DocumentActors = 5

const (
	notAvailable = "Non disponible"
	notSpecified = "Non spécifié"
)

// PrepareDocuments 为目录中每部电影生成一份检索文档，顺序与电影表一致
func PrepareDocuments(catalog *repository.CatalogRepository) []model.Document {
	docs := make([]model.Document, 0, catalog.Len())
	for i := 0; i < catalog.Len(); i++ {
		film := catalog.FilmAt(i)
		actors := personNames(catalog.Cast(film.Tconst, DocumentActors))

		meta := model.DocumentMetadata{
			Tconst: film.Tconst,
			Order:  i,
			Title:  film.Title,
			Genres: film.GenreList(),
		}
		if year, ok := film.Year(); ok {
			meta.Year = year
		}

		docs = append(docs, model.Document{
			ID:       film.Tconst,
			Content:  FormatDocument(film, actors),
			Metadata: meta,
		})
	}
	return docs
}

// FormatDocument 电影文档正文
// 演员按关联表顺序取前几位，标语和预告片只在存在时出现
func FormatDocument(film *model.Film, actors []string) string {
	var b strings.Builder

	line := func(label, value string) {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	line("Titre", film.Title)

	year := notAvailable
	if y, ok := film.Year(); ok {
		year = strconv.Itoa(y)
	}
	line("Année", year)

	genres := notSpecified
	if list := film.GenreList(); len(list) > 0 {
		genres = strings.Join(list, ", ")
	}
	line("Genre", genres)

	rating := notAvailable
	if film.AverageRating != nil {
		rating = strconv.FormatFloat(*film.AverageRating, 'f', 1, 64) + "/10"
	}
	line("Note", rating)

	overview := utils.CleanText(film.Overview)
	if overview == "" {
		overview = notAvailable
	}
	line("Synopsis", overview)

	cast := notAvailable
	if len(actors) > 0 {
		cast = strings.Join(actors, ", ")
	}
	line("Acteurs", cast)

	if tagline := utils.CleanText(film.Tagline); tagline != "" {
		line("Slogan", tagline)
	}
	if film.TrailerLink != "" {
		line("Bande-annonce", film.TrailerLink)
	}

	return b.String()
}
