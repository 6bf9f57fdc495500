package service

import (
	"testing"

	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/repository"
	"github.com/user/cinevasion/internal/utils"
)

func ptr(v float64) *float64 { return &v }

// testFilm 构造测试电影，date 为空表示缺失
func testFilm(tconst, title, date, genres string, rating, popularity float64) model.Film {
	return model.Film{
		Tconst:         tconst,
		Title:          title,
		RawReleaseDate: date,
		ReleaseDate:    utils.ParseReleaseDate(date),
		Genres:         genres,
		AverageRating:  ptr(rating),
		Popularity:     ptr(popularity),
	}
}

func newTestCatalog(t *testing.T, films []model.Film, people []model.Person, credits []model.Credit) *repository.CatalogRepository {
	t.Helper()
	c, err := repository.NewCatalogRepository(films, people, credits)
	if err != nil {
		t.Fatalf("NewCatalogRepository() error = %v", err)
	}
	return c
}

// sixFilmCatalog 数值特征完全相同，只有类型不同
func sixFilmCatalog(t *testing.T) *repository.CatalogRepository {
	t.Helper()
	films := []model.Film{
		testFilm("tt1", "FilmA", "2000-01-01", "Action,Drama", 7, 10),
		testFilm("tt2", "FilmB", "2000-01-01", "Action,Drama", 7, 10),
		testFilm("tt3", "FilmC", "2000-01-01", "Horror", 7, 10),
		testFilm("tt4", "FilmD", "2000-01-01", "Action", 7, 10),
		testFilm("tt5", "FilmE", "2000-01-01", "Comedy", 7, 10),
		testFilm("tt6", "FilmF", "2000-01-01", "Drama,Romance", 7, 10),
	}
	return newTestCatalog(t, films, nil, nil)
}
