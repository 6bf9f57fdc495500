package service

import (
	"errors"
	"math"
	"testing"

	"github.com/user/cinevasion/internal/model"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	tests := []struct {
		q    float64
		want float64
	}{
		{q: 0, want: 1},
		{q: 0.25, want: 1.75},
		{q: 0.5, want: 2.5},
		{q: 0.75, want: 3.25},
		{q: 1, want: 4},
	}
	for _, tt := range tests {
		if got := quantile(sorted, tt.q); !approx(got, tt.want) {
			t.Errorf("quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestFitRobustScaler(t *testing.T) {
	s := FitRobustScaler([]float64{4, 1, 3, 2})
	if !approx(s.Center, 2.5) || !approx(s.Scale, 1.5) {
		t.Errorf("scaler = %+v, want center 2.5 scale 1.5", s)
	}

	constant := FitRobustScaler([]float64{5, 5, 5})
	if constant.Scale != 1 {
		t.Errorf("zero IQR should scale by 1, got %v", constant.Scale)
	}
	if got := constant.Transform(5); got != 0 {
		t.Errorf("Transform(5) = %v, want 0", got)
	}
}

func TestBuildFeaturesGenreColumns(t *testing.T) {
	films := []model.Film{
		testFilm("tt1", "One", "2001-01-01", "Action", 6, 1),
		testFilm("tt2", "Two", "2002-01-01", "Comedy", 7, 2),
		testFilm("tt3", "Three", "2003-01-01", "Action,Comedy", 8, 3),
	}

	m, err := BuildFeatures(films)
	if err != nil {
		t.Fatal(err)
	}

	genres := m.GenreColumns()
	if len(genres) != 2 || genres[0] != "Action" || genres[1] != "Comedy" {
		t.Fatalf("GenreColumns() = %v", genres)
	}
	third := m.Rows[2]
	if third[m.GenreOffset] != 1 || third[m.GenreOffset+1] != 1 {
		t.Errorf("third film genres = %v, want both 1", third[m.GenreOffset:])
	}
	if m.Rows[0][m.GenreOffset+1] != 0 {
		t.Error("first film should not be Comedy")
	}
	if len(m.Columns) != 5 || m.Columns[0] != ColumnRating || m.Columns[2] != ColumnYear {
		t.Errorf("Columns = %v", m.Columns)
	}
}

func TestBuildFeaturesImputesMissingValues(t *testing.T) {
	films := []model.Film{
		testFilm("tt1", "A", "1990-05-01", "Drama", 5, 10),
		testFilm("tt2", "B", "2000-05-01", "Drama", 6, 20),
		testFilm("tt3", "C", "2010-05-01", "Drama", 7, 30),
		testFilm("tt4", "D", "not a date", "Drama", 0, 0),
	}
	films[3].AverageRating = nil
	films[3].Popularity = nil

	m, err := BuildFeatures(films)
	if err != nil {
		t.Fatal(err)
	}

	// 年份 1990/2000/2010：中位数 2000，四分位距 10
	if got := m.Rows[0][2]; !approx(got, -1) {
		t.Errorf("scaled year of 1990 = %v, want -1", got)
	}
	for c := 0; c < 3; c++ {
		if got := m.Rows[3][c]; !approx(got, 0) {
			t.Errorf("imputed %s = %v, want 0", m.Columns[c], got)
		}
	}
}

func TestBuildFeaturesAllMissingColumn(t *testing.T) {
	films := []model.Film{
		testFilm("tt1", "A", "", "Drama", 5, 10),
		testFilm("tt2", "B", "", "", 6, 20),
	}
	m, err := BuildFeatures(films)
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range m.Rows {
		if row[2] != 0 {
			t.Errorf("row %d year = %v, want 0", i, row[2])
		}
	}
	if len(m.GenreColumns()) != 1 {
		t.Errorf("empty genre string should add no column, got %v", m.GenreColumns())
	}
}

func TestBuildFeaturesErrors(t *testing.T) {
	if _, err := BuildFeatures(nil); !errors.Is(err, model.ErrData) {
		t.Errorf("empty table error = %v, want data error", err)
	}

	films := []model.Film{
		testFilm("tt1", "A", "2000", "Drama", math.Inf(1), 1),
		testFilm("tt2", "B", "2001", "Drama", 5, 1),
	}
	if _, err := BuildFeatures(films); !errors.Is(err, model.ErrComputation) {
		t.Errorf("infinite rating error = %v, want computation error", err)
	}
}
