package repository

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/cinevasion/internal/logging"
	"github.com/user/cinevasion/internal/model"
	"github.com/user/cinevasion/internal/utils"
	"golang.org/x/sync/errgroup"
)

// 必需列
var (
	filmColumns   = []string{"tconst", "title", "release_date", "genres", "averageRating", "popularity"}
	peopleColumns = []string{"nconst", "primaryName"}
	linkColumns   = []string{"tconst", "nconst", "category"}
)

// CatalogFiles 目录文件位置
type CatalogFiles struct {
	Dir    string
	Films  string
	People string
	Links  string
}

// CatalogRepository 只读电影目录（films / people / links 三张表）
// 加载完成后不再修改，可被并发读取
type CatalogRepository struct {
	films   []model.Film
	people  []model.Person
	credits []model.Credit

	filmIndex     map[string]int
	personIndex   map[string]int
	titleIndex    map[string]int
	creditsByFilm map[string][]int
	filmsByPerson map[string][]int

	fingerprint string
}

// LoadCatalog 并发读取三个 CSV 文件并建立索引
func LoadCatalog(ctx context.Context, files CatalogFiles) (*CatalogRepository, error) {
	var (
		films   []model.Film
		people  []model.Person
		credits []model.Credit
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		films, err = readFilms(ctx, filepath.Join(files.Dir, files.Films))
		return err
	})
	g.Go(func() error {
		var err error
		people, err = readPeople(ctx, filepath.Join(files.Dir, files.People))
		return err
	})
	g.Go(func() error {
		var err error
		credits, err = readCredits(ctx, filepath.Join(files.Dir, files.Links))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	repo, err := NewCatalogRepository(films, people, credits)
	if err != nil {
		return nil, err
	}

	logger := logging.Component("catalog")
	logger.Info().
		Int("films", len(films)).
		Int("people", len(people)).
		Int("links", len(credits)).
		Str("fingerprint", repo.fingerprint[:12]).
		Msg("目录加载完成")
	return repo, nil
}

// NewCatalogRepository 用内存数据构建目录，tconst / nconst 必须唯一
func NewCatalogRepository(films []model.Film, people []model.Person, credits []model.Credit) (*CatalogRepository, error) {
	r := &CatalogRepository{
		films:         films,
		people:        people,
		credits:       credits,
		filmIndex:     make(map[string]int, len(films)),
		personIndex:   make(map[string]int, len(people)),
		titleIndex:    make(map[string]int, len(films)),
		creditsByFilm: make(map[string][]int),
		filmsByPerson: make(map[string][]int),
	}

	for i, f := range films {
		if f.Tconst == "" {
			return nil, model.NewDataError("catalog", "film row %d has empty tconst", i+1)
		}
		if _, dup := r.filmIndex[f.Tconst]; dup {
			return nil, model.NewDataError("catalog", "duplicate tconst %q", f.Tconst)
		}
		r.filmIndex[f.Tconst] = i
		// 标题重复时保留文件中的第一行
		if _, seen := r.titleIndex[f.Title]; !seen {
			r.titleIndex[f.Title] = i
		}
	}

	for i, p := range people {
		if p.Nconst == "" {
			return nil, model.NewDataError("catalog", "person row %d has empty nconst", i+1)
		}
		if _, dup := r.personIndex[p.Nconst]; dup {
			return nil, model.NewDataError("catalog", "duplicate nconst %q", p.Nconst)
		}
		r.personIndex[p.Nconst] = i
	}

	linked := make(map[string]map[int]struct{})
	for i, c := range credits {
		r.creditsByFilm[c.Tconst] = append(r.creditsByFilm[c.Tconst], i)

		fi, ok := r.filmIndex[c.Tconst]
		if !ok {
			continue
		}
		set, ok := linked[c.Nconst]
		if !ok {
			set = make(map[int]struct{})
			linked[c.Nconst] = set
		}
		set[fi] = struct{}{}
	}
	// 人物作品按 films 表顺序排列
	for nconst, set := range linked {
		idx := make([]int, 0, len(set))
		for fi := range set {
			idx = append(idx, fi)
		}
		sort.Ints(idx)
		r.filmsByPerson[nconst] = idx
	}

	r.fingerprint = fingerprintFilms(films)
	return r, nil
}

// Films 全部电影（按文件顺序），调用方不得修改
func (r *CatalogRepository) Films() []model.Film {
	return r.films
}

// People 全部人物（按文件顺序）
func (r *CatalogRepository) People() []model.Person {
	return r.people
}

// Len 电影数量
func (r *CatalogRepository) Len() int {
	return len(r.films)
}

// Fingerprint films 表内容哈希
func (r *CatalogRepository) Fingerprint() string {
	return r.fingerprint
}

// FilmAt 按下标取电影
func (r *CatalogRepository) FilmAt(i int) *model.Film {
	if i < 0 || i >= len(r.films) {
		return nil
	}
	return &r.films[i]
}

// IndexOf 返回 tconst 对应的下标
func (r *CatalogRepository) IndexOf(tconst string) (int, bool) {
	i, ok := r.filmIndex[tconst]
	return i, ok
}

// FindByTconst 根据 tconst 查找电影
func (r *CatalogRepository) FindByTconst(tconst string) (*model.Film, error) {
	i, ok := r.filmIndex[tconst]
	if !ok {
		return nil, model.NewNotFound("film", tconst)
	}
	return &r.films[i], nil
}

// FirstIndexByTitle 标题精确匹配，多部同名电影时取文件中的第一部
func (r *CatalogRepository) FirstIndexByTitle(title string) (int, error) {
	i, ok := r.titleIndex[title]
	if !ok {
		return -1, model.NewNotFound("film title", title)
	}
	return i, nil
}

// FindPerson 根据 nconst 查找人物
func (r *CatalogRepository) FindPerson(nconst string) (*model.Person, bool) {
	i, ok := r.personIndex[nconst]
	if !ok {
		return nil, false
	}
	return &r.people[i], true
}

// FindPersonByName 名字大小写不敏感子串匹配，只返回 people 表中第一个命中的人
func (r *CatalogRepository) FindPersonByName(query string) (*model.Person, bool) {
	needle := strings.ToLower(query)
	if needle == "" {
		return nil, false
	}
	for i := range r.people {
		if strings.Contains(strings.ToLower(r.people[i].PrimaryName), needle) {
			return &r.people[i], true
		}
	}
	return nil, false
}

// Credits 电影的参与人员（按 links 表顺序），category 为空时返回全部
func (r *CatalogRepository) Credits(tconst string, categories ...string) []model.Credit {
	idx := r.creditsByFilm[tconst]
	out := make([]model.Credit, 0, len(idx))
	for _, i := range idx {
		c := r.credits[i]
		if len(categories) > 0 && !containsString(categories, c.Category) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// PeopleFor 电影某类参与人员，取 links 表中的前 limit 个（limit<=0 不限）
func (r *CatalogRepository) PeopleFor(tconst string, limit int, categories ...string) []model.Person {
	credits := r.Credits(tconst, categories...)
	out := make([]model.Person, 0, len(credits))
	for _, c := range credits {
		if limit > 0 && len(out) >= limit {
			break
		}
		if p, ok := r.FindPerson(c.Nconst); ok {
			out = append(out, *p)
		}
	}
	return out
}

// Cast 电影演员（actor/actress），取 links 表中的前 limit 个（limit<=0 不限）
func (r *CatalogRepository) Cast(tconst string, limit int) []model.Person {
	out := make([]model.Person, 0)
	for _, i := range r.creditsByFilm[tconst] {
		if limit > 0 && len(out) >= limit {
			break
		}
		c := r.credits[i]
		if !c.IsCast() {
			continue
		}
		if p, ok := r.FindPerson(c.Nconst); ok {
			out = append(out, *p)
		}
	}
	return out
}

// FilmIndicesForPerson 人物参与的电影下标（任意类别，按 films 表顺序）
func (r *CatalogRepository) FilmIndicesForPerson(nconst string) []int {
	return r.filmsByPerson[nconst]
}

// Detail 电影详情：导演 + 前 5 位演员
func (r *CatalogRepository) Detail(tconst string) (*model.FilmDetail, error) {
	film, err := r.FindByTconst(tconst)
	if err != nil {
		return nil, err
	}
	detail := &model.FilmDetail{
		Film:      *film,
		Directors: r.PeopleFor(tconst, 0, model.CategoryDirector),
		Actors:    r.Cast(tconst, 5),
	}
	if year, ok := film.Year(); ok {
		detail.Year = year
	}
	return detail, nil
}

// Browse 按年代/类型/国家/评分筛选，按热度降序
// 评分按四舍六入五成双取整后精确匹配
func (r *CatalogRepository) Browse(filter model.BrowseFilter) []model.Film {
	out := make([]model.Film, 0)
	for i := range r.films {
		f := &r.films[i]
		if filter.Decade > 0 {
			year, ok := f.Year()
			if !ok || year/10*10 != filter.Decade {
				continue
			}
		}
		if filter.Genre != "" && !strings.Contains(strings.ToLower(f.Genres), strings.ToLower(filter.Genre)) {
			continue
		}
		if filter.Country != "" && f.OriginCountry != filter.Country {
			continue
		}
		if filter.Rating > 0 {
			if f.AverageRating == nil || int(math.RoundToEven(*f.AverageRating)) != filter.Rating {
				continue
			}
		}
		out = append(out, *f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return popularity(&out[i]) > popularity(&out[j])
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// Facets 筛选项：类型、年代、国家（均排序去重）
func (r *CatalogRepository) Facets() model.Facets {
	genres := make(map[string]struct{})
	decades := make(map[int]struct{})
	countries := make(map[string]struct{})

	for i := range r.films {
		f := &r.films[i]
		for _, g := range f.GenreList() {
			genres[g] = struct{}{}
		}
		if year, ok := f.Year(); ok {
			decades[year/10*10] = struct{}{}
		}
		if f.OriginCountry != "" {
			countries[f.OriginCountry] = struct{}{}
		}
	}

	facets := model.Facets{
		Genres:    sortedKeys(genres),
		Countries: sortedKeys(countries),
		Decades:   make([]int, 0, len(decades)),
	}
	for d := range decades {
		facets.Decades = append(facets.Decades, d)
	}
	sort.Ints(facets.Decades)
	return facets
}

func popularity(f *model.Film) float64 {
	if f.Popularity == nil {
		return math.Inf(-1)
	}
	return *f.Popularity
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// fingerprintFilms films 表内容哈希，用于特征矩阵缓存和向量索引校验
func fingerprintFilms(films []model.Film) string {
	h := sha256.New()
	for _, f := range films {
		fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1e",
			f.Tconst, f.Title, f.RawReleaseDate, f.Genres,
			floatString(f.AverageRating), floatString(f.Popularity),
			f.Overview, f.OriginCountry, f.Keywords, f.Tagline, f.PosterPath, f.TrailerLink)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func floatString(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

// ==================== CSV ====================

// table CSV 表头 + 行
type table struct {
	path   string
	header map[string]int
	rows   [][]string
}

func (t *table) get(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// readTable 读取 CSV 并校验必需列
func readTable(ctx context.Context, path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.DataError{Op: "open " + filepath.Base(path), Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, model.NewDataError("read "+filepath.Base(path), "file is empty")
	}
	if err != nil {
		return nil, &model.DataError{Op: "read " + filepath.Base(path), Err: err}
	}

	t := &table{path: path, header: make(map[string]int, len(head))}
	for i, name := range head {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		t.header[name] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := t.header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, model.NewDataError("read "+filepath.Base(path), "missing required columns: %s", strings.Join(missing, ", "))
	}

	for line := 2; ; line++ {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &model.DataError{Op: fmt.Sprintf("read %s line %d", filepath.Base(path), line), Err: err}
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func readFilms(ctx context.Context, path string) ([]model.Film, error) {
	t, err := readTable(ctx, path, filmColumns)
	if err != nil {
		return nil, err
	}
	films := make([]model.Film, 0, len(t.rows))
	for _, row := range t.rows {
		raw := t.get(row, "release_date")
		films = append(films, model.Film{
			Tconst:         t.get(row, "tconst"),
			Title:          t.get(row, "title"),
			RawReleaseDate: raw,
			ReleaseDate:    utils.ParseReleaseDate(raw),
			Genres:         t.get(row, "genres"),
			AverageRating:  utils.ParseOptionalFloat(t.get(row, "averageRating")),
			Popularity:     utils.ParseOptionalFloat(t.get(row, "popularity")),
			Overview:       t.get(row, "overview"),
			OriginCountry:  t.get(row, "origin_country"),
			Keywords:       t.get(row, "keywords"),
			Tagline:        t.get(row, "tagline"),
			PosterPath:     t.get(row, "poster_path"),
			TrailerLink:    t.get(row, "trailer_link"),
		})
	}
	return films, nil
}

func readPeople(ctx context.Context, path string) ([]model.Person, error) {
	t, err := readTable(ctx, path, peopleColumns)
	if err != nil {
		return nil, err
	}
	people := make([]model.Person, 0, len(t.rows))
	for _, row := range t.rows {
		people = append(people, model.Person{
			Nconst:      t.get(row, "nconst"),
			PrimaryName: t.get(row, "primaryName"),
			ProfilePath: t.get(row, "profile_path"),
		})
	}
	return people, nil
}

func readCredits(ctx context.Context, path string) ([]model.Credit, error) {
	t, err := readTable(ctx, path, linkColumns)
	if err != nil {
		return nil, err
	}
	credits := make([]model.Credit, 0, len(t.rows))
	for _, row := range t.rows {
		credits = append(credits, model.Credit{
			Tconst:   t.get(row, "tconst"),
			Nconst:   t.get(row, "nconst"),
			Category: t.get(row, "category"),
		})
	}
	return credits, nil
}
