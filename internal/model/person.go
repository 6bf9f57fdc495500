package model

// 参与类别
const (
	CategoryActor    = "actor"
	CategoryActress  = "actress"
	CategoryDirector = "director"
)

// Person 人物（people 表一行）
type Person struct {
	Nconst      string `json:"nconst"`
	PrimaryName string `json:"primary_name"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// Credit 电影与人物的关联（links 表一行）
type Credit struct {
	Tconst   string `json:"tconst"`
	Nconst   string `json:"nconst"`
	Category string `json:"category"`
}

// IsCast 演员类别（actor/actress）
func (c Credit) IsCast() bool {
	return c.Category == CategoryActor || c.Category == CategoryActress
}
