package model

import "slices"

type Role struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type User struct {
	ID        int64  `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	Firstname string `json:"firstname" db:"firstname"`
	Surname   string `json:"surname" db:"surname"`
	Email     string `json:"email" db:"email"`
	PhoneNum  string `json:"phoneNum" db:"phone_num"`
	// Password is only ever sent, never shown: fetched records have it blanked.
	Password  string   `json:"encPassword,omitempty" db:"-"`
	Avatar    string   `json:"avatar" db:"avatar"`
	CreatedAt string   `json:"createdAt" db:"created_at"`
	UpdatedAt string   `json:"updatedAt" db:"updated_at"`
	IsActive  bool     `json:"isActive" db:"is_active"`
	Roles     []Role   `json:"roles" db:"-"`
	Files     []Upload `json:"-" db:"-"`
}

func (u User) Clone() User {
	u.Roles = slices.Clone(u.Roles)
	u.Files = slices.Clone(u.Files)
	return u
}

// HasRole reports whether the user holds a role with the given name.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

type ContentType struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Tags        string `json:"tags" db:"tags"`
}

type Content struct {
	ID            int64    `json:"id" db:"id"`
	Name          string   `json:"name" db:"name"`
	ContentTypeID int64    `json:"contentTypeId" db:"content_type_id"`
	PosterURL     string   `json:"posterUrl,omitempty" db:"poster_url"`
	TrailerURL    string   `json:"trailerUrl,omitempty" db:"trailer_url"`
	VideoURL      string   `json:"videoUrl,omitempty" db:"video_url"`
	Description   string   `json:"description,omitempty" db:"description"`
	DurationMin   int      `json:"durationMin,omitempty" db:"duration_min"`
	AgeRating     string   `json:"ageRating,omitempty" db:"age_rating"`
	ReleaseDate   string   `json:"releaseDate,omitempty" db:"release_date"`
	IsActive      bool     `json:"isActive" db:"is_active"`
	CreatedAt     string   `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt     string   `json:"updatedAt,omitempty" db:"updated_at"`
	GenreIDs      []int64  `json:"genreIds,omitempty" db:"-"`
	ActorIDs      []int64  `json:"actorIds,omitempty" db:"-"`
	WarningIDs    []int64  `json:"warningIds,omitempty" db:"-"`
	Files         []Upload `json:"-" db:"-"`
}

func (c Content) Clone() Content {
	c.GenreIDs = slices.Clone(c.GenreIDs)
	c.ActorIDs = slices.Clone(c.ActorIDs)
	c.WarningIDs = slices.Clone(c.WarningIDs)
	c.Files = slices.Clone(c.Files)
	return c
}

type Episode struct {
	ID            int64    `json:"id" db:"id"`
	Name          string   `json:"name" db:"name"`
	ContentID     int64    `json:"contentId" db:"content_id"`
	SeasonNumber  int      `json:"seasonNumber" db:"season_number"`
	EpisodeNumber int      `json:"episodeNumber" db:"episode_number"`
	DurationMin   int      `json:"durationMin,omitempty" db:"duration_min"`
	Description   string   `json:"description,omitempty" db:"description"`
	TrailerURL    string   `json:"trailerUrl,omitempty" db:"trailer_url"`
	VideoURL      string   `json:"videoUrl,omitempty" db:"video_url"`
	ReleaseDate   string   `json:"releaseDate,omitempty" db:"release_date"`
	CreatedAt     string   `json:"createdAt,omitempty" db:"created_at"`
	Files         []Upload `json:"-" db:"-"`
}

func (e Episode) Clone() Episode {
	e.Files = slices.Clone(e.Files)
	return e
}

type Genre struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	ImageURL    string `json:"imageUrl" db:"image_url"`
	Description string `json:"description" db:"description"`
	Tags        string `json:"tags" db:"tags"`
}

type Actor struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Surname   string `json:"surname" db:"surname"`
	Biography string `json:"biography,omitempty" db:"biography"`
}

type Warning struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Upload is a media file attached to a draft (avatar, poster, trailer, video).
type Upload struct {
	Field       string `json:"field"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

func (u Upload) Size() int64 { return int64(len(u.Data)) }

// Upload field names accepted by the entity forms.
const (
	FieldAvatar  = "avatar"
	FieldPoster  = "poster"
	FieldTrailer = "trailer"
	FieldVideo   = "video"
)

// Collection kinds, used in routes and as record kinds of the local store.
const (
	KindUsers        = "users"
	KindRoles        = "roles"
	KindContentTypes = "content-types"
	KindContents     = "contents"
	KindEpisodes     = "episodes"
	KindGenres       = "genres"
	KindActors       = "actors"
	KindWarnings     = "warnings"
)
