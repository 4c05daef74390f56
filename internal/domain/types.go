package domain

import "time"

// Meta is the store-managed part of every record. The SQL backend keeps these
// values in columns, so they never appear in the JSON payload.
type Meta struct {
	ID        string    `json:"-" firestore:"-"`
	CreatedAt time.Time `json:"-" firestore:"createdAt,serverTimestamp"`
	UpdatedAt time.Time `json:"-" firestore:"updatedAt,serverTimestamp"`
}

func (m *Meta) Metadata() *Meta { return m }

// Document is implemented by pointers to every persisted entity.
type Document interface {
	Metadata() *Meta
	// DisplayName is the value name sorts compare.
	DisplayName() string
	// SortTime is the value date sorts compare.
	SortTime() time.Time
}

type Category struct {
	Meta
	Title         string `json:"title" firestore:"title"`
	Province      string `json:"province" firestore:"province"`
	Description   string `json:"description" firestore:"description"`
	CoverImageURL string `json:"coverImgUrl" firestore:"coverImgUrl"`
}

func (c *Category) DisplayName() string { return c.Title }
func (c *Category) SortTime() time.Time { return c.CreatedAt }

// GalleryDateLayout is the format of GalleryItem.Date.
const GalleryDateLayout = "2006-01-02"

// GalleryItem is a photo album. Title is copied from the category chosen at
// write time and is not kept in sync with later category edits.
type GalleryItem struct {
	Meta
	Title            string   `json:"title" firestore:"title"`
	Subtitle         string   `json:"subtitle,omitempty" firestore:"subtitle"`
	Date             string   `json:"date" firestore:"date"`
	Province         string   `json:"province" firestore:"province"`
	Description      string   `json:"description" firestore:"description"`
	CoverImageURL    string   `json:"coverImgUrl" firestore:"coverImgUrl"`
	GalleryImageURLs []string `json:"galleryUrls" firestore:"galleryUrls"`
}

func (g *GalleryItem) DisplayName() string { return g.Title }

// SortTime is the album date when it parses, otherwise the creation time.
func (g *GalleryItem) SortTime() time.Time {
	if t, err := time.Parse(GalleryDateLayout, g.Date); err == nil {
		return t
	}
	return g.CreatedAt
}

// Vlog points at an externally hosted video. Category is a free-form tag and
// Duration is display text.
type Vlog struct {
	Meta
	Title        string `json:"title" firestore:"title"`
	URL          string `json:"url" firestore:"url"`
	Category     string `json:"category" firestore:"category"`
	Duration     string `json:"duration" firestore:"duration"`
	Description  string `json:"description" firestore:"description"`
	ThumbnailURL string `json:"thumbnailUrl" firestore:"thumbnailUrl"`
}

func (v *Vlog) DisplayName() string { return v.Title }
func (v *Vlog) SortTime() time.Time { return v.CreatedAt }

// User is the profile document written at registration, keyed by the uid the
// auth service issued.
type User struct {
	Meta
	Name            string `json:"name" firestore:"name"`
	NIC             string `json:"nic" firestore:"nic"`
	ContactNumber   string `json:"contactNumber" firestore:"contactNumber"`
	Email           string `json:"email" firestore:"email"`
	ProfileImageURL string `json:"profileImageUrl" firestore:"profileImageUrl"`
	Role            string `json:"role" firestore:"role"`
}

func (u *User) DisplayName() string { return u.Name }
func (u *User) SortTime() time.Time { return u.CreatedAt }

// Credential is keyed by the lower-cased email address.
type Credential struct {
	Meta
	UID          string `json:"uid" firestore:"uid"`
	Email        string `json:"email" firestore:"email"`
	PasswordHash string `json:"passwordHash" firestore:"passwordHash"`
}

func (c *Credential) DisplayName() string { return c.Email }
func (c *Credential) SortTime() time.Time { return c.CreatedAt }

// Collection names shared by every store backend.
const (
	CollectionCategories  = "categories"
	CollectionGallery     = "gallery"
	CollectionVlogs       = "vlogs"
	CollectionUsers       = "users"
	CollectionCredentials = "credentials"
)
