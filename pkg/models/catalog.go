package models

import (
	"time"
)

const (
	ArtistCollection     = "artists"
	TrackCollection      = "tracks"
	ReleaseCollection    = "releases"
	SettingsCollection   = "settings"
	SubmissionCollection = "submissions"

	AboutID = "about"

	UnknownArtist = "Unknown Artist"
	MaxGallery    = 15
)

type TrackTag string

const (
	TagUnreleased TrackTag = "unreleased"
	TagTBD        TrackTag = "tbd"
	TagDubplate   TrackTag = "dubplate"
	TagExclusive  TrackTag = "exclusive"
	TagPremiere   TrackTag = "premiere"
)

func (t TrackTag) Valid() bool {
	switch t {
	case TagUnreleased, TagTBD, TagDubplate, TagExclusive, TagPremiere:
		return true
	}
	return false
}

type SocialLink struct {
	Name string `json:"name" bson:"name" validate:"required"`
	URL  string `json:"url" bson:"url" validate:"required,url"`
}

type Artist struct {
	ID          string       `json:"id" bson:"_id"`
	Name        string       `json:"name" bson:"name" validate:"required,max=120"`
	Genre       string       `json:"genre" bson:"genre" validate:"required"`
	Bio         string       `json:"bio" bson:"bio" validate:"required"`
	BioEn       string       `json:"bioEn,omitempty" bson:"bioEn,omitempty"`
	BioEs       string       `json:"bioEs,omitempty" bson:"bioEs,omitempty"`
	Country     string       `json:"country" bson:"country"`
	Image       string       `json:"image" bson:"image" validate:"omitempty,url"`
	ImageURL    string       `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Gallery     []string     `json:"gallery" bson:"gallery" validate:"max=15,dive,url"`
	SocialLinks []SocialLink `json:"socialLinks" bson:"socialLinks" validate:"dive"`
	CreatedAt   time.Time    `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// BioFor returns the biography for locale, falling back to the default bio.
func (a Artist) BioFor(locale string) string {
	switch locale {
	case "en":
		if a.BioEn != "" {
			return a.BioEn
		}
	case "es":
		if a.BioEs != "" {
			return a.BioEs
		}
	}
	return a.Bio
}

// DisplayImage prefers image and falls back to the legacy imageUrl field.
func (a Artist) DisplayImage() string {
	if a.Image != "" {
		return a.Image
	}
	return a.ImageURL
}

type Track struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title" validate:"required"`
	Duration    int       `json:"duration" bson:"duration" validate:"min=0"`
	AudioURL    string    `json:"audioUrl,omitempty" bson:"audioUrl,omitempty" validate:"omitempty,url"`
	Tag         TrackTag  `json:"tag,omitempty" bson:"tag,omitempty" validate:"omitempty,oneof=unreleased tbd dubplate exclusive premiere"`
	ArtistID    string    `json:"artistId,omitempty" bson:"artistId,omitempty"`
	ArtistIDs   []string  `json:"artistIds,omitempty" bson:"artistIds,omitempty" validate:"dive,required"`
	ReleaseDate string    `json:"releaseDate,omitempty" bson:"releaseDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CreatedAt   time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`

	// ArtistRefs is the effective artist id set, filled once by Normalize.
	ArtistRefs []string `json:"-" bson:"-"`
}

// Playable reports whether the track has an audio file attached.
func (t Track) Playable() bool {
	return t.AudioURL != ""
}

// Normalize computes ArtistRefs from the two relation shapes.
func (t *Track) Normalize() {
	t.ArtistRefs = EffectiveArtistIDs(*t)
}

// EffectiveArtistIDs merges the current artistIds list with the deprecated
// single artistId. The legacy field only counts when artistIds is empty.
func EffectiveArtistIDs(t Track) []string {
	ids := make([]string, 0, len(t.ArtistIDs))
	seen := make(map[string]struct{}, len(t.ArtistIDs))
	for _, id := range t.ArtistIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 && t.ArtistID != "" {
		ids = append(ids, t.ArtistID)
	}
	return ids
}

type ReleaseLinks struct {
	Spotify    string `json:"spotify,omitempty" bson:"spotify,omitempty" validate:"omitempty,url"`
	AppleMusic string `json:"appleMusic,omitempty" bson:"appleMusic,omitempty" validate:"omitempty,url"`
}

type Release struct {
	ID          string       `json:"id" bson:"_id"`
	Title       string       `json:"title" bson:"title" validate:"required"`
	CoverURL    string       `json:"coverUrl" bson:"coverUrl" validate:"omitempty,url"`
	ReleaseDate string       `json:"releaseDate" bson:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
	TrackID     string       `json:"trackId" bson:"trackId" validate:"required"`
	ArtistID    string       `json:"artistId" bson:"artistId" validate:"required"`
	Links       ReleaseLinks `json:"links" bson:"links"`
	CreatedAt   time.Time    `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// ArtistView is an artist with its tracks nested, ready to render.
type ArtistView struct {
	Artist
	Tracks []Track `json:"tracks"`
}

// ReleaseView carries the artist name projected at rebuild time.
type ReleaseView struct {
	Release
	ArtistName string `json:"artistName"`
}

type Submission struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required,max=120"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Genre     string    `json:"genre" bson:"genre" validate:"max=120"`
	DemoLink  string    `json:"demoLink" bson:"demoLink" validate:"required,url"`
	Message   string    `json:"message" bson:"message" validate:"max=4000"`
	CreatedAt time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}
