package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"label-catalog-api/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var errMissingID = errors.New("document has no _id")

type rawArtist struct {
	ID          bson.RawValue `bson:"_id"`
	Name        string        `bson:"name"`
	Genre       string        `bson:"genre"`
	Bio         string        `bson:"bio"`
	BioEn       string        `bson:"bioEn"`
	BioEs       string        `bson:"bioEs"`
	Country     string        `bson:"country"`
	Image       string        `bson:"image"`
	ImageURL    string        `bson:"imageUrl"`
	Gallery     []string      `bson:"gallery"`
	SocialLinks bson.RawValue `bson:"socialLinks"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

type rawTrack struct {
	ID          bson.RawValue `bson:"_id"`
	Title       string        `bson:"title"`
	Duration    bson.RawValue `bson:"duration"`
	AudioURL    string        `bson:"audioUrl"`
	Tag         string        `bson:"tag"`
	ArtistID    string        `bson:"artistId"`
	ArtistIDs   []string      `bson:"artistIds"`
	ReleaseDate string        `bson:"releaseDate"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

type rawRelease struct {
	ID          bson.RawValue `bson:"_id"`
	Title       string        `bson:"title"`
	CoverURL    string        `bson:"coverUrl"`
	ReleaseDate string        `bson:"releaseDate"`
	TrackID     string        `bson:"trackId"`
	ArtistID    string        `bson:"artistId"`
	Links       ReleaseLinks  `bson:"links"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func DecodeArtist(raw bson.Raw) (Artist, error) {
	var r rawArtist
	if err := bson.Unmarshal(raw, &r); err != nil {
		return Artist{}, decodeError("artist", raw, err)
	}
	id, err := idString(r.ID)
	if err != nil {
		return Artist{}, decodeError("artist", raw, err)
	}
	return Artist{
		ID:          id,
		Name:        r.Name,
		Genre:       r.Genre,
		Bio:         r.Bio,
		BioEn:       r.BioEn,
		BioEs:       r.BioEs,
		Country:     r.Country,
		Image:       r.Image,
		ImageURL:    r.ImageURL,
		Gallery:     nonNil(r.Gallery),
		SocialLinks: socialLinks(r.SocialLinks),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

// DecodeTrack decodes a track document and normalizes its artist references.
func DecodeTrack(raw bson.Raw) (Track, error) {
	var r rawTrack
	if err := bson.Unmarshal(raw, &r); err != nil {
		return Track{}, decodeError("track", raw, err)
	}
	id, err := idString(r.ID)
	if err != nil {
		return Track{}, decodeError("track", raw, err)
	}
	t := Track{
		ID:          id,
		Title:       r.Title,
		Duration:    durationSeconds(r.Duration),
		AudioURL:    r.AudioURL,
		ArtistID:    r.ArtistID,
		ArtistIDs:   r.ArtistIDs,
		ReleaseDate: r.ReleaseDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if tag := TrackTag(r.Tag); tag.Valid() {
		t.Tag = tag
	}
	t.Normalize()
	return t, nil
}

func DecodeRelease(raw bson.Raw) (Release, error) {
	var r rawRelease
	if err := bson.Unmarshal(raw, &r); err != nil {
		return Release{}, decodeError("release", raw, err)
	}
	id, err := idString(r.ID)
	if err != nil {
		return Release{}, decodeError("release", raw, err)
	}
	return Release{
		ID:          id,
		Title:       r.Title,
		CoverURL:    r.CoverURL,
		ReleaseDate: r.ReleaseDate,
		TrackID:     r.TrackID,
		ArtistID:    r.ArtistID,
		Links:       r.Links,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func DecodeAbout(raw bson.Raw) (AboutContent, error) {
	var about AboutContent
	if err := bson.Unmarshal(raw, &about); err != nil {
		return AboutContent{}, decodeError("about", raw, err)
	}
	about.Paragraphs = nonNil(about.Paragraphs)
	if about.PhilosophyItems == nil {
		about.PhilosophyItems = []PhilosophyItem{}
	}
	return about, nil
}

func DecodeSubmission(raw bson.Raw) (Submission, error) {
	var s Submission
	if err := bson.Unmarshal(raw, &s); err != nil {
		return Submission{}, decodeError("submission", raw, err)
	}
	return s, nil
}

// DecodeAll decodes every document it can. Documents that fail to decode are
// left out and reported in the returned error slice.
func DecodeAll[T any](raws []bson.Raw, decode func(bson.Raw) (T, error)) ([]T, []error) {
	out := make([]T, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		v, err := decode(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	return out, errs
}

func decodeError(kind string, raw bson.Raw, err error) error {
	id := "?"
	if v, lookupErr := raw.LookupErr("_id"); lookupErr == nil {
		if s, idErr := idString(v); idErr == nil {
			id = s
		}
	}
	return apperr.Wrap(apperr.ErrDataUnavailable, fmt.Errorf("decoding %s %s: %w", kind, id, err))
}

func idString(v bson.RawValue) (string, error) {
	switch v.Type {
	case bsontype.String:
		if s := v.StringValue(); s != "" {
			return s, nil
		}
	case bsontype.ObjectID:
		return v.ObjectID().Hex(), nil
	}
	return "", errMissingID
}

// Longer durations are treated as garbage.
const maxDurationSeconds = 7 * 24 * 3600

// durationSeconds accepts ints, floats and legacy "m:ss" strings.
func durationSeconds(v bson.RawValue) int {
	var secs int64
	switch v.Type {
	case bsontype.Int32:
		secs = int64(v.Int32())
	case bsontype.Int64:
		secs = v.Int64()
	case bsontype.Double:
		d := v.Double()
		if math.IsNaN(d) || d < 0 || d > maxDurationSeconds {
			return 0
		}
		secs = int64(math.Floor(d))
	case bsontype.String:
		secs = int64(parseClock(v.StringValue()))
	}
	if secs < 0 || secs > maxDurationSeconds {
		return 0
	}
	return int(secs)
}

func parseClock(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > maxDurationSeconds {
			return 0
		}
		total = total*60 + n
		if total > maxDurationSeconds {
			return 0
		}
	}
	return total
}

// socialLinks reads both the list shape and the legacy {name: url} map shape.
func socialLinks(v bson.RawValue) []SocialLink {
	links := []SocialLink{}
	switch v.Type {
	case bsontype.Array:
		var list []SocialLink
		if err := v.Unmarshal(&list); err != nil {
			return links
		}
		for _, l := range list {
			if l.Name != "" && l.URL != "" {
				links = append(links, l)
			}
		}
	case bsontype.EmbeddedDocument:
		var m map[string]string
		if err := v.Unmarshal(&m); err != nil {
			return links
		}
		names := make([]string, 0, len(m))
		for name, url := range m {
			if url != "" {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			links = append(links, SocialLink{Name: name, URL: m[name]})
		}
	}
	return links
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
