package catalog

import (
	"label-catalog-api/pkg/models"
)

// View holds the three render-ready collections.
type View struct {
	Artists  []models.ArtistView  `json:"artists"`
	Tracks   []models.Track       `json:"tracks"`
	Releases []models.ReleaseView `json:"releases"`
}

func emptyView() View {
	return View{
		Artists:  []models.ArtistView{},
		Tracks:   []models.Track{},
		Releases: []models.ReleaseView{},
	}
}

// Rebuild joins the raw collections into a View in a single pass over each.
// Tracks must be normalized (models.DecodeTrack does this) so that ArtistRefs
// holds the effective artist set. Nested track lists keep track-collection order.
func Rebuild(artists []models.Artist, tracks []models.Track, releases []models.Release) View {
	tracksByArtist := make(map[string][]models.Track)
	for _, track := range tracks {
		for _, id := range track.ArtistRefs {
			tracksByArtist[id] = append(tracksByArtist[id], track)
		}
	}

	artistsByID := make(map[string]models.Artist, len(artists))
	for _, artist := range artists {
		if _, dup := artistsByID[artist.ID]; !dup {
			artistsByID[artist.ID] = artist
		}
	}

	view := View{
		Artists:  make([]models.ArtistView, 0, len(artists)),
		Tracks:   make([]models.Track, len(tracks)),
		Releases: make([]models.ReleaseView, 0, len(releases)),
	}
	copy(view.Tracks, tracks)

	for _, artist := range artists {
		nested := tracksByArtist[artist.ID]
		if nested == nil {
			nested = []models.Track{}
		}
		artist.Image = artist.DisplayImage()
		view.Artists = append(view.Artists, models.ArtistView{Artist: artist, Tracks: nested})
	}

	for _, release := range releases {
		name := models.UnknownArtist
		if artist, ok := artistsByID[release.ArtistID]; ok && artist.Name != "" {
			name = artist.Name
		}
		view.Releases = append(view.Releases, models.ReleaseView{Release: release, ArtistName: name})
	}

	return view
}
