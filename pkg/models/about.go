package models

import "time"

type PhilosophyItem struct {
	Title       string `json:"title" bson:"title" validate:"required"`
	Description string `json:"description" bson:"description"`
}

// AboutContent is the singleton document behind the About page.
type AboutContent struct {
	ID              string           `json:"-" bson:"_id"`
	Title           string           `json:"title" bson:"title" validate:"required"`
	Paragraphs      []string         `json:"paragraphs" bson:"paragraphs"`
	PhilosophyTitle string           `json:"philosophyTitle" bson:"philosophyTitle"`
	PhilosophyItems []PhilosophyItem `json:"philosophyItems" bson:"philosophyItems" validate:"dive"`
	Tagline         string           `json:"tagline" bson:"tagline"`
	BackgroundImage string           `json:"backgroundImage,omitempty" bson:"backgroundImage,omitempty" validate:"omitempty,url"`
	CreatedAt       time.Time        `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt       time.Time        `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

func DefaultAbout() AboutContent {
	return AboutContent{
		ID:    AboutID,
		Title: "ABOUT DVH",
		Paragraphs: []string{
			"DVH Records is an independent digital label born from a passion for electronic music and bass culture. It gives a voice to emerging and established artists across Drum & Bass, House, Bass Music and Electropop.",
			"Our mission is to bridge talented producers and a global audience, on a platform that values sound quality, creativity and authenticity.",
			"With a diverse roster, each artist bringing their own sonic identity, DVH Records does more than release music: it builds careers and grows communities.",
		},
		PhilosophyTitle: "Our Philosophy",
		PhilosophyItems: []PhilosophyItem{
			{Title: "Quality above all", Description: "Every release goes through a rigorous curation process."},
			{Title: "Artist support", Description: "Full support in production, distribution and marketing."},
			{Title: "Constant innovation", Description: "Always exploring new sounds and technologies."},
			{Title: "Global community", Description: "Our music reaches listeners on every continent."},
		},
		Tagline:         "Global sounds. Bass driven.",
		BackgroundImage: "https://images.unsplash.com/photo-1571330735066-03aaa9429d89?w=1920",
	}
}
