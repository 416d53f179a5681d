// Package story defines the structured short-story script produced by a
// pipeline run, the prompt that requests it and the parser that turns a
// model reply back into a validated Story.
package story

import (
	"math/rand/v2"
	"strings"
)

// Category is the kind of story requested from the model.
type Category string

const (
	CategoryMoral       Category = "moral"
	CategoryFunny       Category = "funny"
	CategoryEducational Category = "educational"
	CategoryMythology   Category = "mythology"
)

var categories = []Category{CategoryMoral, CategoryFunny, CategoryEducational, CategoryMythology}

// Categories returns every valid category.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// RandomCategory picks a category uniformly at random.
func RandomCategory() Category {
	return categories[rand.IntN(len(categories))]
}

// Story is one generated script. Values are built fresh by Decode and are
// not modified afterwards.
type Story struct {
	TitleNative     string   `json:"title_telugu" validate:"required"`
	TitleTranslated string   `json:"title_english" validate:"required"`
	Category        Category `json:"category" validate:"required,category" jsonschema:"enum=moral,enum=funny,enum=educational,enum=mythology"`
	Scenes          []Scene  `json:"scenes" validate:"required,min=1,dive"`
	Moral           string   `json:"moral"`
	Tags            []string `json:"tags"`
	Description     string   `json:"description"`
	ThumbnailText   string   `json:"thumbnail_text"`
}

// Scene is one beat of a story.
type Scene struct {
	SceneNumber     int    `json:"scene_number" validate:"gt=0"`
	NativeDialogue  string `json:"telugu_dialogue" validate:"notblank"`
	TranslatedText  string `json:"english_translation"`
	Action          string `json:"action"`
	DurationSeconds int    `json:"duration_seconds" validate:"gt=0"`
}

// Script joins every scene's spoken line, in scene order, with single spaces.
func (s *Story) Script() string {
	lines := make([]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		lines = append(lines, scene.NativeDialogue)
	}
	return strings.Join(lines, " ")
}

// TotalDuration is the sum of the scenes' advisory durations in seconds.
func (s *Story) TotalDuration() int {
	total := 0
	for _, scene := range s.Scenes {
		total += scene.DurationSeconds
	}
	return total
}
