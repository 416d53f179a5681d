package story

import "fmt"

const storyPrompt = `Create a %[1]s Telugu story for YouTube (5-7 minutes, family audience).

Return ONLY valid JSON. Do not add any explanation before or after it and do not wrap it in markdown code fences.
Use exactly this shape:
{
  "title_telugu": "Story title in Telugu",
  "title_english": "Story title in English",
  "category": "%[1]s",
  "scenes": [
    {
      "scene_number": 1,
      "telugu_dialogue": "First scene in Telugu",
      "english_translation": "English translation",
      "action": "Scene description",
      "duration_seconds": 20
    },
    {
      "scene_number": 2,
      "telugu_dialogue": "Second scene in Telugu",
      "english_translation": "English translation",
      "action": "Scene description",
      "duration_seconds": 20
    }
  ],
  "moral": "The lesson",
  "tags": ["tag1", "tag2", "tag3"],
  "description": "YouTube description",
  "thumbnail_text": "Thumbnail text"
}`

// BuildPrompt returns the instruction requesting a story of the given
// category in the JSON shape Decode expects.
func BuildPrompt(c Category) string {
	return fmt.Sprintf(storyPrompt, c)
}
