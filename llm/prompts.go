package llm

import "fmt"

// BuildPostPrompt builds the announcement post prompt from a video's title
// and description. The markup instructions match what the Telegram caption
// contract allows.
func BuildPostPrompt(title, description string) string {
	return fmt.Sprintf(`Write a short announcement post for a new release video.

Title: %s

Description:
%s

Requirements:
- 3 to 5 sentences, engaging but factual.
- Use HTML tags <b> and <i> for emphasis only. No other tags.
- Do not include links; they are appended separately.`, title, description)
}

// BuildGenrePrompt builds the genre classification prompt.
func BuildGenrePrompt(title, description, videoURL string) string {
	return fmt.Sprintf(`Determine the musical genre of the release below.

Title: %s

Description:
%s

Video: %s

Answer with a single genre word or short phrase, nothing else.`, title, description, videoURL)
}
