package caption

import "fmt"

const systemPrompt = "You are a creative assistant that writes fun, playful postcard messages. Keep responses under 60 characters."

var filterContext = map[string]string{
	"none":     "a fun and friendly postcard",
	"mustache": "a sophisticated and humorous postcard with a mustache theme",
	"neon":     "a vibrant, electric, and colorful postcard",
	"pixel":    "a retro, pixelated, and nostalgic postcard",
	"flare":    "a vintage, nostalgic 1990s-style postcard",
}

// PromptFor returns the user prompt for a filter wire name, using the "none" prompt for unknown names
func PromptFor(filterType string) string {
	context, ok := filterContext[filterType]
	if !ok {
		context = filterContext["none"]
	}

	return fmt.Sprintf(`Generate a short, playful, and fun postcard message (maximum %d characters) for %s.
The message should be:
- Warm and friendly
- Playful and lighthearted
- Perfect for a postcard
- Include emojis if appropriate (but keep it under %d characters total)
- Be creative and unique

Return ONLY the message text, nothing else.`, MaxLength, context, MaxLength)
}
