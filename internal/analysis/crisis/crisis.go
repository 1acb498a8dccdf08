// Package crisis spots messages that must bypass the language model and get
// the fixed supportive response.
package crisis

import "regexp"

var pattern = regexp.MustCompile(`(?i)(suicide|kill myself|end my life|self-harm|self harm|hurt myself|` +
	`harm myself|kill (?:him|her|them|someone)|i don'?t want to live|` +
	`i can'?t go on|overdose|cutting|i want to die)`)

// Response is returned instead of a model reply when Detect matches.
const Response = "I'm really sorry you're going through this. You deserve care and support.\n\n" +
	"If you feel in immediate danger, please contact **local emergency services** or a " +
	"trusted person nearby right now.\n\n" +
	"You can also consider reaching out to a **local mental health professional** or a " +
	"confidential helpline in your country. If you can, talk to someone you trust about how you feel.\n\n" +
	"I'm here to listen. Would you like to tell me more about what's been hardest lately?"

// Detect reports whether message contains a crisis phrase.
func Detect(message string) bool {
	return pattern.MatchString(message)
}
