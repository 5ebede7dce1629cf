package synthesis

import "strings"

// Voice is an entry of the voice catalogue.
type Voice struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Language    string `json:"language"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

var voiceCatalogue = map[string][]Voice{
	"en-US": {
		{Name: "en-US-Wavenet-A", Provider: "google", Language: "en-US", Gender: "MALE", Description: "Male voice"},
		{Name: "en-US-Wavenet-B", Provider: "google", Language: "en-US", Gender: "MALE", Description: "Male voice"},
		{Name: "en-US-Wavenet-C", Provider: "google", Language: "en-US", Gender: "FEMALE", Description: "Female voice"},
		{Name: "en-US-Wavenet-D", Provider: "google", Language: "en-US", Gender: "MALE", Description: "Male voice"},
		{Name: "en-US-Wavenet-E", Provider: "google", Language: "en-US", Gender: "FEMALE", Description: "Female voice"},
		{Name: "en-US-Wavenet-F", Provider: "google", Language: "en-US", Gender: "FEMALE", Description: "Female voice"},
		{Name: "en-US-AriaNeural", Provider: "azure", Language: "en-US", Gender: "FEMALE", Description: "Neural female voice"},
		{Name: "en-US-GuyNeural", Provider: "azure", Language: "en-US", Gender: "MALE", Description: "Neural male voice"},
	},
	"en-GB": {
		{Name: "en-GB-Wavenet-A", Provider: "google", Language: "en-GB", Gender: "FEMALE", Description: "British female voice"},
		{Name: "en-GB-Wavenet-B", Provider: "google", Language: "en-GB", Gender: "MALE", Description: "British male voice"},
		{Name: "en-GB-Wavenet-C", Provider: "google", Language: "en-GB", Gender: "FEMALE", Description: "British female voice"},
		{Name: "en-GB-Wavenet-D", Provider: "google", Language: "en-GB", Gender: "MALE", Description: "British male voice"},
		{Name: "en-GB-SoniaNeural", Provider: "azure", Language: "en-GB", Gender: "FEMALE", Description: "Neural British female voice"},
		{Name: "en-GB-RyanNeural", Provider: "azure", Language: "en-GB", Gender: "MALE", Description: "Neural British male voice"},
	},
}

// Voices returns the catalogue for a language, defaulting to en-US.
func Voices(language string) []Voice {
	for key, voices := range voiceCatalogue {
		if strings.EqualFold(key, strings.TrimSpace(language)) {
			return append([]Voice(nil), voices...)
		}
	}
	return append([]Voice(nil), voiceCatalogue[DefaultLanguage]...)
}

// Languages lists the languages with catalogue entries.
func Languages() []string {
	return []string{"en-US", "en-GB"}
}
