package models

// Settings represents the user-configurable values saved from the extension.
// Every field is optional until an operation needs it.
type Settings struct {
	UserName      string `json:"userName,omitempty"`
	UserAbout     string `json:"userAbout,omitempty"`
	APIKey        string `json:"apiKey,omitempty"`
	SignatureHTML string `json:"signatureHtml,omitempty"`
	ResumePath    string `json:"resumePath,omitempty"`
	ApolloAPIKey  string `json:"apolloApiKey,omitempty"`
}

// Merge returns a copy of s with every non-empty field of update applied
func (s Settings) Merge(update Settings) Settings {
	if update.UserName != "" {
		s.UserName = update.UserName
	}
	if update.UserAbout != "" {
		s.UserAbout = update.UserAbout
	}
	if update.APIKey != "" {
		s.APIKey = update.APIKey
	}
	if update.SignatureHTML != "" {
		s.SignatureHTML = update.SignatureHTML
	}
	if update.ResumePath != "" {
		s.ResumePath = update.ResumePath
	}
	if update.ApolloAPIKey != "" {
		s.ApolloAPIKey = update.ApolloAPIKey
	}
	return s
}

// MissingForGeneration lists the JSON names of fields email generation needs but lacks
func (s Settings) MissingForGeneration() []string {
	var missing []string
	if s.UserName == "" {
		missing = append(missing, "userName")
	}
	if s.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	return missing
}
