package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"coldsend-backend/models"

	"github.com/xeipuuv/gojsonschema"
)

// draftStrategy extracts a draft from model output, reporting whether it matched
type draftStrategy func(text string) (models.Draft, bool)

// draftStrategies are tried in order; the identity fallback runs when none match
var draftStrategies = []draftStrategy{
	parseJSONDraft,
	parseLabeledDraft,
}

// ParseDraft extracts a subject and body from raw LLM output. It never fails:
// text that matches no known shape becomes the body with an empty subject.
func ParseDraft(text string) models.Draft {
	for _, strategy := range draftStrategies {
		if draft, ok := strategy(text); ok {
			return draft
		}
	}
	return models.Draft{Body: strings.TrimSpace(text)}
}

var draftSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["subject", "body"],
	"properties": {
		"subject": {"type": "string"},
		"body": {"type": "string"}
	}
}`)

var compiledDraftSchema = mustCompileSchema(draftSchema)

func mustCompileSchema(loader gojsonschema.JSONLoader) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		panic(err)
	}
	return schema
}

// parseJSONDraft finds the first embedded JSON object carrying string
// subject and body keys. Each '{' is tried as the start of an object so
// surrounding prose and unrelated braces are skipped.
func parseJSONDraft(text string) (models.Draft, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}

		rest := text[i:]
		if !strings.Contains(rest, `"subject"`) || !strings.Contains(rest, `"body"`) {
			return models.Draft{}, false
		}

		var obj map[string]interface{}
		if err := json.NewDecoder(strings.NewReader(rest)).Decode(&obj); err != nil {
			continue
		}

		result, err := compiledDraftSchema.Validate(gojsonschema.NewGoLoader(obj))
		if err != nil || !result.Valid() {
			continue
		}

		subject, _ := obj["subject"].(string)
		body, _ := obj["body"].(string)
		return models.Draft{
			Subject: strings.TrimSpace(subject),
			Body:    strings.TrimSpace(body),
		}, true
	}
	return models.Draft{}, false
}

var (
	subjectLinePattern = regexp.MustCompile(`(?im)^[ \t]*subject:[ \t]*(.*)$`)
	bodyLabelPattern   = regexp.MustCompile(`(?i)^body:[ \t]*`)
)

// parseLabeledDraft handles "Subject: ..." followed by the body, optionally labeled "Body:"
func parseLabeledDraft(text string) (models.Draft, bool) {
	loc := subjectLinePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return models.Draft{}, false
	}

	subject := strings.TrimSpace(text[loc[2]:loc[3]])
	body := strings.TrimSpace(text[loc[1]:])
	body = strings.TrimSpace(bodyLabelPattern.ReplaceAllString(body, ""))

	return models.Draft{Subject: subject, Body: body}, true
}
