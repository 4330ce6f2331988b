package services

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("no json object in model reply")

// decodeModelJSON decodes the outermost JSON object of a model reply into v.
// Markdown fences and any prose around the object are ignored.
func decodeModelJSON(reply string, v any) error {
	body := strings.NewReplacer("```json", "", "```JSON", "", "```", "").Replace(reply)

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start == -1 || end <= start {
		return errNoJSONObject
	}

	return json.Unmarshal([]byte(body[start:end+1]), v)
}
