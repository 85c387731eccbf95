package progress

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// blobSchemaJSON describes the stored blob. Unknown fields are allowed so an
// older or newer front end can share the key.
const blobSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["progress"],
  "properties": {
    "progress": {
      "type": "object",
      "properties": {
        "topics": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "properties": {
              "progress": {"type": "integer", "minimum": 0, "maximum": 100},
              "xp": {"type": "integer", "minimum": 0},
              "lastAccessed": {"type": "string"}
            }
          }
        },
        "xp": {"type": "integer", "minimum": 0},
        "streak": {"type": "integer", "minimum": 0},
        "lastStudyDate": {"type": ["string", "null"]},
        "studyTimeMinutes": {"type": "integer", "minimum": 0},
        "quizScores": {"type": "object"},
        "bookmarks": {"type": "array", "items": {"type": "string"}},
        "notes": {"type": "object", "additionalProperties": {"type": "string"}},
        "achievements": {"type": "array", "items": {"type": "string"}}
      }
    },
    "settings": {
      "type": "object",
      "properties": {
        "darkMode": {"type": "boolean"},
        "notifications": {"type": "boolean"},
        "soundEffects": {"type": "boolean"}
      }
    }
  }
}`

var blobSchema = mustCompileSchema(blobSchemaJSON)

func mustCompileSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("progress: compiling blob schema: %v", err))
	}
	return schema
}

// validateBlob checks a stored blob before it is decoded.
func validateBlob(data []byte) error {
	result, err := blobSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validating blob: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid blob: %s", strings.Join(msgs, "; "))
}
