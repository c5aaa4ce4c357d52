package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// triggerPayloadSchema is the contract the assembled payload must satisfy
// before any network call to the destination is attempted.
const triggerPayloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["event", "repository", "pullRequest", "sender", "changedFiles", "comments"],
  "properties": {
    "event": {
      "type": "object",
      "required": ["type", "action"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "action": {"type": "string"}
      }
    },
    "repository": {
      "type": "object",
      "required": ["owner", "name", "fullName"],
      "properties": {
        "owner": {"type": "string", "minLength": 1},
        "name": {"type": "string", "minLength": 1},
        "fullName": {"type": "string", "minLength": 1},
        "url": {"type": "string"},
        "defaultBranch": {"type": "string"}
      }
    },
    "pullRequest": {
      "type": "object",
      "required": ["number", "title", "url", "state", "base", "head"],
      "properties": {
        "number": {"type": "integer", "minimum": 1},
        "title": {"type": "string"},
        "body": {"type": "string"},
        "url": {"type": "string"},
        "state": {"type": "string"},
        "base": {"$ref": "#/definitions/branchRef"},
        "head": {"$ref": "#/definitions/branchRef"}
      }
    },
    "sender": {"$ref": "#/definitions/user"},
    "changedFiles": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "status"],
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "status": {
            "type": "string",
            "enum": ["added", "modified", "removed", "renamed", "copied", "changed", "unchanged"]
          },
          "additions": {"type": "integer", "minimum": 0},
          "deletions": {"type": "integer", "minimum": 0}
        }
      }
    },
    "comments": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "body", "author", "type"],
        "properties": {
          "id": {"type": "integer"},
          "body": {"type": "string"},
          "author": {"$ref": "#/definitions/user"},
          "type": {"type": "string", "enum": ["issue", "review", "review_summary"]}
        }
      }
    },
    "triggerComment": {"type": "object"},
    "diff": {"type": "string"}
  },
  "definitions": {
    "user": {
      "type": "object",
      "required": ["login"],
      "properties": {
        "login": {"type": "string", "minLength": 1},
        "id": {"type": "integer"}
      }
    },
    "branchRef": {
      "type": "object",
      "required": ["ref", "sha"],
      "properties": {
        "ref": {"type": "string"},
        "sha": {"type": "string"}
      }
    }
  }
}`

// triggerResponseSchema is the expected shape of the destination's 202 body
const triggerResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["success", "invocationId", "conversationId"],
  "properties": {
    "success": {"type": "boolean"},
    "invocationId": {"type": "string", "minLength": 1},
    "conversationId": {"type": "string", "minLength": 1}
  }
}`

// ValidatePayloadJSON validates serialized payload bytes against the payload
// schema. Returns a joined description of all violations, or nil.
func ValidatePayloadJSON(data []byte) error {
	return validateAgainst(triggerPayloadSchema, data)
}

// ValidateResponseJSON validates serialized response bytes against the
// response schema.
func ValidateResponseJSON(data []byte) error {
	return validateAgainst(triggerResponseSchema, data)
}

func validateAgainst(schema string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation could not run: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, violation := range result.Errors() {
		details = append(details, violation.String())
	}
	return fmt.Errorf("schema violations: %s", strings.Join(details, "; "))
}
