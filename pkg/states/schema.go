package states

// definitionSchema is the JSON schema every graph definition document must
// satisfy before decoding. It checks document shape only; referential
// integrity (targets exist, single entry) is Graph.Validate's job.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["startAt", "states"],
  "properties": {
    "name": {"type": "string"},
    "startAt": {"type": "string", "minLength": 1},
    "states": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"$ref": "#/definitions/state"}
    }
  },
  "definitions": {
    "state": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"enum": ["task", "wait", "choice", "pass", "fail", "terminal"]},
        "operation": {"type": "string"},
        "input": {"type": "object"},
        "outputPath": {"type": "string"},
        "seconds": {"type": "number", "exclusiveMinimum": 0},
        "rules": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["when", "next"],
            "properties": {
              "when": {"type": "object"},
              "next": {"type": "string", "minLength": 1}
            }
          }
        },
        "default": {"type": "string"},
        "copyFrom": {"type": "string"},
        "copyTo": {"type": "string"},
        "reason": {"type": "string"},
        "next": {"type": "string"}
      },
      "allOf": [
        {
          "if": {"properties": {"type": {"const": "task"}}},
          "then": {"required": ["operation", "outputPath", "next"]}
        },
        {
          "if": {"properties": {"type": {"const": "wait"}}},
          "then": {"required": ["seconds", "next"]}
        },
        {
          "if": {"properties": {"type": {"const": "choice"}}},
          "then": {"required": ["rules", "default"]}
        },
        {
          "if": {"properties": {"type": {"const": "pass"}}},
          "then": {"required": ["next"]}
        }
      ]
    }
  }
}`
