package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// RootPath is the path reported for errors that concern the whole document
const RootPath = "(root)"

const indicatorSchemaDef = `{
	"type": "object",
	"required": ["value", "category", "riskLevel", "description"],
	"properties": {
		"value":       {"type": "string"},
		"category":    {"type": "string", "minLength": 1},
		"riskLevel":   {"type": "string", "enum": ["high", "medium", "low", "unknown"]},
		"description": {"type": "string"}
	}
}`

// IOCResultSchema is the JSON Schema every extraction payload must satisfy
var IOCResultSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["indicators", "categories"],
	"definitions": {
		"indicator": ` + indicatorSchemaDef + `
	},
	"properties": {
		"indicators": {
			"type": "array",
			"items": {"$ref": "#/definitions/indicator"}
		},
		"categories": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "count", "indicators"],
				"properties": {
					"name":       {"type": "string"},
					"count":      {"type": "integer", "minimum": 0},
					"indicators": {"type": "array", "items": {"$ref": "#/definitions/indicator"}}
				}
			}
		}
	}
}`

// SearchQueryResultSchema is the JSON Schema every query-synthesis payload must satisfy
var SearchQueryResultSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["qradar", "sentinel"],
	"definitions": {
		"query": {
			"type": "object",
			"required": ["name", "query"],
			"properties": {
				"name":  {"type": "string"},
				"query": {"type": "string"}
			}
		}
	},
	"properties": {
		"qradar":   {"type": "array", "items": {"$ref": "#/definitions/query"}},
		"sentinel": {"type": "array", "items": {"$ref": "#/definitions/query"}}
	}
}`

var (
	iocResultSchema         = mustCompileSchema(IOCResultSchema)
	searchQueryResultSchema = mustCompileSchema(SearchQueryResultSchema)
)

func mustCompileSchema(def string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

// ParseIOCResult validates raw against IOCResultSchema and decodes it.
// Categories outside KnownCategories are accepted with a warning.
func ParseIOCResult(logger *zap.SugaredLogger, raw []byte) (*IOCResult, error) {
	const op = "core.ParseIOCResult"
	if err := validateDocument(op, iocResultSchema, raw); err != nil {
		return nil, err
	}

	var result IOCResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Msg: "payload does not match IOC result shape", Path: RootPath, Err: err}
	}

	if logger != nil {
		for _, ind := range result.Indicators {
			if !IsKnownCategory(ind.Category) {
				logger.Warnw("Unknown IOC category received", "category", ind.Category, "value", ind.Value)
			}
		}
		for _, cat := range result.Categories {
			if cat.Count != len(cat.Indicators) {
				logger.Debugw("Category count does not match indicator list",
					"category", cat.Name, "count", cat.Count, "indicators", len(cat.Indicators))
			}
		}
	}

	return &result, nil
}

// ParseSearchQueryResult validates raw against SearchQueryResultSchema and decodes it
func ParseSearchQueryResult(raw []byte) (*SearchQueryResult, error) {
	const op = "core.ParseSearchQueryResult"
	if err := validateDocument(op, searchQueryResultSchema, raw); err != nil {
		return nil, err
	}

	var result SearchQueryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Msg: "payload does not match search query shape", Path: RootPath, Err: err}
	}
	return &result, nil
}

func validateDocument(op string, schema *gojsonschema.Schema, raw []byte) error {
	if !json.Valid(raw) {
		return &Error{Kind: KindValidation, Op: op, Msg: "payload is not valid JSON", Path: RootPath}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &Error{Kind: KindValidation, Op: op, Msg: "payload could not be validated", Path: RootPath, Err: err}
	}
	if result.Valid() {
		return nil
	}

	// schema property order is not stable, so report the shallowest violation first
	errs := result.Errors()
	sort.SliceStable(errs, func(i, j int) bool {
		pi, pj := errorPath(errs[i]), errorPath(errs[j])
		di, dj := strings.Count(pi, "."), strings.Count(pj, ".")
		if di != dj {
			return di < dj
		}
		return pi < pj
	})

	details := make([]string, 0, len(errs))
	for _, desc := range errs {
		details = append(details, fmt.Sprintf("%s: %s", errorPath(desc), desc.Description()))
	}
	return &Error{
		Kind:    KindValidation,
		Op:      op,
		Msg:     fmt.Sprintf("schema validation failed: %s", strings.Join(details, "; ")),
		Path:    errorPath(errs[0]),
		Details: details,
	}
}

// errorPath returns the dotted field path of a schema violation. Missing required
// properties are reported on the property itself rather than its parent.
func errorPath(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() != "required" {
		return field
	}
	prop, ok := desc.Details()["property"].(string)
	if !ok || prop == "" {
		return field
	}
	if field == RootPath || field == "" {
		return prop
	}
	return field + "." + prop
}
