package plugin

import "os"

// ConfigParser provides utilities for parsing publisher configurations.
// It handles type-safe extraction of values from map[string]any config
// with support for environment variable fallbacks.
type ConfigParser struct {
	raw map[string]any
}

// NewConfigParser creates a new ConfigParser for the given config map.
func NewConfigParser(config map[string]any) *ConfigParser {
	if config == nil {
		config = make(map[string]any)
	}
	return &ConfigParser{raw: config}
}

// GetString extracts a string field with optional fallback to environment
// variables. Returns empty string if the field is not found or not a
// string.
func (p *ConfigParser) GetString(field string, envVars ...string) string {
	if v, ok := p.raw[field].(string); ok && v != "" {
		return v
	}
	for _, envVar := range envVars {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}
	return ""
}

// GetBool extracts a boolean field. Returns false if the field is not
// found or not a boolean.
func (p *ConfigParser) GetBool(field string) bool {
	if v, ok := p.raw[field].(bool); ok {
		return v
	}
	return false
}

// GetStringSlice extracts a string slice field. JSON decoding produces
// []any, so both forms are handled.
func (p *ConfigParser) GetStringSlice(field string) []string {
	switch v := p.raw[field].(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// Has reports whether a field is present.
func (p *ConfigParser) Has(field string) bool {
	_, ok := p.raw[field]
	return ok
}

// RequireStrings returns a ValidateResponse flagging every named field
// that is missing or empty.
func RequireStrings(config map[string]any, fields ...string) *ValidateResponse {
	parser := NewConfigParser(config)
	resp := &ValidateResponse{Valid: true}
	for _, field := range fields {
		if parser.GetString(field) == "" {
			resp.Valid = false
			resp.Errors = append(resp.Errors, ValidationError{
				Field:   field,
				Message: "required field is missing or empty",
			})
		}
	}
	return resp
}
