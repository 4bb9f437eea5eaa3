package search

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/imathwy/tbps/internal/models"
)

const (
	MaxExpressionLength = 1000
	DefaultK            = 20
	MinK                = 1
	MaxK                = 100
	MinNodeRatio        = 1.0
	MaxNodeRatio        = 2.0
)

// Input is a search form as typed by a user. K and NodeRatio are raw text;
// an empty K means the default, an empty NodeRatio means "let the backend decide".
type Input struct {
	Expression string
	K          string
	NodeRatio  string
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// Validation is the outcome of Validate: Params when OK, field errors otherwise.
type Validation struct {
	Params models.SearchParameters
	Errors []FieldError
}

func (v Validation) OK() bool {
	return len(v.Errors) == 0
}

func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return &ValidationError{Fields: v.Errors}
}

func Validate(input Input) Validation {
	var result Validation

	length := utf8.RuneCountInString(input.Expression)
	switch {
	case length == 0:
		result.addError("expression", "Expression is required")
	case length > MaxExpressionLength:
		result.addError("expression", "Expression too long (max 1000 chars)")
	default:
		result.Params.Expression = input.Expression
	}

	k := DefaultK
	if raw := strings.TrimSpace(input.K); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			if _, floatErr := strconv.ParseFloat(raw, 64); floatErr == nil {
				result.addError("k", "Must be a whole number")
			} else {
				result.addError("k", "Must be a number")
			}
		}
		k = parsed
	}
	if result.fieldOK("k") {
		switch {
		case k < MinK:
			result.addError("k", "Must be at least 1")
		case k > MaxK:
			result.addError("k", "Must be at most 100")
		default:
			result.Params.K = k
		}
	}

	if raw := strings.TrimSpace(input.NodeRatio); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil || math.IsNaN(ratio) || math.IsInf(ratio, 0):
			result.addError("node_ratio", "Must be a number")
		case ratio < MinNodeRatio:
			result.addError("node_ratio", "Must be at least 1.0")
		case ratio > MaxNodeRatio:
			result.addError("node_ratio", "Must be at most 2.0")
		default:
			result.Params.NodeRatio = &ratio
		}
	}

	if !result.OK() {
		result.Params = models.SearchParameters{}
	}
	return result
}

// ValidateParameters checks already typed parameters against the same bounds.
func ValidateParameters(params models.SearchParameters) Validation {
	input := Input{
		Expression: params.Expression,
		K:          strconv.Itoa(params.K),
	}
	if params.NodeRatio != nil {
		input.NodeRatio = strconv.FormatFloat(*params.NodeRatio, 'f', -1, 64)
	}
	return Validate(input)
}

func (v *Validation) addError(field string, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

func (v *Validation) fieldOK(field string) bool {
	for _, e := range v.Errors {
		if e.Field == field {
			return false
		}
	}
	return true
}
