// internal/analyzer/parse.go
package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// nutritionOutput is the decoded model reply. Macro fields are float64
// whether the model wrote 105 or 105.0.
type nutritionOutput struct {
	Name     string
	Calories float64
	Carbs    float64
	Fat      float64
	Protein  float64
}

// parseNutrition decodes a model reply. Schema-constrained replies are plain
// JSON and decode directly; free-text replies fall back to brace extraction.
func parseNutrition(content string) (nutritionOutput, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nutritionOutput{}, ErrEmptyResponse
	}

	if !gjson.Valid(text) {
		extracted, ok := extractJSONObject(text)
		if !ok {
			return nutritionOutput{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedResponse)
		}
		if !gjson.Valid(extracted) {
			return nutritionOutput{}, fmt.Errorf("%w: extracted text is not valid JSON", ErrMalformedResponse)
		}
		text = extracted
	}

	root := gjson.Parse(text)
	if !root.IsObject() {
		return nutritionOutput{}, fmt.Errorf("%w: response is not a JSON object", ErrMalformedResponse)
	}

	name := root.Get("name")
	if !name.Exists() {
		return nutritionOutput{}, fmt.Errorf("%w: missing field %q", ErrMalformedResponse, "name")
	}
	if name.Type != gjson.String {
		return nutritionOutput{}, fmt.Errorf("%w: field %q is not a string", ErrMalformedResponse, "name")
	}

	out := nutritionOutput{Name: strings.TrimSpace(name.String())}
	if out.Name == "" {
		return nutritionOutput{}, fmt.Errorf("%w: field %q is empty", ErrMalformedResponse, "name")
	}

	macros := []struct {
		field string
		dst   *float64
	}{
		{"calories", &out.Calories},
		{"carbs", &out.Carbs},
		{"fat", &out.Fat},
		{"protein", &out.Protein},
	}
	for _, m := range macros {
		v := root.Get(m.field)
		if !v.Exists() {
			return nutritionOutput{}, fmt.Errorf("%w: missing field %q", ErrMalformedResponse, m.field)
		}
		if v.Type != gjson.Number {
			return nutritionOutput{}, fmt.Errorf("%w: field %q is not a number", ErrMalformedResponse, m.field)
		}
		f := v.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nutritionOutput{}, fmt.Errorf("%w: field %q is out of range", ErrMalformedResponse, m.field)
		}
		if f < 0 {
			return nutritionOutput{}, fmt.Errorf("%w: field %q is negative", ErrMalformedResponse, m.field)
		}
		*m.dst = f
	}

	return out, nil
}

// extractJSONObject returns the text from the first '{' to the last '}'.
// It does not balance braces: a reply carrying several brace-delimited
// fragments yields one span covering all of them, which then fails to
// decode as a single object.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
