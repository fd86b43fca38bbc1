// internal/analyzer/prompt.go
package analyzer

const schemaName = "nutrition_analysis"

const systemPrompt = `You are a nutrition expert. Analyze the food in the image and provide accurate nutritional information. Estimate portion sizes carefully and provide realistic nutritional values. Always respond with the exact JSON structure requested.`

// freeTextSystemPrompt is used when the provider cannot constrain output to
// a schema, so the shape has to be spelled out.
const freeTextSystemPrompt = systemPrompt + `

IMPORTANT: Always respond with valid JSON in this exact format and nothing else:
{
  "name": "name of the food item",
  "calories": [number],
  "carbs": [number],
  "fat": [number],
  "protein": [number]
}

Calories are kilocalories. Carbs, fat and protein are grams.`

const userPrompt = `Analyze this food image and provide nutritional information including name, calories, carbs, fat, and protein. Be as accurate as possible with portion size estimation.`

// nutritionSchema is the strict JSON schema for the five-field reply.
func nutritionSchema() *ResponseSchema {
	number := func(description string) map[string]interface{} {
		return map[string]interface{}{"type": "number", "description": description}
	}
	return &ResponseSchema{
		Name:   schemaName,
		Strict: true,
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the food item",
				},
				"calories": number("The estimated calories in the food"),
				"carbs":    number("The estimated carbohydrates in grams"),
				"fat":      number("The estimated fat content in grams"),
				"protein":  number("The estimated protein content in grams"),
			},
			"required":             []string{"name", "calories", "carbs", "fat", "protein"},
			"additionalProperties": false,
		},
	}
}
