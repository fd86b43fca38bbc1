// internal/server/tools.go
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-food-log/internal/analyzer"
	"mcp-food-log/internal/models"
	"mcp-food-log/internal/storage"
)

var (
	errInvalidParams  = errors.New("invalid parameters")
	errAnalysisFailed = errors.New("food analysis failed")
)

const defaultListLimit = 20

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type FoodPhotoParams struct {
	ImageBase64 string `json:"image_base64" description:"JPEG or PNG photo of the food, base64 or data URL"`
}

type LogFoodParams struct {
	Name      string  `json:"name" description:"Name of the food"`
	Calories  float64 `json:"calories,omitempty" description:"Kilocalories"`
	Carbs     float64 `json:"carbs,omitempty" description:"Carbohydrates in grams"`
	Fat       float64 `json:"fat,omitempty" description:"Fat in grams"`
	Protein   float64 `json:"protein,omitempty" description:"Protein in grams"`
	Timestamp string  `json:"timestamp,omitempty" description:"ISO timestamp of when the food was eaten (defaults to now)"`
}

type GetFoodsParams struct {
	Date  string `json:"date,omitempty" description:"Calendar day to list (YYYY-MM-DD)"`
	Days  int    `json:"days,omitempty" description:"Only list foods from the trailing number of days"`
	Limit int    `json:"limit,omitempty" description:"Maximum number of foods to return"`
}

type DeleteFoodParams struct {
	ID string `json:"id" description:"Identifier of the food to delete"`
}

type GetSummaryParams struct {
	Period string `json:"period,omitempty" description:"today or week (defaults to today)"`
	Days   int    `json:"days,omitempty" description:"Trailing number of days, overrides period"`
}

func (s *FoodLogServer) tools() map[string]toolHandler {
	return map[string]toolHandler{
		"analyze_food_photo": s.handleAnalyzeFoodPhoto,
		"log_food_photo":     s.handleLogFoodPhoto,
		"log_food":           s.handleLogFood,
		"get_foods":          s.handleGetFoods,
		"delete_food":        s.handleDeleteFood,
		"get_summary":        s.handleGetSummary,
	}
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %v", errInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	return nil
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: image_base64 is required", errInvalidParams)
	}
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i != -1 {
			encoded = encoded[i+1:]
		}
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: image_base64 is not valid base64: %v", errInvalidParams, err)
	}
	return data, nil
}

// analyzePhoto runs the analyzer and records the outcome. Failures other
// than the analyzer's own error kinds are transport failures and are tagged
// so they map to 502.
func (s *FoodLogServer) analyzePhoto(ctx context.Context, req *protocol.CallToolRequest) (*models.NutritionRecord, error) {
	var params FoodPhotoParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	image, err := decodeImage(params.ImageBase64)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	record, err := s.analyzer.Analyze(ctx, image)
	s.metrics.observeAnalysis(start, err)
	if err != nil {
		switch {
		case errors.Is(err, analyzer.ErrMalformedResponse):
			return nil, fmt.Errorf("could not identify food in image: %w", err)
		case errors.Is(err, analyzer.ErrEncodingFailure),
			errors.Is(err, analyzer.ErrEmptyResponse):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %w", errAnalysisFailed, err)
		}
	}
	return record, nil
}

// handleAnalyzeFoodPhoto estimates nutrition without logging the food
func (s *FoodLogServer) handleAnalyzeFoodPhoto(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	record, err := s.analyzePhoto(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(record)
}

// handleLogFoodPhoto estimates nutrition and logs the food. Nothing is
// written when the analysis fails.
func (s *FoodLogServer) handleLogFoodPhoto(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	record, err := s.analyzePhoto(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.storage.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	s.metrics.records.WithLabelValues(string(record.Source)).Inc()
	slog.Info("Logged food from photo", "id", record.ID, "name", record.Name, "calories", record.Calories)

	return s.createJSONResponse(record)
}

// handleLogFood logs a manual entry
func (s *FoodLogServer) handleLogFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", errInvalidParams)
	}

	timestamp := time.Now()
	if params.Timestamp != "" {
		var err error
		timestamp, err = time.Parse(time.RFC3339, params.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timestamp format: %v", errInvalidParams, err)
		}
	}

	record, err := models.NewNutritionRecord(name, params.Calories, params.Carbs, params.Fat, params.Protein, timestamp, models.SourceManual)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	if err := s.storage.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	s.metrics.records.WithLabelValues(string(record.Source)).Inc()

	return s.createJSONResponse(record)
}

// handleGetFoods lists logged foods, newest first
func (s *FoodLogServer) handleGetFoods(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetFoodsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	filter := storage.Filter{Limit: params.Limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}

	if params.Date != "" {
		day, err := time.ParseInLocation(time.DateOnly, params.Date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date format: %v", errInvalidParams, err)
		}
		filter.Since = day
		filter.Until = day.AddDate(0, 0, 1)
	}
	if params.Days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", errInvalidParams)
	}
	if params.Days > 0 {
		since := time.Now().AddDate(0, 0, -params.Days)
		if since.After(filter.Since) {
			filter.Since = since
		}
	}

	records, err := s.storage.ListRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve records: %w", err)
	}

	return s.createJSONResponse(records)
}

// handleDeleteFood removes a single logged food
func (s *FoodLogServer) handleDeleteFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DeleteFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidParams)
	}

	if err := s.storage.DeleteRecord(ctx, params.ID); err != nil {
		return nil, err
	}

	return s.createJSONResponse(map[string]interface{}{"deleted": params.ID})
}

// handleGetSummary totals today or a trailing window
func (s *FoodLogServer) handleGetSummary(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetSummaryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	now := time.Now()
	var summary *models.Summary
	var err error

	switch {
	case params.Days < 0:
		return nil, fmt.Errorf("%w: days must not be negative", errInvalidParams)
	case params.Days > 0:
		summary, err = s.storage.TrailingSummary(ctx, now, params.Days)
	case params.Period == "" || params.Period == "today":
		summary, err = s.storage.DaySummary(ctx, now)
	case params.Period == "week":
		summary, err = s.storage.TrailingSummary(ctx, now, 7)
	default:
		return nil, fmt.Errorf("%w: unknown period %q", errInvalidParams, params.Period)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to summarize records: %w", err)
	}

	return s.createJSONResponse(summary)
}
