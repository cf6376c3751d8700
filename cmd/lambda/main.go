// Command lambda serves idea generation as an API Gateway proxy function. Rate limiting
// and analytics are left to the HTTP server.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/idea-forge/internal/completion"
	"github.com/ZanzyTHEbar/idea-forge/internal/config"
	"github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/ZanzyTHEbar/idea-forge/internal/generation"
	"github.com/ZanzyTHEbar/idea-forge/internal/monitoring"
	"github.com/ZanzyTHEbar/idea-forge/internal/types"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

type generator interface {
	Generate(ctx context.Context, params types.GenerationParams, userID string) ([]types.GeneratedIdea, error)
}

// ErrorResponse is the body of every non-200 reply
type ErrorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	gen generator
}

func (h *handler) handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if request.HTTPMethod != http.MethodPost {
		return errorResponse(http.StatusMethodNotAllowed, "Method not allowed"), nil
	}

	body := []byte(request.Body)
	// API Gateway base64-encodes bodies it treats as binary
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return errorResponse(http.StatusBadRequest, "Invalid base64 request body"), nil
		}
		body = decoded
	}

	var params types.GenerationParams
	if err := json.Unmarshal(body, &params); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid JSON in request body"), nil
	}

	interests := params.Interests[:0]
	for _, interest := range params.Interests {
		if interest = strings.TrimSpace(interest); interest != "" {
			interests = append(interests, interest)
		}
	}
	if len(interests) == 0 {
		return errorResponse(http.StatusBadRequest, "At least one interest is required"), nil
	}
	params.Interests = interests

	ideas, err := h.gen.Generate(ctx, params, request.RequestContext.RequestID)
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogAppError(slog.Default(), appErr)
		return errorResponse(http.StatusInternalServerError, appErr.Message), nil
	}

	return jsonResponse(http.StatusOK, types.GenerateResponse{Ideas: ideas}), nil
}

func jsonResponse(statusCode int, v any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(v)
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}
}

func errorResponse(statusCode int, message string) events.APIGatewayProxyResponse {
	return jsonResponse(statusCode, ErrorResponse{Error: message})
}

func newHandler(cfg *config.Config, logger *monitoring.Logger) *handler {
	client := completion.NewOpenAIClient(completion.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	}, nil, logger)

	genConfig := generation.DefaultConfig()
	genConfig.Temperature = cfg.OpenAITemperature
	genConfig.MaxTokens = cfg.OpenAIMaxTokens

	return &handler{gen: generation.NewService(generation.Deps{Client: client, Logger: logger}, genConfig)}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(monitoring.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger.Logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	lambda.Start(newHandler(cfg, logger).handle)
}
