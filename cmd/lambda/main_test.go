package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	apperrors "github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/ZanzyTHEbar/idea-forge/internal/types"
	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	ideas  []types.GeneratedIdea
	err    error
	params types.GenerationParams
	calls  int
}

func (s *stubGenerator) Generate(_ context.Context, params types.GenerationParams, _ string) ([]types.GeneratedIdea, error) {
	s.calls++
	s.params = params
	return s.ideas, s.err
}

func TestHandle(t *testing.T) {
	ideas := []types.GeneratedIdea{{Title: "A", Difficulty: types.DifficultyEasy, Tags: []string{"x"}}}

	tests := []struct {
		name       string
		method     string
		body       string
		encoded    bool
		genErr     error
		wantStatus int
		wantCalls  int
		wantError  string
	}{
		{name: "success", method: http.MethodPost, body: `{"interests":["AI"]}`, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "get", method: http.MethodGet, wantStatus: http.StatusMethodNotAllowed, wantError: "Method not allowed"},
		{name: "bad json", method: http.MethodPost, body: `{`, wantStatus: http.StatusBadRequest},
		{
			name: "base64 body", method: http.MethodPost, encoded: true,
			body: base64.StdEncoding.EncodeToString([]byte(`{"interests":["AI"]}`)), wantStatus: http.StatusOK, wantCalls: 1,
		},
		{
			name: "bad base64", method: http.MethodPost, encoded: true, body: "not*base64",
			wantStatus: http.StatusBadRequest, wantError: "Invalid base64 request body",
		},
		{name: "no interests", method: http.MethodPost, body: `{"interests":[" "]}`, wantStatus: http.StatusBadRequest},
		{
			name: "generation failed", method: http.MethodPost, body: `{"interests":["AI"]}`,
			genErr: apperrors.NewGenerationFailedError(errors.New("upstream said no")), wantStatus: http.StatusInternalServerError,
			wantCalls: 1, wantError: "Failed to generate ideas. Please try again.",
		},
		{
			name: "plain error", method: http.MethodPost, body: `{"interests":["AI"]}`,
			genErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{ideas: ideas, err: tt.genErr}
			h := &handler{gen: gen}

			resp, err := h.handle(context.Background(), events.APIGatewayProxyRequest{
				HTTPMethod: tt.method, Body: tt.body, IsBase64Encoded: tt.encoded,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, gen.calls)
			assert.Equal(t, "application/json", resp.Headers["Content-Type"])

			if tt.wantStatus != http.StatusOK {
				var body ErrorResponse
				require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
				assert.NotEmpty(t, body.Error)
				assert.NotContains(t, body.Error, "upstream said no")
				if tt.wantError != "" {
					assert.Equal(t, tt.wantError, body.Error)
				}
				return
			}

			var body types.GenerateResponse
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
			assert.Equal(t, ideas, body.Ideas)
		})
	}
}

func TestHandleTrimsInterests(t *testing.T) {
	gen := &stubGenerator{ideas: []types.GeneratedIdea{{Title: "A"}}}
	h := &handler{gen: gen}

	_, err := h.handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{"interests":[" Technology ","","Health"],"marketTrends":["AI"]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Technology", "Health"}, gen.params.Interests)
	assert.Equal(t, []string{"AI"}, gen.params.MarketTrends)
}
