package httpiface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/Pacifique5/AI-BOT/domain/chat"
	"github.com/Pacifique5/AI-BOT/internal/metrics"
)

// Mock service for testing
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Response), args.Error(1)
}

func postChat(engine *gin.Engine, payload any) *httptest.ResponseRecorder {
	jsonData, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", "/chat", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	service := &MockChatService{}
	corsOrigins := []string{"https://example.com", "https://test.com"}

	router := NewRouter(service, corsOrigins, true)

	assert.NotNil(t, router)
	assert.Equal(t, service, router.service)
	assert.Equal(t, corsOrigins, router.corsOrigins)
	assert.True(t, router.apiConfigured)
	assert.Nil(t, router.metrics)
}

func TestRouter_SetupRoutes(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)

	engine := router.SetupRoutes()

	assert.NotNil(t, engine)

	routes := engine.Routes()
	routePaths := make([]string, len(routes))
	for i, route := range routes {
		routePaths[i] = route.Path
	}

	assert.Contains(t, routePaths, "/health")
	assert.Contains(t, routePaths, "/chat")
	assert.Contains(t, routePaths, "/live")
	assert.Contains(t, routePaths, "/ready")
	assert.Contains(t, routePaths, "/")
	assert.NotContains(t, routePaths, "/metrics")
}

func TestRouter_SetupRoutes_WithMetrics(t *testing.T) {
	service := &MockChatService{}
	router := NewRouterWithMetrics(service, []string{"*"}, true, metrics.New(), "/metrics")

	engine := router.SetupRoutes()

	routes := engine.Routes()
	routePaths := make([]string, len(routes))
	for i, route := range routes {
		routePaths[i] = route.Path
	}
	assert.Contains(t, routePaths, "/metrics")

	// Prime the counters: an empty vec is omitted from the scrape output
	healthReq, _ := http.NewRequest("GET", "/health", nil)
	engine.ServeHTTP(httptest.NewRecorder(), healthReq)

	req, _ := http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chatbot_http_requests_total")
}

func TestRouter_healthCheck(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","api_configured":true}`, w.Body.String())
	service.AssertNotCalled(t, "Chat", mock.Anything)
}

func TestRouter_healthCheck_APIKeyMissing(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, false)
	engine := router.SetupRoutes()

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","api_configured":false}`, w.Body.String())
}

func TestRouter_probes(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	for path, wantStatus := range map[string]string{"/live": "alive", "/ready": "ready"} {
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, wantStatus, response["status"])
		assert.NotEmpty(t, response["timestamp"])
	}
}

func TestRouter_root(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	req, _ := http.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"AI Chatbot API","docs":"/docs"}`, w.Body.String())
}

func TestRouter_chat_Success(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	requestBody := domain.Request{
		Messages: []domain.Message{
			{Role: "user", Content: "Hello"},
		},
	}

	service.On("Chat", &requestBody).Return(&domain.Response{Reply: "Hello there!"}, nil)

	jsonData, _ := json.Marshal(requestBody)
	req, _ := http.NewRequest("POST", "/chat", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// Success responses carry only the error flag and the reply; the
	// status and detail keys must be absent, not null.
	assert.JSONEq(t, `{"error":false,"reply":"Hello there!"}`, w.Body.String())

	service.AssertExpectations(t)
}

func TestRouter_chat_InvalidJSON(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	req, _ := http.NewRequest("POST", "/chat", bytes.NewBufferString("not json at all"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":true,"status":400,"detail":{"message":"invalid request body"}}`, w.Body.String())
	service.AssertNotCalled(t, "Chat", mock.Anything)
}

func TestRouter_chat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		serviceErr  error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "validation error uses validator message",
			serviceErr:  &domain.ValidationError{Message: "messages cannot be empty"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "messages cannot be empty",
		},
		{
			name:        "timeout maps to 504 with fixed message",
			serviceErr:  &domain.TimeoutError{Timeout: 30 * time.Second},
			wantStatus:  http.StatusGatewayTimeout,
			wantMessage: "request timed out",
		},
		{
			name:        "network error maps to 503 with cause",
			serviceErr:  &domain.NetworkError{Cause: errors.New("connection refused")},
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "network error: connection refused",
		},
		{
			name:        "missing choices maps to 500",
			serviceErr:  &domain.SchemaError{Message: "response missing choices"},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "response missing choices",
		},
		{
			name:        "missing text content maps to 500",
			serviceErr:  &domain.SchemaError{Message: "response missing text content"},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "response missing text content",
		},
		{
			name:        "unknown error maps to 500 with description",
			serviceErr:  errors.New("decode response: unexpected EOF"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "internal server error: decode response: unexpected EOF",
		},
		{
			name:        "wrapped typed error still matches",
			serviceErr:  fmt.Errorf("calling provider: %w", &domain.TimeoutError{Timeout: 10 * time.Second}),
			wantStatus:  http.StatusGatewayTimeout,
			wantMessage: "request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockChatService{}
			router := NewRouter(service, []string{"*"}, true)
			engine := router.SetupRoutes()

			service.On("Chat", mock.Anything).Return(nil, tt.serviceErr)

			w := postChat(engine, domain.Request{
				Messages: []domain.Message{{Role: "user", Content: "Hello"}},
			})

			assert.Equal(t, tt.wantStatus, w.Code)

			var response domain.Response
			err := json.Unmarshal(w.Body.Bytes(), &response)
			require.NoError(t, err)
			assert.True(t, response.Error)
			assert.Equal(t, tt.wantStatus, response.Status)
			require.NotNil(t, response.Detail)
			assert.Equal(t, tt.wantMessage, response.Detail.Message)
			assert.Nil(t, response.Detail.Error)
			assert.Empty(t, response.Reply)
		})
	}
}

func TestRouter_chat_UpstreamErrorPassesStatusAndBody(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	upstreamBody := map[string]any{
		"error": map[string]any{
			"message": "Incorrect API key provided",
			"type":    "invalid_request_error",
		},
	}
	service.On("Chat", mock.Anything).Return(nil, &domain.UpstreamError{
		StatusCode: http.StatusUnauthorized,
		Body:       upstreamBody,
	})

	w := postChat(engine, domain.Request{
		Messages: []domain.Message{{Role: "user", Content: "Hello"}},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, true, response["error"])
	assert.Equal(t, float64(http.StatusUnauthorized), response["status"])

	detail, ok := response["detail"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "upstream API error", detail["message"])

	raw, ok := detail["error"].(map[string]interface{})
	require.True(t, ok)
	inner, ok := raw["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Incorrect API key provided", inner["message"])
	assert.Equal(t, "invalid_request_error", inner["type"])
}

func TestRouter_chat_UpstreamErrorNonJSONBody(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	service.On("Chat", mock.Anything).Return(nil, &domain.UpstreamError{
		StatusCode: http.StatusBadGateway,
		Body:       map[string]any{"message": "Bad Gateway"},
	})

	w := postChat(engine, domain.Request{
		Messages: []domain.Message{{Role: "user", Content: "Hello"}},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":true,"status":502,"detail":{"message":"upstream API error","error":{"message":"Bad Gateway"}}}`, w.Body.String())
}

func TestRouter_chat_PanicRecovered(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	service.On("Chat", mock.Anything).
		Run(func(args mock.Arguments) { panic("unexpected failure") }).
		Return(nil, nil)

	w := postChat(engine, domain.Request{
		Messages: []domain.Message{{Role: "user", Content: "Hello"}},
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":true,"status":500,"detail":{"message":"internal server error: unexpected failure"}}`, w.Body.String())
}

func TestRouter_corsMiddleware(t *testing.T) {
	service := &MockChatService{}
	corsOrigins := []string{"https://example.com", "https://test.com"}
	router := NewRouter(service, corsOrigins, true)
	engine := router.SetupRoutes()

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, "https://example.com, https://test.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization, X-Request-ID", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestRouter_corsMiddleware_MatchingOrigin(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"https://example.com", "https://test.com"}, true)
	engine := router.SetupRoutes()

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://test.com")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, "https://test.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_corsMiddleware_DisallowedOrigin(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"https://example.com"}, true)
	engine := router.SetupRoutes()

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_corsMiddleware_OPTIONS(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	req, _ := http.NewRequest("OPTIONS", "/chat", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	service.AssertNotCalled(t, "Chat", mock.Anything)
}

func TestRouter_requestIDMiddleware_EchoesClientID(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	service.On("Chat", mock.Anything).Return(&domain.Response{Reply: "ok"}, nil)

	jsonData, _ := json.Marshal(domain.Request{
		Messages: []domain.Message{{Role: "user", Content: "Hello"}},
	})
	req, _ := http.NewRequest("POST", "/chat", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "550e8400-e29b-41d4-a716-446655440000")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", w.Header().Get("X-Request-ID"))
}

func TestRouter_requestIDMiddleware_GeneratesWhenMissing(t *testing.T) {
	service := &MockChatService{}
	router := NewRouter(service, []string{"*"}, true)
	engine := router.SetupRoutes()

	service.On("Chat", mock.Anything).Return(&domain.Response{Reply: "ok"}, nil)

	w := postChat(engine, domain.Request{
		Messages: []domain.Message{{Role: "user", Content: "Hello"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	generated := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, generated)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
}
