package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SONIX-Kelompok-6/sonix-be/pkg/logger"
)

func staticValidator(valid string, claims *Claims) TokenValidator {
	return func(_ context.Context, token string) (*Claims, error) {
		if token != valid {
			return nil, errors.New("bad token")
		}
		return claims, nil
	}
}

func captureViewer(seen *int64, authed *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *authed = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	claims := &Claims{UserID: 42, Email: "runner@sonix.id", TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}
	validate := staticValidator("good", claims)

	tests := []struct {
		name       string
		mw         func(http.Handler) http.Handler
		header     string
		wantStatus int
		wantUserID int64
		wantAuthed bool
	}{
		{"required valid", Auth(validate), "Bearer good", http.StatusOK, 42, true},
		{"required lowercase scheme", Auth(validate), "bearer good", http.StatusOK, 42, true},
		{"required missing", Auth(validate), "", http.StatusUnauthorized, 0, false},
		{"required wrong scheme", Auth(validate), "Basic abc", http.StatusUnauthorized, 0, false},
		{"required invalid token", Auth(validate), "Bearer nope", http.StatusUnauthorized, 0, false},
		{"optional anonymous", OptionalAuth(validate), "", http.StatusOK, 0, false},
		{"optional valid", OptionalAuth(validate), "Bearer good", http.StatusOK, 42, true},
		{"optional invalid token rejected", OptionalAuth(validate), "Bearer nope", http.StatusUnauthorized, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen int64
			var authed bool
			req := httptest.NewRequest(http.MethodGet, "/api/shoes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			tt.mw(captureViewer(&seen, &authed)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUserID, seen)
			assert.Equal(t, tt.wantAuthed, authed)
		})
	}
}

func TestAuth_ErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)

	Auth(staticValidator("x", nil))(captureViewer(new(int64), new(bool))).ServeHTTP(rec, req)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "missing authorization header", body.Error.Message)
}

func TestAuth_AddsUserIDToRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("test-svc", "info", &buf)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})
	chain := RequestLogger(base)(Auth(staticValidator("good", &Claims{UserID: 7}))(final))

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	req.Header.Set("Authorization", "Bearer good")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, float64(7), out["user_id"])
}

func TestClaimsFromContext_Empty(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{UserID: 3})
	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
}
