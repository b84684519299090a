package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails map[string]string
	}{
		{
			name:        "not found",
			err:         domain.NewNotFoundError("intent", "dance"),
			wantStatus:  http.StatusNotFound,
			wantCode:    dto.ErrorCodeNotFound,
			wantMessage: domain.NewNotFoundError("intent", "dance").Error(),
		},
		{
			name:        "conflict",
			err:         domain.NewConflictError("conflict", "the recorded position no longer exists"),
			wantStatus:  http.StatusConflict,
			wantCode:    dto.ErrorCodeConflict,
			wantMessage: domain.NewConflictError("conflict", "the recorded position no longer exists").Error(),
		},
		{
			name:        "validation with field",
			err:         domain.NewValidationError("resolution", "unknown resolution"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    dto.ErrorCodeValidation,
			wantMessage: domain.NewValidationError("resolution", "unknown resolution").Error(),
			wantDetails: map[string]string{"resolution": "unknown resolution"},
		},
		{
			name:        "parse",
			err:         domain.NewParseError("import file", "invalid JSON"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    dto.ErrorCodeParse,
			wantMessage: "parsing import file: invalid JSON",
			wantDetails: map[string]string{"import file": "invalid JSON"},
		},
		{
			name:        "fetch",
			err:         domain.NewFetchErrorWithStatus("quote-source", "unexpected status", http.StatusServiceUnavailable),
			wantStatus:  http.StatusBadGateway,
			wantCode:    dto.ErrorCodeFetch,
			wantMessage: domain.NewFetchErrorWithStatus("quote-source", "unexpected status", http.StatusServiceUnavailable).Error(),
		},
		{
			name:        "storage hides the cause",
			err:         domain.NewStorageError("save", "dynamic_quotes_v1", errors.New("disk full")),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    dto.ErrorCodeStorage,
			wantMessage: "storage is unavailable",
		},
		{
			name:        "wrapped domain error",
			err:         fmt.Errorf("dispatch: %w", domain.NewParseError("import file", "no valid quotes found")),
			wantStatus:  http.StatusBadRequest,
			wantCode:    dto.ErrorCodeParse,
			wantMessage: "dispatch: parsing import file: no valid quotes found",
			wantDetails: map[string]string{"import file": "no valid quotes found"},
		},
		{
			name:        "unknown",
			err:         errors.New("secret internals"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    dto.ErrorCodeInternal,
			wantMessage: "an internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
		})
	}
}

func TestMapDomainError_Nil(t *testing.T) {
	status, resp := MapDomainError(nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, resp)
}

func TestRespondWithBindError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "validation", err: dto.Validate(dto.ResolveRequest{}), wantCode: dto.ErrorCodeValidation},
		{name: "binding", err: fmt.Errorf("%w: unexpected EOF", dto.ErrBinding), wantCode: dto.ErrorCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			RespondWithBindError(c, tt.err)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
