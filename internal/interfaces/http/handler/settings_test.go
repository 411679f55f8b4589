package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pharmaerp/receivables/internal/domain/settings"
	"github.com/pharmaerp/receivables/internal/domain/shared"
	"github.com/pharmaerp/receivables/internal/domain/shared/valueobject"
	"github.com/pharmaerp/receivables/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func settingsRouter(svc *mockSettingsService) *gin.Engine {
	h := NewSettingsHandler(svc)
	return newTestRouter(func(r *gin.RouterGroup) {
		r.GET("/settings", h.Get)
		r.PUT("/settings/:key", h.Update)
	})
}

func TestSettingsHandler(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		svc := new(mockSettingsService)
		router := settingsRouter(svc)
		svc.On("Get", mock.Anything, testTenantID).
			Return(&settings.Settings{AutoAllocate: true, Currency: valueobject.INR, Locale: "en-IN"}, nil)

		w := doRequest(router, http.MethodGet, "/api/v1/settings", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"auto_allocate":true`)
		assert.Contains(t, w.Body.String(), `"currency":"INR"`)
	})

	t.Run("update", func(t *testing.T) {
		svc := new(mockSettingsService)
		router := settingsRouter(svc)
		svc.On("Update", mock.Anything, testTenantID, "allocation.auto_allocate", "false").
			Return(&settings.Settings{AutoAllocate: false, Currency: valueobject.INR}, nil)

		w := doRequest(router, http.MethodPut, "/api/v1/settings/allocation.auto_allocate", `{"value":"false"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"auto_allocate":false`)
		svc.AssertExpectations(t)
	})

	t.Run("unknown key", func(t *testing.T) {
		svc := new(mockSettingsService)
		router := settingsRouter(svc)
		svc.On("Update", mock.Anything, testTenantID, "nope", "1").
			Return(nil, shared.NewDomainError(shared.ErrInvalidInput.Code, `unknown setting "nope"`))

		w := doRequest(router, http.MethodPut, "/api/v1/settings/nope", `{"value":"1"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})
}
