package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/user/cinevasion/internal/model"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "validation",
			err:         &model.ValidationError{Field: "q", Message: "must not be blank"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "invalid q: must not be blank",
		},
		{
			name:        "not found wrapped",
			err:         fmt.Errorf("recommend: %w", model.NewNotFound("film", "Nope")),
			wantStatus:  http.StatusNotFound,
			wantMessage: `recommend: film "Nope" not found`,
		},
		{
			name:        "retrieval unavailable",
			err:         model.NewRetrievalUnavailable("embed", errors.New("dial tcp: refused")),
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "服务暂不可用",
		},
		{
			name:        "data error hides detail",
			err:         model.NewDataError("load films", "missing column %s", "title"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "服务器内部错误",
		},
		{
			name:        "computation",
			err:         &model.ComputationError{Op: "scale", Err: errors.New("NaN")},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "服务器内部错误",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)

			RespondError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success || resp.Code != tt.wantStatus || resp.Message != tt.wantMessage {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, map[string]int{"n": 1})

	var resp struct {
		Response
		Data map[string]int `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Code != 200 || resp.Data["n"] != 1 {
		t.Errorf("response = %+v", resp)
	}
}
