package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-api/internal/model"
)

func TestLooseStringJSON(t *testing.T) {
	var v struct {
		Phone looseString `json:"phone"`
		Other looseString `json:"other"`
		Null  looseString `json:"null"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"phone":2345678,"other":"12","null":null}`), &v))
	assert.Equal(t, looseString("2345678"), v.Phone)
	assert.Equal(t, looseString("12"), v.Other)
	assert.Equal(t, looseString(""), v.Null)

	assert.Error(t, json.Unmarshal([]byte(`{"phone":{}}`), &v))
}

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"http error", echo.NewHTTPError(http.StatusNotFound, "Not Found"), http.StatusNotFound, "Not Found"},
		{"method not allowed", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"plain error", errors.New("db down"), http.StatusInternalServerError, "Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			HTTPErrorHandler(zap.NewNop())(tc.err, c)

			assert.Equal(t, tc.code, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.EqualValues(t, 0, body["result"])
			assert.Equal(t, tc.msg, body["message"])
		})
	}
}

func TestPublicUserOmitsHash(t *testing.T) {
	b, err := json.Marshal(publicUser(testUser()))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.Contains(t, string(b), `"firstname":"Test"`)
}

func testUser() model.User {
	return model.User{ID: 1, FirstName: "Test", LastName: "Doe", Email: "test@email.com", PasswordHash: "$2a$10$x"}
}
