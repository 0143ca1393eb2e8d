package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-api/internal/model"
)

// envelope is the body of every API response.  Result is 1 on success and
// 0 on failure, independent of the HTTP status.
type envelope struct {
	Result  int    `json:"result"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, envelope{Result: 1, Data: data, Message: msg})
}

func failMsg(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Result: 0, Message: msg})
}

func failFields(c echo.Context, status int, fields map[string]string) error {
	return c.JSON(status, envelope{Result: 0, Error: fields})
}

type userPart struct {
	ID        uint64    `json:"id"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CountryID uint64    `json:"country_id"`
	CreatedAt time.Time `json:"created_at"`
}

func publicUser(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Email:     u.Email,
		CountryID: u.CountryID,
		CreatedAt: u.CreatedAt,
	}
}

// looseString binds a JSON string or number, or a form value, as text.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

func (s *looseString) UnmarshalParam(param string) error {
	*s = looseString(param)
	return nil
}

// HTTPErrorHandler renders errors that escape handlers (routing misses,
// recovered panics) in the response envelope.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "Server Error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, isStr := he.Message.(string); isStr && code < http.StatusInternalServerError {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			log.Error("unhandled error", zap.Error(err), zap.String("uri", c.Request().RequestURI))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, envelope{Result: 0, Message: msg})
		}
		if err != nil {
			log.Error("write error response", zap.Error(err))
		}
	}
}
