package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/service"
)

func jsonContext(body string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestBindInput(t *testing.T) {
	var in service.LoginInput
	require.NoError(t, bindInput(jsonContext(`{"email":"a@b.c","password":"pw"}`), &in))
	assert.Equal(t, "a@b.c", in.Email)

	err := bindInput(jsonContext(`{"email":["a@b.c"],"password":"pw"}`), &service.LoginInput{})
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr), "%v", err)
	assert.Equal(t, []string{"The email field must be a string."}, verr.Fields["email"])

	err = bindInput(jsonContext(`{"email":`), &service.LoginInput{})
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "%v", err)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
