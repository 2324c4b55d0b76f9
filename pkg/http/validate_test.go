package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listQuery struct {
	Symbol string `query:"symbol" validate:"required,alphanum"`
	Day    string `query:"day" validate:"omitempty,datetime=2006-01-02"`
	Limit  int    `query:"limit" default:"8" validate:"gte=1,lte=50"`
}

func bind(target string) interface{} {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	var q listQuery
	return ReadAndValidateRequest(c, &q)
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?symbol=SPY", nil), httptest.NewRecorder())
	var q listQuery
	require.Nil(t, ReadAndValidateRequest(c, &q))
	assert.Equal(t, "SPY", q.Symbol)
	assert.Equal(t, 8, q.Limit)

	verr := bind("/?symbol=SPY&limit=99")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "Limit", errs[0].Field)
	assert.Equal(t, "50", errs[0].Params["max"])

	verr = bind("/?symbol=SPY&day=01-02-2024")
	errs = verr.([]ValidationError)
	assert.Equal(t, "ERR_DATETIME", errs[0].Code)
	assert.Contains(t, errs[0].Message, "2006-01-02")

	verr = bind("/?symbol=SPY&limit=abc")
	errs = verr.([]ValidationError)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}
