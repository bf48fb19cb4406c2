package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
)

type refundBody struct {
	Amount decimal.Decimal  `json:"amount" binding:"decimal_gt0"`
	Fee    *decimal.Decimal `json:"fee" binding:"omitempty,decimal_gte0"`
}

type reportQuery struct {
	FinancialYear string `form:"financial_year" binding:"omitempty,financial_year"`
}

func bindBody(t *testing.T, body string) error {
	t.Helper()
	SetupValidator()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req refundBody
	return c.ShouldBindJSON(&req)
}

func TestDecimalValidators(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"positive string", `{"amount":"10.50"}`, true},
		{"positive number", `{"amount":10.5}`, true},
		{"zero", `{"amount":"0"}`, false},
		{"negative", `{"amount":"-1"}`, false},
		{"missing", `{}`, false},
		{"zero fee", `{"amount":"1","fee":"0"}`, true},
		{"negative fee", `{"amount":"1","fee":"-0.01"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bindBody(t, tt.body)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFinancialYearValidator(t *testing.T) {
	SetupValidator()
	gin.SetMode(gin.TestMode)

	for label, valid := range map[string]bool{"2024-25": true, "1999-00": true, "2024-26": false, "24-25": false} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?financial_year="+label, nil)
		var q reportQuery
		err := c.ShouldBindQuery(&q)
		assert.Equal(t, valid, err == nil, label)
	}
}

func TestFormatValidationErrors(t *testing.T) {
	err := bindBody(t, `{"amount":"0"}`)
	require.Error(t, err)

	resp := FormatValidationErrors(err, "req-9")
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-9", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be a decimal greater than zero", resp.Error.Details[0].Message)

	resp = FormatValidationErrors(errors.New("unexpected EOF"), "")
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
}
