package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"excelviz/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(ConfigInvalid("PORT is required"), "configuration validation failed")
	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.Equal(t, "configuration validation failed: PORT is required", err.Error())

	assert.Equal(t, CodeInternalError, GetCode(Wrap(fmt.Errorf("boom"), "x")))
	assert.Nil(t, Wrap(nil, "x"))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{core.NewUnknownSlotError("chart-X-canvas"), CodeUnknownSlot, http.StatusNotFound},
		{fmt.Errorf("%w: s1", core.ErrSessionNotFound), CodeNotFound, http.StatusNotFound},
		{core.NewParseError("a.xlsx", nil), CodeParseError, http.StatusUnprocessableEntity},
		{core.NewInvalidKindError("gauge"), CodeValidationError, http.StatusBadRequest},
		{core.EmptySelection("chart").Err(), CodeValidationError, http.StatusBadRequest},
		{InvalidInput("bad body"), CodeInvalidInput, http.StatusBadRequest},
		{stderrors.New("disk on fire"), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got := Classify(tc.err)
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
		assert.Equal(t, tc.status, HTTPStatus(got.Code), tc.err.Error())
		assert.ErrorIs(t, got, tc.err)
	}
	assert.Nil(t, Classify(nil))
}
