package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs_SurvivesWrapping(t *testing.T) {
	sentinel := New(NotFound, "order not found")
	wrapped := fmt.Errorf("get order: %w", sentinel)
	assert.ErrorIs(t, wrapped, sentinel)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Forbidden, KindOf(New(Forbidden, "nope")))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.Equal(t, InvalidState, KindOf(fmt.Errorf("outer: %w", New(InvalidState, "bad state"))))
}

func TestMessageOf_HidesInternals(t *testing.T) {
	assert.Equal(t, "voucher expired", MessageOf(New(InvalidState, "voucher expired")))
	assert.Equal(t, "internal server error", MessageOf(errors.New("pg: connection refused")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(New(NotFound, "x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(InvalidInput, "x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(New(InvalidState, "x")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(New(Forbidden, "x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("no rows")
	err := Wrap(NotFound, "user not found", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "user not found")
}
