package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(ErrNotFound, "project not found"), http.StatusNotFound},
		{fmt.Errorf("load: %w", New(ErrForbidden, "nope")), http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrConflict, http.StatusConflict},
		{Newf(ErrInvalid, "bad %s", "field"), http.StatusBadRequest},
		{fmt.Errorf("store: %w", ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err), c.err.Error())
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "project not found", Message(fmt.Errorf("get: %w", New(ErrNotFound, "project not found"))))
	assert.Equal(t, "Internal server error", Message(errors.New("dial tcp: refused")))
	assert.Equal(t, "not found", Message(ErrNotFound))
}
