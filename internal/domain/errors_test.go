package domain_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"nil", nil, ""},
		{"offline", &domain.ErrOffline{Err: errors.New("no dns")}, domain.KindOffline},
		{"timeout", &domain.ErrTimeout{Operation: "webhook POST"}, domain.KindTimeout},
		{"deadline", fmt.Errorf("sending: %w", context.DeadlineExceeded), domain.KindTimeout},
		{"server wrapped", &domain.ErrExternalService{Service: "webhook", Err: &domain.ErrServer{StatusCode: 500}}, domain.KindServer},
		{"network", &domain.ErrNetwork{Err: errors.New("connection refused")}, domain.KindNetwork},
		{"circuit open", &domain.ErrExternalService{Service: "webhook", Err: &domain.ErrCircuitOpen{Service: "webhook"}}, domain.KindNetwork},
		{"render", &domain.ErrRender{Stage: "summary", Err: errors.New("font")}, domain.KindUnknown},
		{"validation", &domain.ErrValidation{Field: "fullName", Message: "is required"}, domain.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.KindOf(tt.err))
		})
	}
}

func TestErrorKind_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, domain.KindOffline.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, domain.KindNetwork.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, domain.KindServer.HTTPStatus())
	assert.Equal(t, http.StatusGatewayTimeout, domain.KindTimeout.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, domain.KindUnknown.HTTPStatus())
}

func TestUserMessage_OnePerKind(t *testing.T) {
	seen := map[string]domain.ErrorKind{}
	for _, k := range []domain.ErrorKind{
		domain.KindOffline, domain.KindNetwork, domain.KindTimeout, domain.KindServer, domain.KindUnknown,
	} {
		msg := domain.UserMessage(k)
		assert.NotEmpty(t, msg)
		if prev, dup := seen[msg]; dup {
			t.Errorf("kinds %s and %s share the message %q", prev, k, msg)
		}
		seen[msg] = k
	}
}

func TestErrServer_Error(t *testing.T) {
	assert.Equal(t, "endpoint returned status 502", (&domain.ErrServer{StatusCode: 502}).Error())
	assert.Equal(t, "endpoint returned status 413: too big", (&domain.ErrServer{StatusCode: 413, Body: "too big"}).Error())
}
