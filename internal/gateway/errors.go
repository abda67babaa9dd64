package gateway

import (
	"errors"
	"net/http"

	"github.com/giantswarm/iag/internal/oauthwire"
)

var errSessionNotFound = errors.New("session not found")

func errStartFailed(detail string) *oauthwire.CodedError {
	return oauthwire.NewCodedError(oauthwire.CodeStartFailed, http.StatusBadGateway, detail)
}

func errDeniedByPolicy(detail string) *oauthwire.CodedError {
	return oauthwire.NewCodedError(oauthwire.CodeDeniedByPolicy, http.StatusForbidden, detail)
}

func errLoginRequired(detail string) *oauthwire.CodedError {
	return oauthwire.NewCodedError(oauthwire.CodeLoginRequired, http.StatusUnauthorized, detail)
}

func errObligationViolation(detail string) *oauthwire.CodedError {
	return oauthwire.NewCodedError(oauthwire.CodeObligationViolation, http.StatusForbidden, detail)
}

func errObligationTTLExpired(detail string) *oauthwire.CodedError {
	return oauthwire.NewCodedError(oauthwire.CodeSessionObligationTTLExpired, http.StatusUnauthorized, detail)
}

func errInvalidRequest(detail string) *oauthwire.CodedError {
	return oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusBadRequest, detail)
}

func errBadGateway(detail string) *oauthwire.CodedError {
	return oauthwire.NewCodedError(oauthwire.CodeBadGateway, http.StatusBadGateway, detail)
}
