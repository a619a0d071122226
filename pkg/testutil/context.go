package testutil

import (
	"net/http"

	id "credentia/pkg/domain"
	"credentia/pkg/requestcontext"
)

// WithOrg scopes the request to an organization, as the auth middleware
// would for an authenticated request.
func WithOrg(req *http.Request, orgID id.OrgID) *http.Request {
	return req.WithContext(requestcontext.WithOrgID(req.Context(), orgID))
}

// WithActor records the acting user on the request.
func WithActor(req *http.Request, actorID id.ActorID) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}
