package action

import (
	"context"
	"net/http"
	"net/url"
)

// disableAccount blocks sign-in for the subject. Almost always the first
// step of an offboarding plan; everything after it assumes the account can
// no longer authenticate.
type disableAccount struct {
	dir Directory
}

func (a *disableAccount) Name() string { return NameDisableAccount }

func (a *disableAccount) Execute(ctx context.Context, req Request) Outcome {
	path := "/v1/users/" + url.PathEscape(req.SubjectID)
	body := map[string]any{"account_enabled": false}

	if _, err := a.dir.Do(ctx, req.SessionID, http.MethodPatch, path, body); err != nil {
		return failure(a.Name(), "failed to disable account", err)
	}
	return success(a.Name(), "account sign-in disabled", nil)
}

// revokeSessions invalidates the subject's refresh tokens so existing
// devices lose access once their short-lived tokens expire.
type revokeSessions struct {
	dir Directory
}

func (a *revokeSessions) Name() string { return NameRevokeSessions }

func (a *revokeSessions) Execute(ctx context.Context, req Request) Outcome {
	path := "/v1/users/" + url.PathEscape(req.SubjectID) + "/revoke-sessions"

	if _, err := a.dir.Do(ctx, req.SessionID, http.MethodPost, path, nil); err != nil {
		return failure(a.Name(), "failed to revoke sign-in sessions", err)
	}
	return success(a.Name(), "sign-in sessions revoked", nil)
}
