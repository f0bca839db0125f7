package action

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"roster/pkg/validation"
)

// convertMailbox turns the subject's mailbox into a shared (or resource)
// mailbox so its contents stay reachable after the account is disabled.
type convertMailbox struct {
	dir Directory
}

type convertMailboxParams struct {
	MailboxType string `json:"mailbox_type" validate:"omitempty,oneof=shared resource"`
}

func (a *convertMailbox) Name() string { return NameConvertMailbox }

func (a *convertMailbox) Execute(ctx context.Context, req Request) Outcome {
	params, err := decodeParams[convertMailboxParams](req.Parameters)
	if err != nil {
		return failure(a.Name(), "invalid parameters", err)
	}
	if err := validation.Validate(&params); err != nil {
		return failure(a.Name(), "invalid parameters", err)
	}
	if params.MailboxType == "" {
		params.MailboxType = "shared"
	}

	path := "/v1/users/" + url.PathEscape(req.SubjectID) + "/mailbox/convert"
	body := map[string]any{"mailbox_type": params.MailboxType}

	if _, err := a.dir.Do(ctx, req.SessionID, http.MethodPost, path, body); err != nil {
		return failure(a.Name(), "failed to convert mailbox", err)
	}
	return success(a.Name(), fmt.Sprintf("mailbox converted to %s", params.MailboxType), nil)
}

// forwardMail reroutes the subject's incoming mail, typically to a manager
// during the handover window. The forwarding address is mandatory; there
// is no sane default for where someone's mail should go.
type forwardMail struct {
	dir Directory
}

type forwardMailParams struct {
	ForwardingAddress string `json:"forwarding_address" validate:"required,email"`
	KeepCopy          bool   `json:"keep_copy"`
}

func (a *forwardMail) Name() string { return NameForwardMail }

func (a *forwardMail) Execute(ctx context.Context, req Request) Outcome {
	params, err := decodeParams[forwardMailParams](req.Parameters)
	if err != nil {
		return failure(a.Name(), "invalid parameters", err)
	}
	if err := validation.Validate(&params); err != nil {
		return failure(a.Name(), "invalid parameters", err)
	}

	path := "/v1/users/" + url.PathEscape(req.SubjectID) + "/mailbox"
	body := map[string]any{
		"forwarding_address": params.ForwardingAddress,
		"keep_copy":          params.KeepCopy,
	}

	if _, err := a.dir.Do(ctx, req.SessionID, http.MethodPatch, path, body); err != nil {
		return failure(a.Name(), "failed to configure mail forwarding", err)
	}
	return success(a.Name(), fmt.Sprintf("mail forwarding to %s", params.ForwardingAddress), map[string]any{
		"forwarding_address": params.ForwardingAddress,
		"keep_copy":          params.KeepCopy,
	})
}
