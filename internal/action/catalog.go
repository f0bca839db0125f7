package action

import (
	"context"
	"encoding/json"
	"fmt"

	"roster/internal/pipeline"
	id "roster/pkg/domain"
)

// Catalog action names. The UI builds its wizard from Registry.Names, so
// these strings are part of the external contract.
const (
	NameDisableAccount         = "disable-account"
	NameRevokeSessions         = "revoke-sessions"
	NameRemoveLicenses         = "remove-licenses"
	NameRemoveGroupMemberships = "remove-group-memberships"
	NameConvertMailbox         = "convert-mailbox"
	NameForwardMail            = "forward-mail"
)

// Directory is the slice of the API pipeline the catalog needs.
// *pipeline.Client satisfies it.
type Directory interface {
	Do(ctx context.Context, sessionID id.SessionID, method, path string, body any) (*pipeline.Response, error)
	Pager(sessionID id.SessionID, path string) *pipeline.Pager
}

// Catalog returns every built-in executor wired to dir, ready for
// NewRegistry.
func Catalog(dir Directory) []Executor {
	return []Executor{
		&disableAccount{dir: dir},
		&revokeSessions{dir: dir},
		&removeLicenses{dir: dir},
		&removeGroupMemberships{dir: dir},
		&convertMailbox{dir: dir},
		&forwardMail{dir: dir},
	}
}

// decodeParams maps the spec's free-form parameters onto a typed struct.
// Unknown keys are ignored; type mismatches are validation failures.
func decodeParams[T any](params map[string]any) (T, error) {
	var out T
	if len(params) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return out, fmt.Errorf("encode parameters: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parameters do not match the expected shape: %w", err)
	}
	return out, nil
}
