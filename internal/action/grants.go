package action

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// removeLicenses strips every license assigned to the subject. The listing
// is paginated; each removal is independent, so a single bad SKU does not
// stop the rest.
type removeLicenses struct {
	dir Directory
}

func (a *removeLicenses) Name() string { return NameRemoveLicenses }

func (a *removeLicenses) Execute(ctx context.Context, req Request) Outcome {
	base := "/v1/users/" + url.PathEscape(req.SubjectID) + "/licenses"

	var removed int
	var failedSKUs []string

	pager := a.dir.Pager(req.SessionID, base)
	for {
		items, more, err := pager.Next(ctx)
		if err != nil {
			if removed > 0 || len(failedSKUs) > 0 {
				return partial(a.Name(), "license removal interrupted", map[string]any{
					"removed":     removed,
					"failed_skus": failedSKUs,
					"error":       err.Error(),
				})
			}
			return failure(a.Name(), "failed to list licenses", err)
		}
		if !more {
			break
		}
		for _, item := range items {
			var lic struct {
				SKUID string `json:"sku_id"`
			}
			if err := json.Unmarshal(item, &lic); err != nil || lic.SKUID == "" {
				failedSKUs = append(failedSKUs, "unparsable item")
				continue
			}
			if _, err := a.dir.Do(ctx, req.SessionID, http.MethodDelete, base+"/"+url.PathEscape(lic.SKUID), nil); err != nil {
				failedSKUs = append(failedSKUs, lic.SKUID)
				continue
			}
			removed++
		}
	}

	return grantOutcome(a.Name(), "license", removed, failedSKUs)
}

// removeGroupMemberships removes the subject from every group it belongs
// to. Same independence rule as license removal.
type removeGroupMemberships struct {
	dir Directory
}

func (a *removeGroupMemberships) Name() string { return NameRemoveGroupMemberships }

func (a *removeGroupMemberships) Execute(ctx context.Context, req Request) Outcome {
	listPath := "/v1/users/" + url.PathEscape(req.SubjectID) + "/memberships"

	var removed int
	var failedGroups []string

	pager := a.dir.Pager(req.SessionID, listPath)
	for {
		items, more, err := pager.Next(ctx)
		if err != nil {
			if removed > 0 || len(failedGroups) > 0 {
				return partial(a.Name(), "membership removal interrupted", map[string]any{
					"removed":       removed,
					"failed_groups": failedGroups,
					"error":         err.Error(),
				})
			}
			return failure(a.Name(), "failed to list group memberships", err)
		}
		if !more {
			break
		}
		for _, item := range items {
			var membership struct {
				GroupID string `json:"group_id"`
			}
			if err := json.Unmarshal(item, &membership); err != nil || membership.GroupID == "" {
				failedGroups = append(failedGroups, "unparsable item")
				continue
			}
			removePath := "/v1/groups/" + url.PathEscape(membership.GroupID) + "/members/" + url.PathEscape(req.SubjectID)
			if _, err := a.dir.Do(ctx, req.SessionID, http.MethodDelete, removePath, nil); err != nil {
				failedGroups = append(failedGroups, membership.GroupID)
				continue
			}
			removed++
		}
	}

	return grantOutcome(a.Name(), "membership", removed, failedGroups)
}

// grantOutcome folds per-item removal counts into one outcome: all good is
// success, all bad is failed, a mix is partial. Zero items is a success;
// there was nothing to take away.
func grantOutcome(name, noun string, removed int, failures []string) Outcome {
	detail := map[string]any{"removed": removed}
	if len(failures) > 0 {
		detail["failed"] = failures
	}
	switch {
	case removed == 0 && len(failures) == 0:
		return success(name, fmt.Sprintf("no %ss assigned", noun), nil)
	case len(failures) == 0:
		return success(name, fmt.Sprintf("removed %d %ss", removed, noun), detail)
	case removed == 0:
		return Outcome{
			ActionName: name,
			Status:     StatusFailed,
			Message:    fmt.Sprintf("failed to remove any %ss", noun),
			Detail:     detail,
			Timestamp:  nowUTC(),
		}
	default:
		return partial(name, fmt.Sprintf("removed %d %ss, %d failed", removed, noun, len(failures)), detail)
	}
}
