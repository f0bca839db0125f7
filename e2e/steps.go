package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the portal is running$`, tc.portalIsRunning)

	// Onboarding steps
	ctx.Step(`^I onboard the tenant "([^"]*)"$`, tc.onboardTenant)
	ctx.Step(`^I onboard the tenant "([^"]*)" with a blank client secret$`, tc.onboardTenantBlankSecret)
	ctx.Step(`^I onboard the tenant "([^"]*)" with directory ID "([^"]*)"$`, tc.onboardTenantWithDirectoryID)
	ctx.Step(`^an onboarded tenant session$`, tc.onboardedSession)
	ctx.Step(`^an onboarded tenant session with client secret "([^"]*)"$`, tc.onboardedSessionWithSecret)

	// Tenant lifecycle steps
	ctx.Step(`^I rotate the client secret to "([^"]*)"$`, tc.rotateClientSecret)
	ctx.Step(`^I disable the tenant$`, tc.disableTenant)
	ctx.Step(`^I read the current tenant$`, tc.readCurrentTenant)

	// Run steps
	ctx.Step(`^I start a run for "([^"]*)" with actions "([^"]*)"$`, tc.startRun)
	ctx.Step(`^I start a full offboarding run for "([^"]*)" forwarding mail to "([^"]*)"$`, tc.startFullRun)
	ctx.Step(`^I list the runs$`, tc.listRuns)
	ctx.Step(`^I list runs with status "([^"]*)"$`, tc.listRunsWithStatus)
	ctx.Step(`^I fetch the recorded run$`, tc.fetchRecordedRun)

	// Request steps
	ctx.Step(`^I GET "([^"]*)"$`, tc.get)
	ctx.Step(`^I GET "([^"]*)" without a session$`, tc.get)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the run status should be "([^"]*)"$`, tc.runStatusShouldBe)
	ctx.Step(`^the run should record (\d+) action outcomes?$`, tc.runShouldRecordOutcomes)
	ctx.Step(`^every action outcome should be "([^"]*)"$`, tc.everyOutcomeShouldBe)
	ctx.Step(`^the catalog should list (\d+) actions$`, tc.catalogShouldList)
	ctx.Step(`^the run list should contain (\d+) runs?$`, tc.runListShouldContain)
}

func (tc *TestContext) portalIsRunning(ctx context.Context) error {
	if err := tc.GET("/health", nil); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != http.StatusOK {
		return fmt.Errorf("portal health check returned %d", tc.LastResponse.StatusCode)
	}
	return nil
}

// onboard posts the onboarding request and saves the minted session when it
// succeeds. Each call uses a fresh application ID, so every scenario gets
// its own tenant.
func (tc *TestContext) onboard(name, directoryID, clientSecret string) error {
	body := map[string]interface{}{
		"name":           name,
		"application_id": uuid.New().String(),
		"directory_id":   directoryID,
		"client_secret":  clientSecret,
	}
	if err := tc.POST("/v1/sessions", body); err != nil {
		return err
	}

	if tc.LastResponse.StatusCode == http.StatusCreated {
		if sessionID, err := tc.GetResponseField("session_id"); err == nil {
			tc.SessionID = fmt.Sprint(sessionID)
		}
		if tenantID, err := tc.GetResponseField("tenant_id"); err == nil {
			tc.TenantID = fmt.Sprint(tenantID)
		}
	}
	return nil
}

func (tc *TestContext) onboardTenant(ctx context.Context, name string) error {
	return tc.onboard(name, uuid.New().String(), "s3cr3t-e2e")
}

func (tc *TestContext) onboardTenantBlankSecret(ctx context.Context, name string) error {
	return tc.onboard(name, uuid.New().String(), "")
}

func (tc *TestContext) onboardTenantWithDirectoryID(ctx context.Context, name, directoryID string) error {
	return tc.onboard(name, directoryID, "s3cr3t-e2e")
}

func (tc *TestContext) onboardedSession(ctx context.Context) error {
	if err := tc.onboard("Contoso", uuid.New().String(), "s3cr3t-e2e"); err != nil {
		return err
	}
	return tc.requireSession()
}

func (tc *TestContext) onboardedSessionWithSecret(ctx context.Context, clientSecret string) error {
	if err := tc.onboard("Contoso", uuid.New().String(), clientSecret); err != nil {
		return err
	}
	return tc.requireSession()
}

func (tc *TestContext) requireSession() error {
	if tc.SessionID == "" {
		return fmt.Errorf("onboarding did not mint a session: %s", string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) rotateClientSecret(ctx context.Context, clientSecret string) error {
	body := map[string]interface{}{"client_secret": clientSecret}
	return tc.POSTWithHeaders("/v1/tenants/current/rotate-secret", body, tc.sessionHeaders())
}

func (tc *TestContext) disableTenant(ctx context.Context) error {
	return tc.POSTWithHeaders("/v1/tenants/current/disable", nil, tc.sessionHeaders())
}

func (tc *TestContext) readCurrentTenant(ctx context.Context) error {
	return tc.GET("/v1/tenants/current", tc.sessionHeaders())
}

func (tc *TestContext) startRun(ctx context.Context, subject, actionCSV string) error {
	names := strings.Split(actionCSV, ",")
	actions := make([]map[string]interface{}, 0, len(names))
	for i, name := range names {
		actions = append(actions, map[string]interface{}{
			"name":    strings.TrimSpace(name),
			"ordinal": i,
		})
	}
	return tc.submitRun(subject, actions)
}

func (tc *TestContext) startFullRun(ctx context.Context, subject, forwardTo string) error {
	actions := []map[string]interface{}{
		{"name": "disable-account", "ordinal": 0},
		{"name": "revoke-sessions", "ordinal": 1},
		{"name": "remove-licenses", "ordinal": 2},
		{"name": "remove-group-memberships", "ordinal": 3},
		{"name": "convert-mailbox", "ordinal": 4},
		{"name": "forward-mail", "ordinal": 5, "parameters": map[string]interface{}{
			"forwarding_address": forwardTo,
		}},
	}
	return tc.submitRun(subject, actions)
}

func (tc *TestContext) submitRun(subject string, actions []map[string]interface{}) error {
	body := map[string]interface{}{
		"subject_id":  subject,
		"executed_by": "e2e-suite",
		"actions":     actions,
	}
	if err := tc.POSTWithHeaders("/v1/runs", body, tc.sessionHeaders()); err != nil {
		return err
	}

	if runID, err := tc.GetResponseField("run_id"); err == nil {
		tc.RunID = fmt.Sprint(runID)
	}
	return nil
}

func (tc *TestContext) listRuns(ctx context.Context) error {
	return tc.GET("/v1/runs", tc.sessionHeaders())
}

func (tc *TestContext) listRunsWithStatus(ctx context.Context, status string) error {
	return tc.GET("/v1/runs?status="+status, tc.sessionHeaders())
}

func (tc *TestContext) fetchRecordedRun(ctx context.Context) error {
	if tc.RunID == "" {
		return fmt.Errorf("no run recorded yet")
	}
	return tc.GET("/v1/runs/"+tc.RunID, tc.sessionHeaders())
}

func (tc *TestContext) get(ctx context.Context, path string) error {
	return tc.GET(path, nil)
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	if tc.LastResponse.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s",
			expectedStatus, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, field string) error {
	if !tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actualValue, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (tc *TestContext) runStatusShouldBe(ctx context.Context, expected string) error {
	status, err := tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if fmt.Sprint(status) != expected {
		return fmt.Errorf("run status: expected %s but got %v\nResponse: %s", expected, status, string(tc.LastResponseBody))
	}
	return nil
}

// recordedOutcome is the slice of a run's action outcome the assertions
// care about.
type recordedOutcome struct {
	ActionName string `json:"action_name"`
	Status     string `json:"status"`
}

func (tc *TestContext) runOutcomes() ([]recordedOutcome, error) {
	var run struct {
		Actions []recordedOutcome `json:"actions"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run response: %w", err)
	}
	return run.Actions, nil
}

func (tc *TestContext) runShouldRecordOutcomes(ctx context.Context, count int) error {
	outcomes, err := tc.runOutcomes()
	if err != nil {
		return err
	}
	if len(outcomes) != count {
		return fmt.Errorf("expected %d action outcomes but got %d\nResponse: %s",
			count, len(outcomes), string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) everyOutcomeShouldBe(ctx context.Context, expected string) error {
	outcomes, err := tc.runOutcomes()
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return fmt.Errorf("run recorded no action outcomes\nResponse: %s", string(tc.LastResponseBody))
	}
	for _, outcome := range outcomes {
		if outcome.Status != expected {
			return fmt.Errorf("action %s: expected status %s but got %s",
				outcome.ActionName, expected, outcome.Status)
		}
	}
	return nil
}

func (tc *TestContext) catalogShouldList(ctx context.Context, count int) error {
	var catalog struct {
		Actions []string `json:"actions"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &catalog); err != nil {
		return fmt.Errorf("failed to parse catalog response: %w", err)
	}
	if len(catalog.Actions) != count {
		return fmt.Errorf("expected %d actions but got %d: %v", count, len(catalog.Actions), catalog.Actions)
	}
	return nil
}

func (tc *TestContext) runListShouldContain(ctx context.Context, count int) error {
	var list struct {
		Runs []json.RawMessage `json:"runs"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &list); err != nil {
		return fmt.Errorf("failed to parse run list response: %w", err)
	}
	if len(list.Runs) != count {
		return fmt.Errorf("expected %d runs but got %d\nResponse: %s",
			count, len(list.Runs), string(tc.LastResponseBody))
	}
	return nil
}
