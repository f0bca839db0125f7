// Package e2e drives the portal's HTTP surface end to end with godog. By
// default the suite boots an in-process portal backed by memory stores and a
// stub directory; set BASE_URL to run the same features against a deployed
// instance.
package e2e

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
)

var opts = godog.Options{
	Output: colors.Colored(os.Stdout),
	Format: "pretty",
	Paths:  []string{"features"},
	Strict: true,
}

func init() {
	godog.BindCommandLineFlags("godog.", &opts)
}

func TestFeatures(t *testing.T) {
	flag.Parse()
	opts.TestingT = t

	if os.Getenv("BASE_URL") == "" {
		baseURL, shutdown, err := startPortal()
		if err != nil {
			t.Fatalf("failed to start in-process portal: %v", err)
		}
		t.Cleanup(shutdown)
		portalBaseURL = baseURL
	}

	suite := godog.TestSuite{
		ScenarioInitializer: initScenario,
		Options:             &opts,
	}
	if suite.Run() != 0 {
		t.Fatal("feature suite failed")
	}
}

// initScenario wires the step table to a context that is reset before every
// scenario, so a failed onboarding cannot leak a session into the next one.
func initScenario(sc *godog.ScenarioContext) {
	tc := NewTestContext()

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc = NewTestContext()
		return ctx, nil
	})

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if err != nil {
			fmt.Printf("scenario %q failed, last response: %s\n", sc.Name, string(tc.LastResponseBody))
		}
		return ctx, nil
	})

	RegisterSteps(sc, tc)
}
