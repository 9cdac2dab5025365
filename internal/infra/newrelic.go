// README: Optional New Relic APM application.
package infra

import "github.com/newrelic/go-agent/v3/newrelic"

// NewNewRelic returns nil without error when no license is configured.
func NewNewRelic(appName, license string) (*newrelic.Application, error) {
	if license == "" {
		return nil, nil
	}
	return newrelic.NewApplication(
		newrelic.ConfigAppName(appName),
		newrelic.ConfigLicense(license),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
}
