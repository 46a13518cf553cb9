// Package observability provides structured logging, Prometheus run metrics,
// Slack notifications and the run history with its alert conditions for
// sonata-verify. Metrics are derived from the finished run report and
// optionally pushed to a Pushgateway, since the tool is a short-lived batch
// job rather than a scrape target.
package observability
