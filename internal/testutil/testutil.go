// Package testutil provides test helpers for etlaudit, including:
//   - notification text and message builders shaped like the ETL pipeline's posts (slack.go)
//   - an httptest fake of Slack's conversations.history endpoint (slack.go)
//
// The fake server needs no network access or credentials and works with regular tests.
package testutil
