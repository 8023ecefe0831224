// Package component defines lifecycle-managed parts of a redis-manager
// process and a Registry that starts them in order, stops them in reverse
// and aggregates their health.
package component
