/*
Package observability turns engine lifecycle events into Prometheus metrics and
structured log lines.

Both are plain domain.LifecycleHooks, so they compose with any other hooks:

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hooks := metrics.Hooks().Merge(observability.LogHooks(logger))
	bot, err := concierge.New(roster, model, concierge.WithLifecycleHooks(hooks))
*/
package observability
