/*
Package observability turns project lifecycle events into logs and Prometheus metrics.

Both are plain domain.LifecycleHooks, so a host composes them with pinsmith.WithLifecycleHooks
and the core never imports a metrics library.
*/
package observability
