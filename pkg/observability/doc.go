/*
Package observability provides tools for monitoring play sessions.

It includes Prometheus metrics fed by session lifecycle hooks, structured
logging hooks, and a helper to chain several hook sets onto one session.
*/
package observability
