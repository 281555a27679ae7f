/*
Package session serializes access to projects shared by several callers.

A server handles many requests for the same project ID. The Manager gives each
request the latest stored model under a per-project lock, optionally backed by
a DistributedLocker so replicas sharing one store do not interleave edits.
*/
package session
