// Package rtdb is the client for the shared real-time database that
// sensor nodes write readings into and dashboards read from.
//
// # Architecture
//
//	┌──────────────┐  PUT /device_x/data/<id>.json   ┌──────────────────────┐
//	│ sensor node  │ ──────────────────────────────► │  Realtime Database   │
//	└──────────────┘                                 │  (Firebase REST/SSE)  │
//	                                                 └──────────┬───────────┘
//	                              GET / PUT / text/event-stream │
//	                                                 ┌──────────▼───────────┐
//	                                                 │    FirebaseStore     │
//	                                                 │  breaker + backoff   │
//	                                                 └──────────┬───────────┘
//	                                                            │ Store
//	                                   device · settings · pump · monitor
//
// Two implementations satisfy Store: FirebaseStore for the hosted
// database and MemoryStore for development and tests. Both deliver
// full-path snapshots, starting with the current value, and conflate
// when the consumer is slow.
//
// # Scoped listeners
//
// Watch is the only way the rest of the module listens: it ties a
// subscription to a context and always releases it.
//
//	err := rtdb.Watch(ctx, store, "settings", func(s rtdb.Snapshot) {
//	    var v settings.Settings
//	    _ = s.Decode(&v)
//	})
//
// # Authentication
//
// With AnonymousAuth the store signs in through the Identity Toolkit
// signUp endpoint and appends the ID token as ?auth=. Tokens are renewed
// through the secure token endpoint a minute before they expire, and
// immediately after a 401 or an auth_revoked stream event.
package rtdb
