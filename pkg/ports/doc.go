/*
Package ports defines the driven ports (interfaces) for the adventure engine.

These interfaces decouple the session engine from external implementations, allowing
it to work with various graph sources, save backends and analytics sinks.

# Key Interfaces

  - GraphProvider: Supplies the immutable StoryGraph before a session starts (Memory, Files, Loam, REST).
  - SaveStore: Creates, lists, loads and deletes saved games (Memory, Files, Redis, Postgres, REST).
  - AnalyticsCollector: Receives best-effort lifecycle events.
  - DistributedLocker: Provides distributed locking for stores shared by several replicas.
*/
package ports
