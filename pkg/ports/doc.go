/*
Package ports defines the driven ports (interfaces) of pinsmith.

These interfaces decouple the project model from external implementations, allowing
snapshots to live in memory, on disk or in Redis without the model noticing.

# Key Interfaces

  - SnapshotStore: persists and loads project snapshots.
  - DistributedLocker: serializes access to a project across server replicas.
*/
package ports
