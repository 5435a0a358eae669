/*
Package ports defines the driven ports (interfaces) of the concierge engine.

These interfaces decouple the routing core from external implementations, allowing
the engine to work with various checkpoint backends, model providers and hospital data sources.

# Key Interfaces

  - CheckpointStore: persists and loads the Conversation of a thread.
  - DistributedLocker: distributed locking for concurrent access to a thread across replicas.
  - Model: the language-model call, an opaque function from instructions, history and tools to a reply.
  - UserContextProvider: loads the patient profile snapshot attached at conversation start.
*/
package ports
