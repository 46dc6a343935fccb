/*
Package domain contains the core models of the adventure session engine.

It defines the story graph a session plays through, the mutable session state,
the snapshot shape exchanged with save stores, and the lifecycle events emitted
while playing. The package has no I/O and no dependencies beyond the standard
library; transitions over these types live in package session.

# Key Entities

  - StoryGraph: the immutable graph of StoryNodes a session plays (root + node map).
  - State: the live position, choice history, visited history and play clock of a session.
  - Snapshot: the point-in-time view of a State sent to a save store.
  - SavedGame: a Snapshot as persisted by a save store, with id and timestamps.
  - AnalyticsEvent: a best-effort lifecycle event (start, choice, ending).
*/
package domain
