/*
Package session implements the story session engine.

A Session owns the state of one play session: the current node, the visited
and choice histories, and the elapsed play time. It coordinates that state with
an external save store, including a periodic auto-save that can race with
explicit saves and loads.

The state machine itself is a set of pure functions (ApplyStart, ApplyChoice,
ApplyRestart, ApplyLoad). Session is the thin adapter that owns the single
state value, tags every save and load round trip with a generation counter, and
arms the auto-save task through one transition function.

Manager keeps the live sessions of a host process (HTTP server, MCP server).
*/
package session
