/*
Package adventure is an embeddable engine for branching, choose-your-own-adventure
stories.

A story is a directed graph of nodes. A session walks one player through a story,
recording every node visited and every choice made, and persists that progress
through save stores with an optional auto-save timer.

# Architecture

The engine follows a Hexagonal layout. The core lives in pkg/domain (model and
sentinel errors), pkg/navigator (graph lookups and validation) and pkg/session
(the pure state transitions plus the Session and Manager that own them). Story
sources, save stores and analytics sinks are ports (pkg/ports) with adapters
under pkg/adapters: memory, file, loam, redis, postgres and a REST client.
Transports (HTTP, MCP, terminal runner) drive sessions through the Manager.

# Usage

	engine, err := adventure.New("./stories")
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close(ctx)

	sess, err := engine.Play(ctx, "cave")
	if err != nil {
		log.Fatal(err)
	}
	if _, err := sess.Choose(ctx, "tunnel", ""); err != nil {
		log.Fatal(err)
	}

Without options, New reads markdown story directories with Loam and keeps no
saves. Use WithGraphProvider, WithSaveStore and WithAnalytics to plug in other
adapters.
*/
package adventure
