// Package middleware decorates save stores with cross-cutting behavior.
package middleware

import "github.com/PixelPioneer1807/adventure/pkg/ports"

// Middleware allows wrapping a SaveStore to add behavior.
type Middleware func(ports.SaveStore) ports.SaveStore

// Chain wraps store so that the first middleware is the outermost.
func Chain(store ports.SaveStore, mws ...Middleware) ports.SaveStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
