/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store holds room documents. Writers send partial updates;
// readers subscribe and receive the whole document after every change,
// never a field-level diff.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Seednode/partyrooms/patch"
)

var (
	ErrNotFound = errors.New("room not found")
	ErrClosed   = errors.New("store closed")
)

// Store is the contract both backends satisfy. Nothing here promises
// read-after-write consistency: a writer learns about the new state through
// its subscription like everyone else.
type Store interface {
	// Load returns the current document, or ErrNotFound.
	Load(ctx context.Context, room string) (patch.Document, error)

	// Apply merges p into the stored document, creating it if needed, and
	// notifies subscribers.
	Apply(ctx context.Context, room string, p patch.Patch) error

	// Subscribe delivers the current document, if any, followed by a new
	// full snapshot after every change. The channel is closed when the
	// room is deleted, the store closes, ctx ends or cancel is called.
	Subscribe(ctx context.Context, room string) (<-chan patch.Document, func(), error)

	// Delete drops the room and closes its subscriptions.
	Delete(ctx context.Context, room string) error

	// Claim takes or renews the single-writer lease on a room. It reports
	// false while another owner holds an unexpired lease.
	Claim(ctx context.Context, room, owner string, ttl time.Duration) (bool, error)

	Close() error
}

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// older snapshots are dropped in favour of the newest one.
const subscriberBuffer = 8

// offer delivers doc without blocking, discarding the oldest queued
// snapshot when ch is full. Only one goroutine may send on ch.
func offer(ch chan patch.Document, doc patch.Document) {
	select {
	case ch <- doc:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- doc:
	default:
	}
}
