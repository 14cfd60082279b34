// go-st25r
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-st25r.
//
// go-st25r is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-st25r is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-st25r; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package st25r

import (
	"time"
)

// EventKind identifies the kind of a presence event
type EventKind int

const (
	// EventArrival is emitted when a tag enters the field
	EventArrival EventKind = iota
	// EventRemoval is emitted when a tag has left the field
	EventRemoval
)

func (k EventKind) String() string {
	switch k {
	case EventArrival:
		return "arrival"
	case EventRemoval:
		return "removal"
	default:
		return "unknown"
	}
}

// TagEvent is delivered to arrival and removal handlers. Identity is nil for
// tags that are not in the registry.
type TagEvent struct {
	At       time.Time
	Identity *TagIdentity
	UID      UID
	Kind     EventKind
}

// UIDString returns the raw UID in hyphenated form
func (e TagEvent) UIDString() string {
	return e.UID.String()
}

// PresenceState is the tracker's view of the field
type PresenceState struct {
	LastSeen time.Time
	UID      UID
	Present  bool
}

// Tracker is the tag lifecycle state machine. It turns the raw per-cycle
// presence reads into arrival and removal events. A Tracker is not safe for
// concurrent use; the device serializes access to it.
type Tracker struct {
	registry *Registry
	now      func() time.Time
	state    PresenceState
	debounce int
	misses   int
}

// NewTracker creates a tracker resolving identities against registry. A tag
// is only declared removed after debounce consecutive misses.
func NewTracker(registry *Registry, debounce int) *Tracker {
	if registry == nil {
		registry = NewRegistry()
	}
	if debounce < 1 {
		debounce = 1
	}
	return &Tracker{
		registry: registry,
		debounce: debounce,
		now:      time.Now,
	}
}

// State returns a copy of the current presence state
func (t *Tracker) State() PresenceState {
	s := t.state
	s.UID = NewUID(t.state.UID)
	return s
}

// Debounce returns the number of consecutive misses needed for a removal
func (t *Tracker) Debounce() int {
	return t.debounce
}

// Observe feeds one cycle's read into the state machine and returns the
// events it produced, in emission order. A non-nil err, a report without a
// tag, or a zero-length UID all count as a miss.
func (t *Tracker) Observe(p Presence, err error) []TagEvent {
	now := t.now()

	if err != nil {
		debugf("presence read failed: %v", err)
		return t.miss(now)
	}
	if !p.Present {
		return t.miss(now)
	}
	if !p.UID.IsValid() {
		debugln("ignoring zero-length UID from transport")
		return t.miss(now)
	}

	if !t.state.Present {
		t.misses = 0
		return []TagEvent{t.arrive(p.UID, now)}
	}

	if t.state.UID.Equal(p.UID) {
		t.misses = 0
		t.state.LastSeen = now
		return nil
	}

	// Different tag without an empty read in between.
	removed := t.leave(now)
	return []TagEvent{removed, t.arrive(p.UID, now)}
}

// Reset forces the tracker back to NoTag, returning a removal event if a tag
// was present
func (t *Tracker) Reset() []TagEvent {
	if !t.state.Present {
		return nil
	}
	return []TagEvent{t.leave(t.now())}
}

func (t *Tracker) miss(now time.Time) []TagEvent {
	if !t.state.Present {
		return nil
	}
	t.misses++
	if t.misses < t.debounce {
		debugf("tag %s missed %d/%d", t.state.UID, t.misses, t.debounce)
		return nil
	}
	return []TagEvent{t.leave(now)}
}

func (t *Tracker) arrive(uid UID, now time.Time) TagEvent {
	uid = NewUID(uid)
	t.state = PresenceState{UID: uid, Present: true, LastSeen: now}
	identity, _ := t.registry.Resolve(uid)
	debugf("tag arrived: %s", uid)
	return TagEvent{Kind: EventArrival, UID: uid, Identity: identity, At: now}
}

func (t *Tracker) leave(now time.Time) TagEvent {
	uid := t.state.UID
	identity, _ := t.registry.Resolve(uid)
	t.state = PresenceState{}
	t.misses = 0
	debugf("tag removed: %s", uid)
	return TagEvent{Kind: EventRemoval, UID: uid, Identity: identity, At: now}
}
