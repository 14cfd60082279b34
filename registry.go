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
	"fmt"
	"sync"
)

// TagIdentity associates a tag UID with the logical name the application
// uses for it. Identities are immutable once registered.
type TagIdentity struct {
	Name string
	UID  UID
}

// Registry holds the known tag identities. It is written during setup and
// read by the presence tracker on every cycle.
type Registry struct {
	byUID map[string]*TagIdentity
	order []*TagIdentity
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byUID: make(map[string]*TagIdentity),
	}
}

// Register adds a new identity. Registering a UID twice fails with
// ErrDuplicateUID.
func (r *Registry) Register(uid UID, name string) (*TagIdentity, error) {
	if !uid.IsValid() {
		return nil, &ConfigError{Field: "uid", Value: name, Err: ErrInvalidUID}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byUID[uid.key()]; ok {
		return nil, &ConfigError{
			Field: "uid",
			Value: uid.String(),
			Err:   fmt.Errorf("%w: already registered as %q", ErrDuplicateUID, existing.Name),
		}
	}

	identity := &TagIdentity{Name: name, UID: NewUID(uid)}
	r.byUID[uid.key()] = identity
	r.order = append(r.order, identity)
	return identity, nil
}

// RegisterString parses uid in hyphenated form and registers it
func (r *Registry) RegisterString(uid, name string) (*TagIdentity, error) {
	parsed, err := ParseUID(uid)
	if err != nil {
		return nil, err
	}
	return r.Register(parsed, name)
}

// Resolve looks up the identity registered for uid
func (r *Registry) Resolve(uid UID) (*TagIdentity, bool) {
	if !uid.IsValid() {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.byUID[uid.key()]
	return identity, ok
}

// Identities returns all identities in registration order
func (r *Registry) Identities() []*TagIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TagIdentity, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered identities
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
