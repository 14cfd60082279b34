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
	"sync"
)

// TagHandler receives arrival or removal events
type TagHandler func(TagEvent)

// WriteHandler receives finished-write results
type WriteHandler func(WriteResult)

// handlers keeps the ordered handler lists per event kind
type handlers struct {
	arrival  []TagHandler
	removal  []TagHandler
	finished []WriteHandler
	mu       sync.RWMutex
}

func (h *handlers) addArrival(fn TagHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.arrival = append(h.arrival, fn)
}

func (h *handlers) addRemoval(fn TagHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removal = append(h.removal, fn)
}

func (h *handlers) addFinished(fn WriteHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = append(h.finished, fn)
}

func (h *handlers) emitTag(ev TagEvent) {
	h.mu.RLock()
	var list []TagHandler
	if ev.Kind == EventArrival {
		list = h.arrival
	} else {
		list = h.removal
	}
	h.mu.RUnlock()

	for _, fn := range list {
		fn(ev)
	}
}

func (h *handlers) emitWrite(result WriteResult) {
	h.mu.RLock()
	list := h.finished
	h.mu.RUnlock()

	for _, fn := range list {
		fn(result)
	}
}
