/*
 * registry.go, part of gochem.
 *
 *
 * Copyright 2024 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package ff

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Factory returns a new, unbound, instance of a force field.
type Factory func() ForceField

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: make(map[string]Factory)}

// Register makes a force field available under name. Registering
// a name again replaces the previous factory. It panics if name is empty or f is nil.
func Register(name string, f Factory) {
	if name == "" {
		panic("ff: Register with an empty name")
	}
	if f == nil {
		panic("ff: Register with a nil factory for " + name)
	}
	registry.Lock()
	defer registry.Unlock()
	registry.factories[name] = f
	log().Debug("force field registered", zap.String("name", name))
}

// New returns a new instance of the force field registered as name.
// The error satisfies errors.Is(err, ErrUnsupported) if no such force field exists.
func New(name string) (ForceField, error) {
	registry.RLock()
	f, ok := registry.factories[name]
	registry.RUnlock()
	if !ok {
		return nil, Error{message: fmt.Sprintf("Force field '%s' is not supported.", name), deco: []string{"New"}, critical: true, kind: ErrUnsupported}
	}
	return f(), nil
}

// Registered returns true if a force field is registered under name.
func Registered(name string) bool {
	registry.RLock()
	defer registry.RUnlock()
	_, ok := registry.factories[name]
	return ok
}

// Names returns the sorted names of all registered force fields.
func Names() []string {
	registry.RLock()
	names := make([]string, 0, len(registry.factories))
	for k := range registry.factories {
		names = append(names, k)
	}
	registry.RUnlock()
	sort.Strings(names)
	return names
}
