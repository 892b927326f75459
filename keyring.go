// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package keyutils

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/canonical/go-keyutils/keyctl"
	"github.com/canonical/go-keyutils/logger"
)

// Keyring is a key whose payload is a list of links to other keys, at most
// one per distinct (type, description) pair. It has no lifetime of its own
// separate from the Key it is.
type Keyring struct {
	Key
}

// NewKeyringFromID returns a wrapper for the keyring with the given serial.
// No check is made that the serial names an existing keyring.
func NewKeyringFromID(id keyctl.Serial) *Keyring {
	return &Keyring{Key{id: id, typ: keyctl.KeyringType}}
}

// Add creates a key of the given type and description in this keyring,
// with the given payload. If a key of the same type and description already
// exists in the keyring and its type supports updating, its payload is
// replaced and the same serial is handed back; otherwise the new key
// displaces the old link. The returned representation is dispatched through
// the key type registry on the requested type.
func (r *Keyring) Add(keyType, description string, payload []byte) (TypedKey, error) {
	id, err := keyctlAddKey(keyType, description, payload, r.id)
	if err != nil {
		return nil, err
	}
	return newTypedKey(id, keyType, description), nil
}

// NewKeyring creates a keyring with the given description inside this
// keyring.
func (r *Keyring) NewKeyring(description string) (*Keyring, error) {
	k, err := r.Add(keyctl.KeyringType, description, nil)
	if err != nil {
		return nil, err
	}
	ring, ok := k.(*Keyring)
	if !ok {
		return nil, fmt.Errorf("internal error: keyring type dispatched to %T", k)
	}
	return ring, nil
}

// Clear removes all links from this keyring. It requires write permission
// on the keyring.
func (r *Keyring) Clear() error {
	return keyctlClear(r.id)
}

// Link links the given key into this keyring, displacing any existing link
// to a key of the same type and description. It requires link permission on
// the key and write permission on the keyring.
func (r *Keyring) Link(key TypedKey) error {
	return keyctlLink(key.ID(), r.id)
}

// Unlink removes the link to the given key from this keyring. Unlinking a
// key that is not linked is a successful no-op.
func (r *Keyring) Unlink(key TypedKey) error {
	err := keyctlUnlink(key.ID(), r.id)
	if err != nil && errors.Is(err, unix.ENOENT) {
		return nil
	}
	return err
}

// Search searches this keyring's subtree depth first for a key of the
// given type and description, descending only into keyrings the caller may
// search. It returns nil without an error when no key matches; every other
// failure is reported. The found key is dispatched through the key type
// registry.
func (r *Keyring) Search(keyType, description string) (TypedKey, error) {
	return r.search(keyType, description, keyctl.NoKey)
}

// SearchAndLink is Search, but additionally links the found key into dest.
func (r *Keyring) SearchAndLink(keyType, description string, dest *Keyring) (TypedKey, error) {
	return r.search(keyType, description, destSerial(dest))
}

func (r *Keyring) search(keyType, description string, dest keyctl.Serial) (TypedKey, error) {
	id, err := keyctlSearch(r.id, keyType, description, dest)
	if err != nil {
		if errors.Is(err, unix.ENOKEY) {
			return nil, nil
		}
		return nil, err
	}
	return newTypedKey(id, keyType, description), nil
}

// Keys returns the keys linked into this keyring, in link order. Each key
// is described and dispatched through the key type registry; keys whose
// attributes cannot be fetched, for example because the caller may not view
// them, are handed back as generic untyped keys rather than dropped.
func (r *Keyring) Keys() ([]TypedKey, error) {
	links, err := keyctlReadKeyring(r.id)
	if err != nil {
		return nil, err
	}
	keys := make([]TypedKey, 0, len(links))
	for _, id := range links {
		keys = append(keys, describeAndDispatch(id))
	}
	return keys, nil
}

func describeAndDispatch(id keyctl.Serial) TypedKey {
	raw, err := keyctlDescribe(id)
	if err == nil {
		var info *Info
		if info, err = parseInfo(raw); err == nil {
			return newTypedKey(id, info.Type, info.Description)
		}
	}
	logger.Debugf("cannot resolve type of key %d: %v", id, err)
	return &Key{id: id}
}

// Each invokes fn once per key linked into this keyring, stopping at the
// first error, which is passed through.
func (r *Keyring) Each(fn func(key TypedKey) error) error {
	keys, err := r.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

// Length returns the number of keys linked into this keyring.
func (r *Keyring) Length() (int, error) {
	links, err := keyctlReadKeyring(r.id)
	if err != nil {
		return 0, err
	}
	return len(links), nil
}

// ScanEntry describes one link visited by EachRecursive.
type ScanEntry struct {
	// Parent is the keyring holding the visited link; it is nil for the
	// synthetic entry reporting the scan root itself.
	Parent *Keyring
	// Key is the linked key, dispatched through the key type registry
	// when its attribute record was resolvable and a generic untyped
	// key otherwise.
	Key TypedKey
	// Raw is the key's raw attribute record, empty if it could not be
	// fetched.
	Raw string
	// Err is the error that prevented fetching the attribute record,
	// if any. Entries with a non-nil Err are reported, but their
	// subtrees are not entered.
	Err error
}

// EachRecursive walks the keyring tree below this keyring depth first,
// invoking fn once for the root and then once per link encountered. Keys
// and keyrings that cannot be resolved or entered are reported with the
// error attached rather than aborting the walk, and a key reachable over
// several links is reported once per link. The walk stops early only when
// fn returns an error, which is passed through.
func (r *Keyring) EachRecursive(fn func(entry ScanEntry) error) error {
	return keyctlRecursiveScan(r.id, func(parent, id keyctl.Serial, raw string, err error) error {
		entry := ScanEntry{Raw: raw, Err: err}
		if parent != keyctl.NoKey {
			entry.Parent = NewKeyringFromID(parent)
		}
		if err == nil {
			if info, parseErr := parseInfo(raw); parseErr == nil {
				entry.Key = newTypedKey(id, info.Type, info.Description)
			} else {
				entry.Err = parseErr
				entry.Key = NewKey(id)
			}
		} else {
			entry.Key = NewKey(id)
		}
		return fn(entry)
	})
}
