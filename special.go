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
)

// The well-known keyrings. Each wraps one of the reserved negative serials
// that the kernel resolves to the calling thread's keyring of that class,
// instantiating it on first use where the operation asks for that; use
// Resolve to obtain the concrete serial. The wrappers are shared and must
// not be mutated; to cache attributes, resolve into a private wrapper
// first.
var (
	ThreadKeyring      = NewKeyringFromID(keyctl.SpecThreadKeyring)
	ProcessKeyring     = NewKeyringFromID(keyctl.SpecProcessKeyring)
	SessionKeyring     = NewKeyringFromID(keyctl.SpecSessionKeyring)
	UserKeyring        = NewKeyringFromID(keyctl.SpecUserKeyring)
	UserSessionKeyring = NewKeyringFromID(keyctl.SpecUserSessionKeyring)
	GroupKeyring       = NewKeyringFromID(keyctl.SpecGroupKeyring)

	// RequestKeyAuthKey is the authorisation key covering the key
	// request the calling thread is currently servicing, if any. It is
	// a key, not a keyring.
	RequestKeyAuthKey = NewKey(keyctl.SpecReqKeyAuthKey)
)

// JoinSessionKeyring replaces the calling process's session keyring. With
// an empty name the kernel creates a fresh anonymous keyring; with a
// non-empty name it attaches to an existing keyring of that name if one is
// searchable, and otherwise creates and names a new one.
func JoinSessionKeyring(name string) (*Keyring, error) {
	id, err := keyctlJoinSessionKeyring(name)
	if err != nil {
		return nil, err
	}
	ring := NewKeyringFromID(id)
	ring.desc = name
	ring.haveDesc = name != ""
	return ring, nil
}

// SessionToParent schedules the replacement of the parent process's session
// keyring with the caller's. The replacement only takes effect once the
// parent next returns to user space.
func SessionToParent() error {
	return keyctlSessionToParent()
}

// PersistentKeyring fetches the persistent keyring of the given user,
// refreshing its expiry timer and creating the keyring if it does not
// exist. A uid of -1 means the calling user; any other uid requires
// privilege. If dest is not nil the keyring is also linked into it.
func PersistentKeyring(uid int, dest *Keyring) (*Keyring, error) {
	id, err := keyctlGetPersistent(uid, destSerial(dest))
	if err != nil {
		return nil, err
	}
	return NewKeyringFromID(id), nil
}

// RequestKey searches the calling thread's keyring hierarchy (thread, then
// process, then session keyring, plus the original requester's hierarchy
// when servicing a key request under assumed authority) for a key of the
// given type and description. It returns nil without an error when no key
// is found. If dest is not nil the found key is linked into it.
func RequestKey(keyType, description string, dest *Keyring) (TypedKey, error) {
	id, err := keyctlRequestKey(keyType, description, destSerial(dest))
	return requestResult(id, keyType, description, err)
}

// RequestKeyWithCallout is RequestKey, but on a miss the kernel delegates
// to the user space key resolver, passing it the callout information, and
// blocks the calling thread until the key is instantiated or rejected; a
// failed resolution installs a time-limited negative key. The call is
// interruptible by a signal, which surfaces as EINTR. It returns nil
// without an error only when the final outcome is "no such key".
func RequestKeyWithCallout(keyType, description, callout string, dest *Keyring) (TypedKey, error) {
	id, err := keyctlRequestKeyCallout(keyType, description, callout, destSerial(dest))
	return requestResult(id, keyType, description, err)
}

func requestResult(id keyctl.Serial, keyType, description string, err error) (TypedKey, error) {
	if err != nil {
		if errors.Is(err, unix.ENOKEY) {
			return nil, nil
		}
		return nil, err
	}
	return newTypedKey(id, keyType, description), nil
}

// mapping between the well-known keyrings and the kernel's default
// request-key destination enumeration, both ways
var (
	reqkeyDefaults = map[keyctl.Serial]int{
		keyctl.SpecThreadKeyring:      unix.KEY_REQKEY_DEFL_THREAD_KEYRING,
		keyctl.SpecProcessKeyring:     unix.KEY_REQKEY_DEFL_PROCESS_KEYRING,
		keyctl.SpecSessionKeyring:     unix.KEY_REQKEY_DEFL_SESSION_KEYRING,
		keyctl.SpecUserKeyring:        unix.KEY_REQKEY_DEFL_USER_KEYRING,
		keyctl.SpecUserSessionKeyring: unix.KEY_REQKEY_DEFL_USER_SESSION_KEYRING,
		keyctl.SpecGroupKeyring:       unix.KEY_REQKEY_DEFL_GROUP_KEYRING,
	}
	reqkeyWellKnown = map[int]*Keyring{
		unix.KEY_REQKEY_DEFL_THREAD_KEYRING:       ThreadKeyring,
		unix.KEY_REQKEY_DEFL_PROCESS_KEYRING:      ProcessKeyring,
		unix.KEY_REQKEY_DEFL_SESSION_KEYRING:      SessionKeyring,
		unix.KEY_REQKEY_DEFL_USER_KEYRING:         UserKeyring,
		unix.KEY_REQKEY_DEFL_USER_SESSION_KEYRING: UserSessionKeyring,
		unix.KEY_REQKEY_DEFL_GROUP_KEYRING:        GroupKeyring,
	}
)

// SetDefaultRequestKeyring sets the calling thread's destination keyring
// for keys instantiated through implicit, kernel-originated key requests,
// for example network filesystem credential fetches. Only the well-known
// keyrings can be the default destination, never an arbitrary concrete
// keyring; nil restores the kernel's default policy. The setting is per
// thread and does not propagate to other goroutines.
func SetDefaultRequestKeyring(ring *Keyring) error {
	defl := unix.KEY_REQKEY_DEFL_DEFAULT
	if ring != nil {
		var ok bool
		defl, ok = reqkeyDefaults[ring.id]
		if !ok {
			return fmt.Errorf("cannot use keyring %d as default request keyring: not a well-known keyring", ring.id)
		}
	}
	_, err := keyctlSetReqKeyKeyring(defl)
	return err
}

// DefaultRequestKeyring returns the well-known keyring that is the calling
// thread's current destination for implicitly requested keys, or nil if the
// kernel's default policy applies.
func DefaultRequestKeyring() (*Keyring, error) {
	defl, err := keyctlSetReqKeyKeyring(unix.KEY_REQKEY_DEFL_NO_CHANGE)
	if err != nil {
		return nil, err
	}
	return reqkeyWellKnown[defl], nil
}
