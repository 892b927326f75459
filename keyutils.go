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

// Package keyutils provides a typed object model over the Linux kernel's
// key management facility.
//
// Keys and keyrings live inside the kernel and are addressed by numeric
// serial handles; the kernel enforces ownership, permissions, expiry and
// revocation. The Key and Keyring types of this package are lightweight
// local wrappers around such handles: constructing or dropping one has no
// effect on the kernel object, whose lifetime is governed entirely by its
// links and possession.
//
// The well-known keyrings (SessionKeyring, UserKeyring and friends) wrap
// the reserved negative serials that the kernel resolves to the calling
// thread's keyring of that class, instantiating it on first use. Their
// concrete serial is stable only until the keyring is replaced, for example
// by JoinSessionKeyring.
//
// Key values are not safe for concurrent use without external locking; the
// kernel objects they name can be manipulated by other processes at any
// time, so no sequence of calls here is atomic, and callers must tolerate
// for instance a key being revoked between Exists and Read.
package keyutils

import (
	"github.com/canonical/go-keyutils/keyctl"
)

// TypedKey is implemented by every key representation handed out by lookup,
// search and enumeration operations. The concrete type behind it is chosen
// through the key type registry: a "keyring" key comes back as *Keyring,
// an unrecognized type as the generic *Key carrying the raw type name.
type TypedKey interface {
	// ID returns the serial handle held by this wrapper. For the
	// well-known keyrings this is the reserved negative serial, not the
	// concrete one; see Resolve.
	ID() keyctl.Serial
	// Type returns the kernel key type name, fetching the key's
	// attributes if they were never seen. It returns an empty string
	// when the type is unknown and cannot be fetched.
	Type() string
	// Description returns the key's description, fetching the key's
	// attributes if they were never seen.
	Description() (string, error)
}

// Constructor builds the representation of one kernel key type from a
// serial handle and the key's description.
type Constructor func(id keyctl.Serial, description string) TypedKey

// keyTypes maps kernel key type names to registered constructors. Written
// only from init functions, read-only afterwards.
var keyTypes = map[string]Constructor{}

// RegisterKeyType registers a constructor for the given kernel key type, so
// that keys of that type found by lookup, search or enumeration are handed
// out as the representation the constructor builds. Registration must
// happen before the package is used, conventionally from an init function;
// registering a type twice panics.
func RegisterKeyType(name string, ctor Constructor) {
	if _, ok := keyTypes[name]; ok {
		panic("keyutils: key type " + name + " already registered")
	}
	keyTypes[name] = ctor
}

func init() {
	RegisterKeyType(keyctl.KeyringType, func(id keyctl.Serial, description string) TypedKey {
		return &Keyring{Key{id: id, typ: keyctl.KeyringType, desc: description, haveDesc: true}}
	})
}

// newTypedKey dispatches a serial through the key type registry.
func newTypedKey(id keyctl.Serial, typ, description string) TypedKey {
	if ctor := keyTypes[typ]; ctor != nil {
		return ctor(id, description)
	}
	return &Key{id: id, typ: typ, desc: description, haveDesc: true}
}

// calls into the low-level keyctl layer, indirected for testing
var (
	keyctlAddKey             = keyctl.AddKey
	keyctlRequestKey         = keyctl.RequestKey
	keyctlRequestKeyCallout  = keyctl.RequestKeyWithCallout
	keyctlGetKeyringID       = keyctl.GetKeyringID
	keyctlJoinSessionKeyring = keyctl.JoinSessionKeyring
	keyctlUpdate             = keyctl.Update
	keyctlRevoke             = keyctl.Revoke
	keyctlInvalidate         = keyctl.Invalidate
	keyctlChown              = keyctl.Chown
	keyctlSetPerm            = keyctl.SetPerm
	keyctlDescribe           = keyctl.Describe
	keyctlClear              = keyctl.Clear
	keyctlLink               = keyctl.Link
	keyctlUnlink             = keyctl.Unlink
	keyctlSearch             = keyctl.Search
	keyctlRead               = keyctl.Read
	keyctlReadKeyring        = keyctl.ReadKeyring
	keyctlInstantiate        = keyctl.Instantiate
	keyctlNegate             = keyctl.Negate
	keyctlReject             = keyctl.Reject
	keyctlSetReqKeyKeyring   = keyctl.SetReqKeyKeyring
	keyctlSetTimeout         = keyctl.SetTimeout
	keyctlAssumeAuthority    = keyctl.AssumeAuthority
	keyctlGetSecurity        = keyctl.GetSecurity
	keyctlSessionToParent    = keyctl.SessionToParent
	keyctlGetPersistent      = keyctl.GetPersistent
	keyctlRecursiveScan      = keyctl.RecursiveScan
)
