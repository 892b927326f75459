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
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/canonical/go-keyutils/keyctl"
)

// Key is the generic representation of a kernel key. It caches the
// attributes seen in the most recent Describe call; the cache is refreshed
// only by Describe, never behind the caller's back.
type Key struct {
	id       keyctl.Serial
	typ      string
	desc     string
	haveDesc bool

	info *Info

	security     string
	haveSecurity bool
}

// NewKey returns a wrapper for the key with the given serial. No check is
// made that the serial names an existing key.
func NewKey(id keyctl.Serial) *Key {
	return &Key{id: id}
}

// Info is a key's attribute record as reported by Describe.
type Info struct {
	Type        string
	UID         int
	GID         int
	Perm        KeyPerm
	Description string
}

// ID returns the serial handle held by this wrapper.
func (k *Key) ID() keyctl.Serial {
	return k.id
}

// Resolve returns the concrete serial of the key. For a well-known keyring
// handle this asks the kernel to resolve it, instantiating the keyring if
// it does not exist yet; concrete serials resolve to themselves without a
// syscall.
func (k *Key) Resolve() (keyctl.Serial, error) {
	if k.id > 0 {
		return k.id, nil
	}
	return keyctlGetKeyringID(k.id, true)
}

// Exists reports whether the key exists, without instantiating it if the
// handle is a well-known keyring. A key that exists but is not accessible
// to the caller is still reported as existing, since the kernel leaks
// existence through its permission check.
func (k *Key) Exists() (bool, error) {
	_, err := keyctlGetKeyringID(k.id, false)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.ENOKEY):
		return false, nil
	case errors.Is(err, unix.EACCES):
		return true, nil
	}
	return false, err
}

// Describe fetches the key's attribute record and refreshes the cached
// snapshot returned by Type and Description.
func (k *Key) Describe() (*Info, error) {
	raw, err := keyctlDescribe(k.id)
	if err != nil {
		return nil, err
	}
	info, err := parseInfo(raw)
	if err != nil {
		return nil, err
	}
	k.typ = info.Type
	k.desc = info.Description
	k.haveDesc = true
	k.info = info
	return info, nil
}

// parseInfo parses a raw "type;uid;gid;perm;description" attribute record.
// The description is everything after the fourth separator and may itself
// contain semicolons.
func parseInfo(raw string) (*Info, error) {
	fields := strings.SplitN(raw, ";", 5)
	if len(fields) < 5 {
		return nil, fmt.Errorf("cannot parse key attribute record %q: expected 5 fields", raw)
	}
	uid, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("cannot parse key owner uid %q: %v", fields[1], err)
	}
	gid, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("cannot parse key owner gid %q: %v", fields[2], err)
	}
	perm, err := strconv.ParseUint(fields[3], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("cannot parse key permission mask %q: %v", fields[3], err)
	}
	return &Info{
		Type:        fields[0],
		UID:         uid,
		GID:         gid,
		Perm:        KeyPerm(perm),
		Description: fields[4],
	}, nil
}

// Type returns the kernel key type name, describing the key first if the
// type was never seen. An empty string means the type could not be
// determined.
func (k *Key) Type() string {
	if k.typ == "" {
		if _, err := k.Describe(); err != nil {
			return ""
		}
	}
	return k.typ
}

// Description returns the key's description, describing the key first if
// it was never seen.
func (k *Key) Description() (string, error) {
	if !k.haveDesc {
		if _, err := k.Describe(); err != nil {
			return "", err
		}
	}
	return k.desc, nil
}

// Read returns the key's payload. Key types without a readable payload fail
// with EOPNOTSUPP.
func (k *Key) Read() ([]byte, error) {
	return keyctlRead(k.id)
}

// Update replaces the key's payload. An empty payload is legal for key
// types that accept one; key types without updatable payloads fail with
// EOPNOTSUPP.
func (k *Key) Update(payload []byte) error {
	return keyctlUpdate(k.id, payload)
}

// Revoke revokes the key. Revoking an already revoked key fails with
// EKEYREVOKED.
func (k *Key) Revoke() error {
	return keyctlRevoke(k.id)
}

// Invalidate schedules the key for removal by the kernel's garbage
// collector. Unlike Revoke it does not report a key that is already on its
// way out.
func (k *Key) Invalidate() error {
	return keyctlInvalidate(k.id)
}

// Chown changes the key's owning user and group. Either value may be -1 to
// leave that half unchanged; setting the owner to a different user requires
// privilege.
func (k *Key) Chown(uid, gid int) error {
	return keyctlChown(k.id, uid, gid)
}

// SetPerm replaces the key's permission mask.
func (k *Key) SetPerm(perm KeyPerm) error {
	return keyctlSetPerm(k.id, uint32(perm))
}

// SetTimeout arms the key's expiry timer. A zero timeout cancels any
// pending expiry; non-zero timeouts are rounded up to whole seconds.
func (k *Key) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("cannot set negative key timeout %v", timeout)
	}
	return keyctlSetTimeout(k.id, timeoutSeconds(timeout))
}

// Security returns the key's LSM security label, cached after the first
// fetch.
func (k *Key) Security() (string, error) {
	if !k.haveSecurity {
		label, err := keyctlGetSecurity(k.id)
		if err != nil {
			return "", err
		}
		k.security = label
		k.haveSecurity = true
	}
	return k.security, nil
}

// Instantiate supplies the payload for this uninstantiated key, optionally
// linking it into dest, and wakes up the requesting thread. Only legal
// while the calling thread holds instantiation authority over the key, see
// AssumeAuthority.
func (k *Key) Instantiate(payload []byte, dest *Keyring) error {
	return keyctlInstantiate(k.id, payload, destSerial(dest))
}

// Negate marks this uninstantiated key as negative for the given timeout,
// so that searches fail with ENOKEY instead of blocking, optionally linking
// it into dest. Only legal while the calling thread holds instantiation
// authority over the key.
func (k *Key) Negate(timeout time.Duration, dest *Keyring) error {
	return keyctlNegate(k.id, timeoutSeconds(timeout), destSerial(dest))
}

// Reject marks this uninstantiated key as negative for the given timeout
// with a chosen error code, so that searches fail with that code,
// optionally linking it into dest. Only legal while the calling thread
// holds instantiation authority over the key.
func (k *Key) Reject(timeout time.Duration, rejectErr unix.Errno, dest *Keyring) error {
	return keyctlReject(k.id, timeoutSeconds(timeout), rejectErr, destSerial(dest))
}

// AssumeAuthority assumes instantiation authority over this uninstantiated
// key for the calling thread. While held, the thread's key requests also
// search the keyrings of the process that originally requested the key.
// The state is per thread, not per process, and does not propagate to other
// goroutines; callers juggling authority should pin the goroutine with
// runtime.LockOSThread.
func (k *Key) AssumeAuthority() error {
	return keyctlAssumeAuthority(k.id)
}

// RenounceAuthority divests the calling thread of any instantiation
// authority it holds.
func RenounceAuthority() error {
	return keyctlAssumeAuthority(keyctl.NoKey)
}

func destSerial(dest *Keyring) keyctl.Serial {
	if dest == nil {
		return keyctl.NoKey
	}
	return dest.id
}

func timeoutSeconds(timeout time.Duration) uint {
	if timeout <= 0 {
		return 0
	}
	return uint((timeout + time.Second - 1) / time.Second)
}
