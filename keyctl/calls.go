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

package keyctl

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/canonical/go-keyutils/logger"
)

// AddKey creates or updates a key of the given type and description in the
// keyring with the given serial, returning the serial of the new key. If the
// keyring already carries a key of the same type and description the payload
// of that key is replaced and its serial returned, displacing no link.
func AddKey(keyType, description string, payload []byte, ringid Serial) (Serial, error) {
	id, err := sysAddKey(keyType, description, payload, ringid)
	if err != nil {
		return 0, wrapErr("add key", err)
	}
	return id, nil
}

// RequestKey searches the calling thread's keyring hierarchy for a key of
// the given type and description, without invoking the user space key
// resolver on a miss. If destRingid is not NoKey, a link to the found key is
// added to that keyring.
func RequestKey(keyType, description string, destRingid Serial) (Serial, error) {
	id, err := sysRequestKey(keyType, description, nil, destRingid)
	if err != nil {
		return 0, wrapErr("request key", err)
	}
	return id, nil
}

// RequestKeyWithCallout is RequestKey with a callout string: on a miss the
// kernel invokes the user space key resolver, passing it the callout
// information, and blocks the calling thread until the key is instantiated
// or rejected.
func RequestKeyWithCallout(keyType, description, callout string, destRingid Serial) (Serial, error) {
	id, err := sysRequestKey(keyType, description, &callout, destRingid)
	if err != nil {
		return 0, wrapErr("request key", err)
	}
	return id, nil
}

// GetKeyringID resolves the given serial, typically one of the Spec*
// special handles, to the concrete serial of the keyring it refers to. With
// create set, a special keyring that does not exist yet is instantiated
// rather than reported as missing.
func GetKeyringID(id Serial, create bool) (Serial, error) {
	realID, err := sysGetKeyringID(int(id), create)
	if err != nil {
		return 0, wrapErr("get keyring id", err)
	}
	return Serial(realID), nil
}

// JoinSessionKeyring replaces the calling process's session keyring. An
// empty name creates a fresh anonymous keyring; a non-empty name joins an
// existing keyring of that name if one is searchable, and otherwise creates
// and names a new one.
func JoinSessionKeyring(name string) (Serial, error) {
	id, err := sysJoinSession(name)
	if err != nil {
		return 0, wrapErr("join session keyring", err)
	}
	return id, nil
}

// Update replaces the payload of the key with the given serial.
func Update(id Serial, payload []byte) error {
	return wrapErr("update", sysUpdate(id, payload))
}

// Revoke revokes the key with the given serial. Revoking an already revoked
// key fails with EKEYREVOKED.
func Revoke(id Serial) error {
	_, err := sysKeyctlInt(unix.KEYCTL_REVOKE, int(id), 0, 0, 0)
	return wrapErr("revoke", err)
}

// Invalidate marks the key with the given serial for immediate removal by
// the kernel's garbage collector.
func Invalidate(id Serial) error {
	_, err := sysKeyctlInt(unix.KEYCTL_INVALIDATE, int(id), 0, 0, 0)
	return wrapErr("invalidate", err)
}

// Chown changes the owning user and group of the key with the given serial.
// Either value may be -1 to leave that half unchanged.
func Chown(id Serial, uid, gid int) error {
	_, err := sysKeyctlInt(unix.KEYCTL_CHOWN, int(id), uid, gid, 0)
	return wrapErr("change key ownership", err)
}

// SetPerm replaces the permission mask of the key with the given serial.
func SetPerm(id Serial, perm uint32) error {
	_, err := sysKeyctlInt(unix.KEYCTL_SETPERM, int(id), int(perm), 0, 0)
	return wrapErr("set key permissions", err)
}

// Describe fetches the attribute record of the key with the given serial,
// in the kernel's "type;uid;gid;perm;description" format.
func Describe(id Serial) (string, error) {
	buf, err := getBuffer("describe", unix.KEYCTL_DESCRIBE, id)
	if err != nil {
		return "", err
	}
	// the reported length includes the terminating NUL
	if n := len(buf); n > 0 && buf[n-1] == 0 {
		buf = buf[:n-1]
	}
	return string(buf), nil
}

// Clear removes all links from the keyring with the given serial.
func Clear(ringid Serial) error {
	_, err := sysKeyctlInt(unix.KEYCTL_CLEAR, int(ringid), 0, 0, 0)
	return wrapErr("clear keyring", err)
}

// Link links the key with serial id into the keyring with serial ringid,
// displacing any existing link of the same key type and description.
func Link(id, ringid Serial) error {
	_, err := sysKeyctlInt(unix.KEYCTL_LINK, int(id), int(ringid), 0, 0)
	return wrapErr("link", err)
}

// Unlink removes the link to the key with serial id from the keyring with
// serial ringid. Unlinking a key that is not linked fails with ENOENT.
func Unlink(id, ringid Serial) error {
	_, err := sysKeyctlInt(unix.KEYCTL_UNLINK, int(id), int(ringid), 0, 0)
	return wrapErr("unlink", err)
}

// Search performs a recursive, permission-gated search for a key of the
// given type and description below the keyring with serial ringid. If
// destRingid is not NoKey, a link to the found key is added to that keyring.
func Search(ringid Serial, keyType, description string, destRingid Serial) (Serial, error) {
	id, err := sysKeyctlSearch(int(ringid), keyType, description, int(destRingid))
	if err != nil {
		return 0, wrapErr("search", err)
	}
	return Serial(id), nil
}

// Read fetches the payload of the key with the given serial. For keyrings
// the payload is the packed array of linked serials.
func Read(id Serial) ([]byte, error) {
	return getBuffer("read", unix.KEYCTL_READ, id)
}

// Instantiate supplies the payload for an uninstantiated key and links it
// into the keyring with serial ringid (NoKey for none), waking up the
// requesting thread. The caller must have assumed instantiation authority
// over the key.
func Instantiate(id Serial, payload []byte, ringid Serial) error {
	return wrapErr("instantiate", sysInstantiate(id, payload, ringid))
}

// Negate marks an uninstantiated key as negative for timeout seconds, so
// that searches fail with ENOKEY instead of blocking, and links it into the
// keyring with serial ringid (NoKey for none). The caller must have assumed
// instantiation authority over the key.
func Negate(id Serial, timeout uint, ringid Serial) error {
	_, err := sysKeyctlInt(unix.KEYCTL_NEGATE, int(id), int(timeout), int(ringid), 0)
	return wrapErr("negate", err)
}

// Reject marks an uninstantiated key as negative for timeout seconds with a
// chosen error code, so that searches fail with that code, and links it
// into the keyring with serial ringid (NoKey for none). The caller must
// have assumed instantiation authority over the key.
func Reject(id Serial, timeout uint, errno unix.Errno, ringid Serial) error {
	_, err := sysKeyctlInt(unix.KEYCTL_REJECT, int(id), int(timeout), int(errno), int(ringid))
	return wrapErr("reject", err)
}

// SetReqKeyKeyring sets the calling thread's default destination keyring
// for implicit key requests to one of the unix.KEY_REQKEY_DEFL_* values,
// returning the previous setting. Passing unix.KEY_REQKEY_DEFL_NO_CHANGE
// reads the setting without changing it.
func SetReqKeyKeyring(defl int) (int, error) {
	old, err := sysKeyctlInt(unix.KEYCTL_SET_REQKEY_KEYRING, defl, 0, 0, 0)
	if err != nil {
		return 0, wrapErr("set default request keyring", err)
	}
	return old, nil
}

// SetTimeout arms the expiry timer on the key with the given serial.
// A timeout of zero cancels any pending expiry.
func SetTimeout(id Serial, seconds uint) error {
	_, err := sysKeyctlInt(unix.KEYCTL_SET_TIMEOUT, int(id), int(seconds), 0, 0)
	return wrapErr("set timeout", err)
}

// AssumeAuthority assumes, for the calling thread, the instantiation
// authority over the uninstantiated key with the given serial. Serial 0
// divests any authority currently assumed.
func AssumeAuthority(id Serial) error {
	_, err := sysKeyctlInt(unix.KEYCTL_ASSUME_AUTHORITY, int(id), 0, 0, 0)
	return wrapErr("assume authority", err)
}

// GetSecurity fetches the LSM security label of the key with the given
// serial.
func GetSecurity(id Serial) (string, error) {
	buf, err := getBuffer("get security label", unix.KEYCTL_GET_SECURITY, id)
	if err != nil {
		return "", err
	}
	if n := len(buf); n > 0 && buf[n-1] == 0 {
		buf = buf[:n-1]
	}
	return string(buf), nil
}

// SessionToParent schedules the replacement of the parent process's session
// keyring with the caller's. The replacement takes effect the next time the
// parent returns to user space.
func SessionToParent() error {
	_, err := sysKeyctlInt(unix.KEYCTL_SESSION_TO_PARENT, 0, 0, 0, 0)
	return wrapErr("move session keyring to parent", err)
}

// GetPersistent fetches the persistent keyring of the given user,
// refreshing its expiry timer and creating it if absent, and links it into
// the keyring with serial destRingid (NoKey for none). A uid of -1 means
// the calling user; any other uid requires privilege.
func GetPersistent(uid int, destRingid Serial) (Serial, error) {
	id, err := sysKeyctlInt(unix.KEYCTL_GET_PERSISTENT, uid, int(destRingid), 0, 0)
	if err != nil {
		return 0, wrapErr("get persistent keyring", err)
	}
	return Serial(id), nil
}

// probeBufferSize is the initial buffer handed to payload and attribute
// fetching calls; most keys fit and need no renegotiation.
const probeBufferSize = 64

// getBuffer implements the variable length buffer protocol shared by the
// describe, read and security operations: probe with a fixed size buffer,
// and if the kernel reports a larger required length, reallocate to exactly
// that length and retry once. The second reply is authoritative; a kernel
// that reports a still larger length on the retry violates the protocol.
func getBuffer(op string, cmd int, id Serial) ([]byte, error) {
	buf := make([]byte, probeBufferSize)
	n, err := sysKeyctlBuffer(cmd, int(id), buf, 0)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if n > len(buf) {
		logger.Debugf("key %d needs a %d byte buffer to %s", id, n, op)
		buf = make([]byte, n)
		n, err = sysKeyctlBuffer(cmd, int(id), buf, 0)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		if n > len(buf) {
			return nil, fmt.Errorf("cannot %s: kernel reported a buffer size of %d bytes for key %d after allocating the %d it asked for", op, n, id, len(buf))
		}
	}
	return buf[:n], nil
}
