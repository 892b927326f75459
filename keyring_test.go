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

package keyutils_test

import (
	"fmt"

	"golang.org/x/sys/unix"
	. "gopkg.in/check.v1"

	keyutils "github.com/canonical/go-keyutils"
	"github.com/canonical/go-keyutils/keyctl"
	"github.com/canonical/go-keyutils/testutil"
)

type keyringSuite struct {
	testutil.BaseTest

	store *keyStore
}

var _ = Suite(&keyringSuite{})

// keyStore is an in-memory stand-in for the kernel's key table, faithful
// enough for the keyring semantics under test: one link per (type,
// description) pair, add-or-update, recursive search.
type keyStore struct {
	nextSerial keyctl.Serial
	keys       map[keyctl.Serial]*storedKey
	rings      map[keyctl.Serial][]keyctl.Serial
	session    keyctl.Serial
}

type storedKey struct {
	typ, desc string
	payload   []byte
}

func newKeyStore() *keyStore {
	return &keyStore{nextSerial: 1000, keys: map[keyctl.Serial]*storedKey{}, rings: map[keyctl.Serial][]keyctl.Serial{}}
}

func (st *keyStore) newRing(desc string) keyctl.Serial {
	id := st.nextSerial
	st.nextSerial++
	st.keys[id] = &storedKey{typ: "keyring", desc: desc}
	st.rings[id] = nil
	return id
}

func (st *keyStore) resolve(id keyctl.Serial) keyctl.Serial {
	if id == keyctl.SpecSessionKeyring {
		return st.session
	}
	return id
}

func (st *keyStore) add(keyType, desc string, payload []byte, ringid keyctl.Serial) (keyctl.Serial, error) {
	ringid = st.resolve(ringid)
	if _, ok := st.rings[ringid]; !ok {
		return 0, &keyctl.Error{Op: "add key", Errno: unix.ENOKEY, Msg: "the destination keyring does not exist"}
	}
	for _, id := range st.rings[ringid] {
		if k := st.keys[id]; k.typ == keyType && k.desc == desc {
			// update in place
			k.payload = append([]byte(nil), payload...)
			return id, nil
		}
	}
	id := st.nextSerial
	st.nextSerial++
	st.keys[id] = &storedKey{typ: keyType, desc: desc, payload: append([]byte(nil), payload...)}
	if keyType == "keyring" {
		st.rings[id] = nil
	}
	st.rings[ringid] = append(st.rings[ringid], id)
	return id, nil
}

func (st *keyStore) search(ringid keyctl.Serial, keyType, desc string) (keyctl.Serial, error) {
	ringid = st.resolve(ringid)
	for _, id := range st.rings[ringid] {
		k := st.keys[id]
		if k.typ == keyType && k.desc == desc {
			return id, nil
		}
		if _, isRing := st.rings[id]; isRing {
			if found, err := st.search(id, keyType, desc); err == nil {
				return found, nil
			}
		}
	}
	return 0, &keyctl.Error{Op: "search", Errno: unix.ENOKEY, Msg: "no matching key was found"}
}

func (st *keyStore) install(s *keyringSuite) {
	s.AddCleanup(keyutils.MockKeyctlAddKey(st.add))
	s.AddCleanup(keyutils.MockKeyctlSearch(func(ringid keyctl.Serial, keyType, description string, destRingid keyctl.Serial) (keyctl.Serial, error) {
		return st.search(ringid, keyType, description)
	}))
	s.AddCleanup(keyutils.MockKeyctlDescribe(func(id keyctl.Serial) (string, error) {
		k, ok := st.keys[st.resolve(id)]
		if !ok {
			return "", &keyctl.Error{Op: "describe", Errno: unix.ENOKEY, Msg: "no such key"}
		}
		return fmt.Sprintf("%s;1000;1000;3f010000;%s", k.typ, k.desc), nil
	}))
	s.AddCleanup(keyutils.MockKeyctlRead(func(id keyctl.Serial) ([]byte, error) {
		k, ok := st.keys[st.resolve(id)]
		if !ok {
			return nil, &keyctl.Error{Op: "read", Errno: unix.ENOKEY, Msg: "no such key"}
		}
		return k.payload, nil
	}))
	s.AddCleanup(keyutils.MockKeyctlReadKeyring(func(ringid keyctl.Serial) ([]keyctl.Serial, error) {
		links, ok := st.rings[st.resolve(ringid)]
		if !ok {
			return nil, &keyctl.Error{Op: "read", Errno: unix.ENOKEY, Msg: "no such keyring"}
		}
		return links, nil
	}))
	s.AddCleanup(keyutils.MockKeyctlClear(func(ringid keyctl.Serial) error {
		st.rings[st.resolve(ringid)] = nil
		return nil
	}))
	s.AddCleanup(keyutils.MockKeyctlJoinSessionKeyring(func(name string) (keyctl.Serial, error) {
		st.session = st.newRing(name)
		return st.session, nil
	}))
}

func (s *keyringSuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)
	s.store = newKeyStore()
	s.store.install(s)
}

func (s *keyringSuite) TestAddThenSearchFindsSameSerial(c *C) {
	ring := keyutils.NewKeyringFromID(s.store.newRing("ring"))
	key, err := ring.Add("user", "snap:token", []byte("secret"))
	c.Assert(err, IsNil)
	c.Check(key.Type(), Equals, "user")

	found, err := ring.Search("user", "snap:token")
	c.Assert(err, IsNil)
	c.Assert(found, NotNil)
	c.Check(found.ID(), Equals, key.ID())
}

func (s *keyringSuite) TestAddTwiceUpdatesInPlace(c *C) {
	ring := keyutils.NewKeyringFromID(s.store.newRing("ring"))
	key1, err := ring.Add("user", "snap:token", []byte("v1"))
	c.Assert(err, IsNil)
	key2, err := ring.Add("user", "snap:token", []byte("v2"))
	c.Assert(err, IsNil)
	// same serial, not a duplicate link
	c.Check(key2.ID(), Equals, key1.ID())

	n, err := ring.Length()
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)

	payload, err := keyutils.NewKey(key1.ID()).Read()
	c.Assert(err, IsNil)
	c.Check(string(payload), Equals, "v2")
}

func (s *keyringSuite) TestAddDispatchesOnRequestedType(c *C) {
	ring := keyutils.NewKeyringFromID(s.store.newRing("ring"))
	sub, err := ring.Add("keyring", "subring", nil)
	c.Assert(err, IsNil)
	_, ok := sub.(*keyutils.Keyring)
	c.Check(ok, Equals, true)

	key, err := ring.Add("user", "snap:token", []byte("x"))
	c.Assert(err, IsNil)
	_, ok = key.(*keyutils.Keyring)
	c.Check(ok, Equals, false)
}

func (s *keyringSuite) TestSearchMissIsNotAnError(c *C) {
	ring := keyutils.NewKeyringFromID(s.store.newRing("ring"))
	found, err := ring.Search("user", "no-such-thing")
	c.Assert(err, IsNil)
	c.Check(found, IsNil)
}

func (s *keyringSuite) TestSearchDescendsIntoNestedKeyrings(c *C) {
	ring := keyutils.NewKeyringFromID(s.store.newRing("ring"))
	sub, err := ring.NewKeyring("subring")
	c.Assert(err, IsNil)
	key, err := sub.Add("user", "deep:key", []byte("x"))
	c.Assert(err, IsNil)

	found, err := ring.Search("user", "deep:key")
	c.Assert(err, IsNil)
	c.Assert(found, NotNil)
	c.Check(found.ID(), Equals, key.ID())
}

func (s *keyringSuite) TestSearchPropagatesOtherErrors(c *C) {
	restore := keyutils.MockKeyctlSearch(func(ringid keyctl.Serial, keyType, description string, destRingid keyctl.Serial) (keyctl.Serial, error) {
		return 0, &keyctl.Error{Op: "search", Errno: unix.EKEYREVOKED, Msg: "revoked"}
	})
	s.AddCleanup(restore)

	ring := keyutils.NewKeyringFromID(1)
	_, err := ring.Search("user", "x")
	c.Check(err, testutil.ErrorIs, unix.EKEYREVOKED)
}

func (s *keyringSuite) TestSearchAndLinkPassesDestination(c *C) {
	var gotDest keyctl.Serial
	restore := keyutils.MockKeyctlSearch(func(ringid keyctl.Serial, keyType, description string, destRingid keyctl.Serial) (keyctl.Serial, error) {
		gotDest = destRingid
		return 5, nil
	})
	s.AddCleanup(restore)

	ring := keyutils.NewKeyringFromID(1)
	dest := keyutils.NewKeyringFromID(2)
	_, err := ring.SearchAndLink("user", "x", dest)
	c.Assert(err, IsNil)
	c.Check(gotDest, Equals, keyctl.Serial(2))
}

func (s *keyringSuite) TestUnlinkIsIdempotent(c *C) {
	calls := 0
	restore := keyutils.MockKeyctlUnlink(func(id, ringid keyctl.Serial) error {
		calls++
		if calls > 1 {
			return &keyctl.Error{Op: "unlink", Errno: unix.ENOENT, Msg: "the key is not linked to the keyring"}
		}
		return nil
	})
	s.AddCleanup(restore)

	ring := keyutils.NewKeyringFromID(1)
	key := keyutils.NewKey(2)
	c.Check(ring.Unlink(key), IsNil)
	// the second unlink is a successful no-op
	c.Check(ring.Unlink(key), IsNil)
	c.Check(calls, Equals, 2)
}

func (s *keyringSuite) TestUnlinkPropagatesOtherErrors(c *C) {
	restore := keyutils.MockKeyctlUnlink(func(id, ringid keyctl.Serial) error {
		return &keyctl.Error{Op: "unlink", Errno: unix.EACCES, Msg: "not writable"}
	})
	s.AddCleanup(restore)

	ring := keyutils.NewKeyringFromID(1)
	c.Check(ring.Unlink(keyutils.NewKey(2)), testutil.ErrorIs, unix.EACCES)
}

func (s *keyringSuite) TestLink(c *C) {
	var gotKey, gotRing keyctl.Serial
	restore := keyutils.MockKeyctlLink(func(id, ringid keyctl.Serial) error {
		gotKey, gotRing = id, ringid
		return nil
	})
	s.AddCleanup(restore)

	ring := keyutils.NewKeyringFromID(10)
	c.Assert(ring.Link(keyutils.NewKey(20)), IsNil)
	c.Check(gotKey, Equals, keyctl.Serial(20))
	c.Check(gotRing, Equals, keyctl.Serial(10))
}

func (s *keyringSuite) TestKeysDispatchesAndFallsBack(c *C) {
	ring := keyutils.NewKeyringFromID(s.store.newRing("ring"))
	_, err := ring.Add("user", "snap:token", []byte("x"))
	c.Assert(err, IsNil)
	sub, err := ring.NewKeyring("subring")
	c.Assert(err, IsNil)

	// a key that cannot be described comes back generic, not dropped
	hidden := s.store.nextSerial
	s.store.nextSerial++
	s.store.rings[ring.ID()] = append(s.store.rings[ring.ID()], hidden)

	keys, err := ring.Keys()
	c.Assert(err, IsNil)
	c.Assert(keys, HasLen, 3)
	c.Check(keys[0].Type(), Equals, "user")
	c.Check(keys[1].ID(), Equals, sub.ID())
	_, isRing := keys[1].(*keyutils.Keyring)
	c.Check(isRing, Equals, true)
	c.Check(keys[2].ID(), Equals, hidden)
	c.Check(keys[2].Type(), Equals, "")
}

func (s *keyringSuite) TestEachStopsOnError(c *C) {
	ring := keyutils.NewKeyringFromID(s.store.newRing("ring"))
	for i := 0; i < 3; i++ {
		_, err := ring.Add("user", fmt.Sprintf("key:%d", i), nil)
		c.Assert(err, IsNil)
	}

	var seen int
	err := ring.Each(func(key keyutils.TypedKey) error {
		seen++
		if seen == 2 {
			return fmt.Errorf("enough")
		}
		return nil
	})
	c.Assert(err, ErrorMatches, "enough")
	c.Check(seen, Equals, 2)
}

func (s *keyringSuite) TestSessionScenario(c *C) {
	session, err := keyutils.JoinSessionKeyring("")
	c.Assert(err, IsNil)

	_, err = session.Add("user", "app:id", []byte("secret"))
	c.Assert(err, IsNil)

	found, err := session.Search("user", "app:id")
	c.Assert(err, IsNil)
	c.Assert(found, NotNil)
	payload, err := keyutils.NewKey(found.ID()).Read()
	c.Assert(err, IsNil)
	c.Check(string(payload), Equals, "secret")

	c.Assert(session.Clear(), IsNil)
	found, err = session.Search("user", "app:id")
	c.Assert(err, IsNil)
	c.Check(found, IsNil)
}

func (s *keyringSuite) TestEachRecursive(c *C) {
	restore := keyutils.MockKeyctlRecursiveScan(func(root keyctl.Serial, fn keyctl.ScanFunc) error {
		c.Check(root, Equals, keyctl.Serial(100))
		if err := fn(0, 100, "keyring;0;0;3f1f0000;root", nil); err != nil {
			return err
		}
		if err := fn(100, 200, "user;0;0;3f010000;app:id", nil); err != nil {
			return err
		}
		return fn(100, 300, "", &keyctl.Error{Op: "describe", Errno: unix.EACCES, Msg: "private"})
	})
	s.AddCleanup(restore)

	var entries []keyutils.ScanEntry
	ring := keyutils.NewKeyringFromID(100)
	err := ring.EachRecursive(func(entry keyutils.ScanEntry) error {
		entries = append(entries, entry)
		return nil
	})
	c.Assert(err, IsNil)
	c.Assert(entries, HasLen, 3)

	// the root event has no parent and is typed
	c.Check(entries[0].Parent, IsNil)
	_, isRing := entries[0].Key.(*keyutils.Keyring)
	c.Check(isRing, Equals, true)

	c.Assert(entries[1].Parent, NotNil)
	c.Check(entries[1].Parent.ID(), Equals, keyctl.Serial(100))
	c.Check(entries[1].Key.ID(), Equals, keyctl.Serial(200))
	c.Check(entries[1].Raw, Equals, "user;0;0;3f010000;app:id")
	c.Check(entries[1].Err, IsNil)

	// the unresolvable key is reported with its error attached
	c.Check(entries[2].Key.ID(), Equals, keyctl.Serial(300))
	c.Check(entries[2].Err, testutil.ErrorIs, unix.EACCES)
}

func (s *keyringSuite) TestEachRecursiveAborts(c *C) {
	restore := keyutils.MockKeyctlRecursiveScan(func(root keyctl.Serial, fn keyctl.ScanFunc) error {
		if err := fn(0, 100, "keyring;0;0;3f1f0000;root", nil); err != nil {
			return err
		}
		c.Fatal("scan continued after abort")
		return nil
	})
	s.AddCleanup(restore)

	ring := keyutils.NewKeyringFromID(100)
	err := ring.EachRecursive(func(entry keyutils.ScanEntry) error {
		return fmt.Errorf("stop here")
	})
	c.Assert(err, ErrorMatches, "stop here")
}
