// Package auxstore holds the auxiliary, out-of-band maps spec §6 lists
// alongside the core Node/Edge sequences: way -> ref string, node ->
// ref/name/exit_to string, two string-offset tables, and the restriction
// multimap keyed by way id. These are populated by the upstream parser
// (outside this module's scope) and only read here, so a key-value store
// keyed by entity id fits better than another fixed-size record sequence.
package auxstore

import (
	"encoding/binary"
	"fmt"

	"github.com/DataDog/zstd"
	"github.com/cockroachdb/pebble"
	"github.com/dgraph-io/badger/v4"
	kbinary "github.com/kelindar/binary"
	"github.com/paulmach/osm"

	"github.com/roadgraph/tilegraph/internal/primitives"
)

// Strings is the badger-backed way/node string store: way -> ref, node ->
// ref/name/exit_to. Values are kelindar/binary-marshaled then zstd-compressed
// before being written, mirroring the teacher's key-value layer.
type Strings struct {
	db *badger.DB
}

func OpenStrings(path string) (*Strings, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("auxstore: open strings db: %w", err)
	}
	return &Strings{db: db}, nil
}

func (s *Strings) Close() error { return s.db.Close() }

func entityKey(prefix byte, id uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = prefix
	binary.LittleEndian.PutUint64(buf[1:], id)
	return buf
}

const (
	wayRefPrefix   byte = 'w'
	nodeAttrPrefix byte = 'n'
)

// NodeAttrs bundles a node's optional ref/name/exit_to tags.
type NodeAttrs struct {
	Ref     string
	Name    string
	ExitTo  string
}

func encodeValue(v any) ([]byte, error) {
	raw, err := kbinary.Marshal(v)
	if err != nil {
		return nil, err
	}
	compressed, err := zstd.Compress(nil, raw)
	if err != nil {
		return nil, err
	}
	return compressed, nil
}

func decodeValue(compressed []byte, out any) error {
	raw, err := zstd.Decompress(nil, compressed)
	if err != nil {
		return err
	}
	return kbinary.Unmarshal(raw, out)
}

func (s *Strings) PutWayRef(wayID osm.WayID, ref string) error {
	val, err := encodeValue(ref)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entityKey(wayRefPrefix, uint64(wayID)), val)
	})
}

func (s *Strings) WayRef(wayID osm.WayID) (string, error) {
	var ref string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(wayRefPrefix, uint64(wayID)))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(v []byte) error { return decodeValue(v, &ref) })
	})
	return ref, err
}

func (s *Strings) PutNodeAttrs(nodeID osm.NodeID, attrs NodeAttrs) error {
	val, err := encodeValue(attrs)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entityKey(nodeAttrPrefix, uint64(nodeID)), val)
	})
}

func (s *Strings) NodeAttrs(nodeID osm.NodeID) (NodeAttrs, error) {
	var attrs NodeAttrs
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(nodeAttrPrefix, uint64(nodeID)))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(v []byte) error { return decodeValue(v, &attrs) })
	})
	return attrs, err
}

// OffsetTable is one of the "two string-offset tables" spec §6 calls out:
// a badger-backed int32-offset -> string lookup, used by Way's
// NameOffset/DestinationRefOffset/BranchRefOffset/TowardRefOffset/
// JunctionRefOffset fields. Names and refs get their own table instance.
type OffsetTable struct {
	db *badger.DB
}

func OpenOffsetTable(path string) (*OffsetTable, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("auxstore: open offset table: %w", err)
	}
	return &OffsetTable{db: db}, nil
}

func (t *OffsetTable) Close() error { return t.db.Close() }

func offsetKey(offset int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(offset))
	return buf
}

func (t *OffsetTable) Put(offset int32, s string) error {
	val, err := encodeValue(s)
	if err != nil {
		return err
	}
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(offsetKey(offset), val)
	})
}

// Get returns "" for primitives.NoIndex-style absent offsets (-1) without
// touching the database, matching Way's offset-field convention.
func (t *OffsetTable) Get(offset int32) (string, error) {
	if offset < 0 {
		return "", nil
	}
	var s string
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(offsetKey(offset))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(v []byte) error { return decodeValue(v, &s) })
	})
	return s, err
}

// Restrictions is the pebble-backed restriction multimap keyed by the "from"
// way id (spec §6: "a multimap of restrictions keyed by way id").
type Restrictions struct {
	db *pebble.DB
}

func OpenRestrictions(path string) (*Restrictions, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("auxstore: open restrictions db: %w", err)
	}
	return &Restrictions{db: db}, nil
}

func (r *Restrictions) Close() error { return r.db.Close() }

func restrictionKey(wayID osm.WayID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(wayID))
	return buf
}

// Put stores (replacing) all restrictions whose "from" way is wayID.
func (r *Restrictions) Put(wayID osm.WayID, restrictions []primitives.RawRestriction) error {
	val, err := encodeValue(restrictions)
	if err != nil {
		return err
	}
	return r.db.Set(restrictionKey(wayID), val, pebble.Sync)
}

// Get returns every restriction whose "from" way is wayID, or nil if there
// are none.
func (r *Restrictions) Get(wayID osm.WayID) ([]primitives.RawRestriction, error) {
	val, closer, err := r.db.Get(restrictionKey(wayID))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()
	var out []primitives.RawRestriction
	if err := decodeValue(val, &out); err != nil {
		return nil, err
	}
	return out, nil
}
