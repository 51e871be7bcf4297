package catalog

import (
	"encoding/binary"
	"runtime"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"

	"github.com/ucoord-systems/go-ucoord/ucoord"
)

/***

Catalog database format:

	gCatalogStateKey => CatalogState (LSM varints)

	kEntryKeyPrefix, byteLen (uint16 BE), magnitude (big-endian bytes) => FactorSet LSM

Magnitude bytes carry no leading zeros, so with the length prefix entries
sort numerically under badger's byte ordering and a prefix scan enumerates
them in ascending order.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
)

const kEntryKeyPrefix = byte(0x10)

const (
	kMajorVers = 2026
	kMinorVers = 1
)

// CatalogState is the persisted header record of a catalog db.
type CatalogState struct {
	MajorVers  uint32
	MinorVers  uint32
	NumEntries uint64
}

func (state *CatalogState) Marshal() []byte {
	var buf [3 * binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(state.MajorVers))
	n += binary.PutUvarint(buf[n:], uint64(state.MinorVers))
	n += binary.PutUvarint(buf[n:], state.NumEntries)
	return append([]byte{}, buf[:n]...)
}

func (state *CatalogState) Unmarshal(in []byte) error {
	major, n1 := binary.Uvarint(in)
	if n1 <= 0 {
		return ucoord.ErrUnmarshal
	}
	minor, n2 := binary.Uvarint(in[n1:])
	if n2 <= 0 {
		return ucoord.ErrUnmarshal
	}
	count, n3 := binary.Uvarint(in[n1+n2:])
	if n3 <= 0 {
		return ucoord.ErrUnmarshal
	}
	state.MajorVers = uint32(major)
	state.MinorVers = uint32(minor)
	state.NumEntries = count
	return nil
}

// catalog is a db wrapper for a persistent factorization catalog
type catalog struct {
	ctx        ucoord.CatalogContext
	readOnly   bool
	stateDirty bool
	state      CatalogState
	db         *badger.DB
}

func OpenCatalog(ctx ucoord.CatalogContext, opts ucoord.CatalogOpts) (ucoord.Catalog, error) {
	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // not needed so disable for performance
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(ucoord.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	// Once the db is open, the catalog ctx is blocked until the catalog closes
	ctx.AttachCatalog(cat)

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = true
		cat.state.MajorVers = kMajorVers
		cat.state.MinorVers = kMinorVers
	}

	if err == nil && (cat.state.MajorVers != kMajorVers || cat.state.MinorVers != kMinorVers) {
		err = errors.New("catalog version is incompatible")
	}

	if err != nil {
		cat.Close()
		return nil, err
	}

	return cat, nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err == nil {
			err = item.Value(func(val []byte) error {
				return cat.state.Unmarshal(val)
			})
		}
		return err
	})
}

func (cat *catalog) flushState() {
	if cat.stateDirty && !cat.readOnly {
		err := cat.db.Update(func(txn *badger.Txn) error {
			return txn.Set(gCatalogStateKey, cat.state.Marshal())
		})
		if err != nil {
			panic(err)
		}
		cat.stateDirty = false
	}
}

func (cat *catalog) Close() error {
	cat.flushState()
	if cat.db != nil {
		cat.db.Close()
		cat.db = nil
		cat.ctx.DetachCatalog(cat)
		cat.ctx = nil
	}
	return nil
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumEntries() int64 {
	return int64(cat.state.NumEntries)
}

func (cat *catalog) entryKey(key []byte) []byte {
	ek := make([]byte, 3, 3+len(key))
	ek[0] = kEntryKeyPrefix
	binary.BigEndian.PutUint16(ek[1:3], uint16(len(key)))
	return append(ek, key...)
}

func (cat *catalog) Put(key, val []byte) error {
	if cat.readOnly {
		return errors.Wrap(ucoord.ErrBadCatalogParam, "catalog is read-only")
	}

	ek := cat.entryKey(key)
	exists := false

	err := cat.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(ek); err == nil {
			exists = true
		}
		return txn.Set(ek, val)
	})
	if err != nil {
		return err
	}

	if !exists {
		cat.state.NumEntries++
		cat.stateDirty = true
	}
	return nil
}

func (cat *catalog) Get(key []byte, onVal func(val []byte) error) error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cat.entryKey(key))
		if err == badger.ErrKeyNotFound {
			return errors.Wrap(ucoord.ErrUnfactored, "no catalog entry")
		}
		if err != nil {
			return err
		}
		return item.Value(onVal)
	})
}

// Scan enumerates every entry in ascending magnitude order.  Both key and
// val are only valid for the duration of the callback.
func (cat *catalog) Scan(onEntry func(key, val []byte) error) error {
	prefix := [1]byte{kEntryKeyPrefix}

	return cat.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   300,
			Prefix:         prefix[:],
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()[3:]
			err := item.Value(func(val []byte) error {
				return onEntry(key, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
