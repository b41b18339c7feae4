package neighbors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/talonbgp/talon/pkg/peers"
	bolt "go.etcd.io/bbolt"
)

// ErrNeighborDoesNotExist is returned when a neighbor does not exist yet
var ErrNeighborDoesNotExist = errors.New("neighbor does not exist")

// Neighbor is the persisted form of a configured BGP neighbor
type Neighbor struct {
	Address     string `json:"address"`
	ASN         uint32 `json:"asn"`
	Description string `json:"description"`
	Passive     bool   `json:"passive"`
	AcceptTTL   int    `json:"acceptTTL"`
}

// Peer converts the record into the runtime peer the index works with
func (n Neighbor) Peer() (*peers.Peer, error) {
	addr, err := netip.ParseAddr(n.Address)
	if err != nil {
		return nil, fmt.Errorf("neighbor %q: %w", n.Address, err)
	}
	return &peers.Peer{
		Address:     addr.Unmap(),
		ASN:         n.ASN,
		Description: n.Description,
		Passive:     n.Passive,
		AcceptTTL:   n.AcceptTTL,
	}, nil
}

// Storage is an interface for storing and retrieving neighbors.
// Implementations key records by the canonical address form, so a record
// stored under a 4-in-6 mapped spelling is found and deleted by its plain
// IPv4 spelling as well.
type Storage interface {
	Store(Neighbor) error
	GetByAddress(string) (Neighbor, error)
	List() ([]Neighbor, error)
	DeleteByAddress(string) error
}

// storageKey canonicalizes an address the same way the peer index does,
// strings that do not parse are kept verbatim
func storageKey(address string) string {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return address
	}
	return addr.Unmap().String()
}

type inMemoryStorage struct {
	neighbors sync.Map
}

func (s *inMemoryStorage) Store(neighbor Neighbor) error {
	neighbor.Address = storageKey(neighbor.Address)
	s.neighbors.Store(neighbor.Address, neighbor)
	return nil
}

func (s *inMemoryStorage) GetByAddress(address string) (Neighbor, error) {
	if neighbor, ok := s.neighbors.Load(storageKey(address)); ok {
		return neighbor.(Neighbor), nil
	}
	return Neighbor{}, ErrNeighborDoesNotExist
}

func (s *inMemoryStorage) List() ([]Neighbor, error) {
	var neighbors []Neighbor
	s.neighbors.Range(func(_, value any) bool {
		neighbors = append(neighbors, value.(Neighbor))
		return true
	})
	return neighbors, nil
}

func (s *inMemoryStorage) DeleteByAddress(address string) error {
	s.neighbors.Delete(storageKey(address))
	return nil
}

// NewInMemoryStorage creates a new in-memory Storage instance
func NewInMemoryStorage() Storage {
	return &inMemoryStorage{}
}

type boltStorage struct {
	db *bolt.DB
}

func (s *boltStorage) Store(neighbor Neighbor) error {
	neighbor.Address = storageKey(neighbor.Address)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("neighbors"))
		encoded, encodeErr := json.Marshal(neighbor)
		if encodeErr != nil {
			return encodeErr
		}
		return b.Put([]byte(neighbor.Address), encoded)
	})
}

func (s *boltStorage) GetByAddress(address string) (Neighbor, error) {
	var neighbor Neighbor
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("neighbors"))
		payload := b.Get([]byte(storageKey(address)))
		if payload == nil {
			return ErrNeighborDoesNotExist
		}
		var n Neighbor
		if err := json.Unmarshal(payload, &n); err != nil {
			return err
		}
		neighbor = n
		return nil
	})
	return neighbor, err
}

func (s *boltStorage) List() ([]Neighbor, error) {
	var neighbors []Neighbor
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("neighbors"))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var n Neighbor
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			neighbors = append(neighbors, n)
		}
		return nil
	})
	return neighbors, err
}

func (s *boltStorage) DeleteByAddress(address string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("neighbors"))
		return b.Delete([]byte(storageKey(address)))
	})
}

// NewBoltStorage creates a new BoltDB (persistent, on-disk storage) Storage instance
func NewBoltStorage(path string) Storage {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		logrus.Panicf("failed to open bolt db: %v", err)
	}
	if updateErr := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte("neighbors"))
		return err
	}); updateErr != nil {
		logrus.Panicf("failed to create BoltDB bucket: %v", updateErr)
	}
	return &boltStorage{db: db}
}
