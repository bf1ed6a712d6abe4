package lookup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("classify")

const defaultOpenTimeout = time.Second

// Cache is a bbolt-backed Store keyed by ISBN text.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create cache directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: defaultOpenTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "open cache %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create cache bucket")
	}
	return &Cache{db: db}, nil
}

// Get returns the cached body for key.
func (c *Cache) Get(key string) (string, bool, error) {
	var (
		val   string
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get([]byte(key)); v != nil {
			val, found = string(v), true
		}
		return nil
	})
	return val, found, err
}

// Put stores value under key.
func (c *Cache) Put(key, value string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
}

// Len reports the number of cached responses.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the database file.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
