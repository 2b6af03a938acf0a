package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/models"

	bolt "go.etcd.io/bbolt"
)

const pagesBucket = "pages"

// pageSnapshot is the stored record for one wiki path.
type pageSnapshot struct {
	Hash     string `json:"hash"`
	SeenAt   string `json:"seen_at"`
	Revision int    `json:"revision"`
}

type snapshotCache struct {
	db *bolt.DB
}

// NewSnapshotCache opens the bbolt file that remembers each page's
// content hash between runs. Losing this file is harmless: every page
// simply reports as created on the next run.
func NewSnapshotCache(config *common.StorageConfig) (interfaces.SnapshotCache, error) {
	dbDir := filepath.Dir(config.SnapshotPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	db, err := bolt.Open(config.SnapshotPath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(pagesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot bucket: %w", err)
	}

	return &snapshotCache{db: db}, nil
}

func (c *snapshotCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Touch stores the page's current content hash and reports whether the
// page is new, changed or identical compared with the previous run.
func (c *snapshotCache) Touch(path, content string) (models.ChangeKind, error) {
	hash := contentHash(content)
	change := models.ChangeCreated

	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(pagesBucket))
		key := []byte(path)

		var snapshot pageSnapshot
		if existing := bucket.Get(key); existing != nil {
			if err := json.Unmarshal(existing, &snapshot); err == nil {
				if snapshot.Hash == hash {
					change = models.ChangeUnchanged
				} else {
					change = models.ChangeUpdated
				}
			}
		}

		snapshot.Hash = hash
		snapshot.SeenAt = time.Now().UTC().Format(time.RFC3339)
		snapshot.Revision++

		data, err := json.Marshal(&snapshot)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		return change, fmt.Errorf("failed to record snapshot for %s: %w", path, err)
	}

	return change, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}
