package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/spaolacci/murmur3"

	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/storage"
)

// ObjectStore keeps results as objects in local or S3 storage, so that a
// shared bucket can serve as a team-wide result cache.
//
// Objects are named "<prefix>/<shard>/<escaped key>", where shard is the
// first byte of the key's murmur3 hash. This keeps listings small on
// filesystems that dislike large directories.
type ObjectStore struct {
	storage storage.ObjectStorage
	prefix  string
}

// NewObjectStore creates a store rooted at prefix.
func NewObjectStore(st storage.ObjectStorage, prefix string) *ObjectStore {
	return &ObjectStore{storage: st, prefix: strings.Trim(prefix, "/")}
}

func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.storage.Get(ctx, s.objectPath(key))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, bserrors.NewCacheError(bserrors.CodeCacheReadFailed, "object read failed", err)
	}
	return data, true, nil
}

func (s *ObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.storage.Put(ctx, s.objectPath(key), data); err != nil {
		return bserrors.NewCacheError(bserrors.CodeCacheWriteFailed, "object write failed", err)
	}
	return nil
}

func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.storage.Delete(ctx, s.objectPath(key)); err != nil {
		return bserrors.NewCacheError(bserrors.CodeCacheWriteFailed, "object delete failed", err)
	}
	return nil
}

func (s *ObjectStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	objects, err := s.storage.ListObjects(ctx, s.prefix+"/")
	if err != nil {
		return nil, bserrors.NewCacheError(bserrors.CodeCacheReadFailed, "object listing failed", err)
	}

	var keys []string
	for _, obj := range objects {
		key, err := url.PathUnescape(path.Base(obj))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *ObjectStore) Close() error {
	return nil
}

func (s *ObjectStore) objectPath(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.prefix, shard(key), url.PathEscape(key))
}

func shard(key string) string {
	return fmt.Sprintf("%02x", murmur3.Sum32([]byte(key))&0xff)
}
