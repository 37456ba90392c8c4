package assembly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/golang/snappy"

	bserrors "github.com/brainscore/brainscore/internal/errors"
	"github.com/brainscore/brainscore/internal/storage"
)

// Source loads assemblies by dataset name and brain region.
type Source interface {
	Load(ctx context.Context, name, region string) (*Assembly, error)
}

// Ref names one assembly.
type Ref struct {
	Name   string
	Region string
}

// ObjectPath returns where an assembly lives under prefix.
func ObjectPath(prefix, name, region string) string {
	return path.Join(prefix, name, region+".json.sz")
}

// Encode serializes an assembly as snappy-compressed JSON.
func Encode(a *Assembly) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode assembly: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// Decode parses and validates an encoded assembly.
func Decode(data []byte) (*Assembly, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, bserrors.NewDataError(bserrors.CodeInvalidAssembly, "assembly is not snappy-compressed", err)
	}
	var a Assembly
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, bserrors.NewDataError(bserrors.CodeInvalidAssembly, "assembly is not valid JSON", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Publish validates a and writes it to object storage.
func Publish(ctx context.Context, st storage.ObjectStorage, prefix string, a *Assembly) error {
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := Encode(a)
	if err != nil {
		return err
	}
	if err := st.Put(ctx, ObjectPath(prefix, a.Name, a.Region), data); err != nil {
		return bserrors.NewStorageError(bserrors.CodeUploadFailed,
			fmt.Sprintf("failed to publish assembly %s/%s", a.Name, a.Region), err)
	}
	return nil
}

// StorageSource reads assemblies from object storage and keeps decoded
// assemblies in memory for the life of the source.
type StorageSource struct {
	storage storage.ObjectStorage
	prefix  string

	mu     sync.Mutex
	loaded map[Ref]*Assembly
}

// NewStorageSource creates a source reading from prefix.
func NewStorageSource(st storage.ObjectStorage, prefix string) *StorageSource {
	return &StorageSource{
		storage: st,
		prefix:  prefix,
		loaded:  make(map[Ref]*Assembly),
	}
}

// Load returns the assembly for name and region.
func (s *StorageSource) Load(ctx context.Context, name, region string) (*Assembly, error) {
	ref := Ref{Name: name, Region: region}
	s.mu.Lock()
	a, ok := s.loaded[ref]
	s.mu.Unlock()
	if ok {
		return a, nil
	}

	data, err := s.storage.Get(ctx, ObjectPath(s.prefix, name, region))
	if err != nil {
		return nil, s.loadError(ref, err)
	}
	a, err = Decode(data)
	if err != nil {
		return nil, err
	}
	s.remember(ref, a)
	return a, nil
}

// Prefetch downloads several assemblies in parallel and returns how many
// were loaded. The first failure is returned after all reads finish.
func (s *StorageSource) Prefetch(ctx context.Context, refs []Ref, concurrency int) (int, error) {
	paths := make([]string, len(refs))
	byPath := make(map[string]Ref, len(refs))
	for i, ref := range refs {
		paths[i] = ObjectPath(s.prefix, ref.Name, ref.Region)
		byPath[paths[i]] = ref
	}

	result, err := storage.NewBatchGetter(s.storage, concurrency).GetAll(ctx, paths)
	if err != nil {
		return 0, err
	}

	var firstErr error
	loaded := 0
	for _, p := range paths {
		ref := byPath[p]
		if getErr, failed := result.Errors[p]; failed {
			if firstErr == nil {
				firstErr = s.loadError(ref, getErr)
			}
			continue
		}
		a, err := Decode(result.Objects[p])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.remember(ref, a)
		loaded++
	}
	return loaded, firstErr
}

func (s *StorageSource) remember(ref Ref, a *Assembly) {
	s.mu.Lock()
	s.loaded[ref] = a
	s.mu.Unlock()
}

func (s *StorageSource) loadError(ref Ref, err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return bserrors.NewDataError(bserrors.CodeAssemblyNotFound,
			fmt.Sprintf("assembly %s/%s not found", ref.Name, ref.Region), err).
			WithDetails(map[string]interface{}{"name": ref.Name, "region": ref.Region})
	}
	return bserrors.NewStorageError(bserrors.CodeDownloadFailed,
		fmt.Sprintf("failed to load assembly %s/%s", ref.Name, ref.Region), err)
}

// MemorySource serves assemblies held in memory.
type MemorySource struct {
	mu         sync.RWMutex
	assemblies map[Ref]*Assembly
}

// NewMemorySource creates a source holding the given assemblies.
func NewMemorySource(assemblies ...*Assembly) *MemorySource {
	m := &MemorySource{assemblies: make(map[Ref]*Assembly)}
	for _, a := range assemblies {
		m.Add(a)
	}
	return m
}

// Add registers or replaces an assembly.
func (m *MemorySource) Add(a *Assembly) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assemblies[Ref{Name: a.Name, Region: a.Region}] = a
}

func (m *MemorySource) Load(ctx context.Context, name, region string) (*Assembly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assemblies[Ref{Name: name, Region: region}]
	if !ok {
		return nil, bserrors.NewDataError(bserrors.CodeAssemblyNotFound,
			fmt.Sprintf("assembly %s/%s not found", name, region), nil)
	}
	return a, nil
}
