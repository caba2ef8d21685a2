// Package identity keeps the registry of known users the identity detector
// compares faces against.
//
// Each user is described by one YAML file in the reference directory:
//
//	name: alice
//	display_name: Alice Example
//	aliases: [ali]
//	reference_images: [alice-front.jpg, alice-side.jpg]
//
// When name is omitted the file name (without extension) is used.
package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/frame"
	"github.com/robocof/robocof/internal/logging"
)

// User is one known person.
type User struct {
	Name            string   `yaml:"name"`
	DisplayName     string   `yaml:"display_name,omitempty"`
	Aliases         []string `yaml:"aliases,omitempty"`
	ReferenceImages []string `yaml:"reference_images,omitempty"`
}

// reloadDebounce collapses bursts of file events into one reload.
const reloadDebounce = 100 * time.Millisecond

// Registry is the set of known users. It is safe for concurrent use.
type Registry struct {
	dir    string
	logger *logging.Logger
	bus    *event.Bus

	mu    sync.RWMutex
	users map[string]User // lower-case name -> user
	index map[string]string

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRegistry loads the users in dir. An empty dir yields an empty
// registry. bus and logger may be nil.
func NewRegistry(dir string, logger *logging.Logger, bus *event.Bus) (*Registry, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	r := &Registry{
		dir:    dir,
		logger: logger.WithPhase("identity-registry"),
		bus:    bus,
		users:  make(map[string]User),
		index:  make(map[string]string),
	}
	if dir == "" {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the reference directory.
func (r *Registry) Dir() string { return r.dir }

// Reload re-reads the reference directory. On error the previous contents
// are kept.
func (r *Registry) Reload() error {
	users, index, err := load(r.dir)
	if err != nil {
		r.logger.Warn("failed to load identity references", "dir", r.dir, "error", err)
		r.bus.Publish(event.NewRegistryReloadedEvent(r.Len(), err.Error()))
		return err
	}

	r.mu.Lock()
	r.users = users
	r.index = index
	r.mu.Unlock()

	r.logger.Info("identity references loaded", "dir", r.dir, "users", len(users))
	r.bus.Publish(event.NewRegistryReloadedEvent(len(users), ""))
	return nil
}

func load(dir string) (map[string]User, map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read reference directory: %w", err)
	}

	users := make(map[string]User)
	index := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !isUserFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		u, err := readUser(path)
		if err != nil {
			return nil, nil, err
		}

		key := strings.ToLower(u.Name)
		if _, dup := users[key]; dup {
			return nil, nil, fmt.Errorf("duplicate user %q in %s", u.Name, path)
		}
		users[key] = u
		for _, name := range append([]string{u.Name}, u.Aliases...) {
			alias := strings.ToLower(strings.TrimSpace(name))
			if owner, taken := index[alias]; taken && owner != key {
				return nil, nil, fmt.Errorf("alias %q of %q already belongs to %q", name, u.Name, owner)
			}
			index[alias] = key
		}
	}
	return users, index, nil
}

func isUserFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return (ext == ".yaml" || ext == ".yml") && !strings.HasPrefix(name, ".")
}

func readUser(path string) (User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return User{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var u User
	if err := yaml.Unmarshal(data, &u); err != nil {
		return User{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if strings.TrimSpace(u.Name) == "" {
		base := filepath.Base(path)
		u.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	u.Name = strings.TrimSpace(u.Name)
	return u, nil
}

// Len returns the number of known users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Users returns all known users sorted by name.
func (r *Registry) Users() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a user by name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return User{}, false
	}
	return r.users[key], true
}

// Contains reports whether name or alias is known.
func (r *Registry) Contains(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Require returns the user or an error wrapping ErrUnknownUser.
func (r *Registry) Require(name string) (User, error) {
	u, ok := r.Lookup(name)
	if !ok {
		return User{}, fmt.Errorf("%w: %q", errors.ErrUnknownUser, name)
	}
	return u, nil
}

// Add writes a reference file for u and reloads.
func (r *Registry) Add(u User) error {
	if r.dir == "" {
		return fmt.Errorf("no reference directory configured")
	}
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" || strings.ContainsAny(u.Name, `/\`) {
		return fmt.Errorf("invalid user name %q", u.Name)
	}
	if r.Contains(u.Name) {
		return fmt.Errorf("user %q already exists", u.Name)
	}

	data, err := yaml.Marshal(u)
	if err != nil {
		return err
	}
	path := filepath.Join(r.dir, strings.ToLower(u.Name)+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return r.Reload()
}

// Remove deletes the reference file of name and reloads.
func (r *Registry) Remove(name string) error {
	u, err := r.Require(name)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isUserFile(entry.Name()) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		candidate, err := readUser(path)
		if err != nil || !strings.EqualFold(candidate.Name, u.Name) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		return r.Reload()
	}
	return fmt.Errorf("reference file for %q not found", u.Name)
}

// Watch reloads the registry whenever files in the reference directory
// change, until Stop is called.
func (r *Registry) Watch() error {
	if r.dir == "" {
		return fmt.Errorf("no reference directory configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.dir); err != nil {
		_ = watcher.Close()
		return err
	}

	r.watcher = watcher
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.watchLoop(watcher, r.stopCh, r.doneCh)
	return nil
}

// Stop stops watching. It is safe to call without Watch.
func (r *Registry) Stop() {
	r.mu.Lock()
	watcher, stopCh, doneCh := r.watcher, r.stopCh, r.doneCh
	r.watcher = nil
	r.mu.Unlock()

	if watcher == nil {
		return
	}
	close(stopCh)
	_ = watcher.Close()
	<-doneCh
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	// Debounce events; editors often write a file in several steps.
	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	for {
		select {
		case <-stopCh:
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isUserFile(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(reloadDebounce)

		case <-debounce.C:
			_ = r.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("reference directory watch error", "error", err)
		}
	}
}

// Canonicalize maps recognized names or aliases to canonical user names.
// Names that are not in the registry become "" (an unknown face).
func (r *Registry) Canonicalize(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if u, ok := r.Lookup(name); ok {
			out = append(out, u.Name)
		} else {
			out = append(out, "")
		}
	}
	return out
}

// Recognizer wraps rec so that every reported name is canonicalized
// against the registry.
func (r *Registry) Recognizer(rec detector.FaceRecognizer) detector.FaceRecognizer {
	return detector.FaceRecognizerFunc(func(ctx context.Context, f *frame.Frame) ([]string, error) {
		names, err := rec.Recognize(ctx, f)
		if err != nil {
			return nil, err
		}
		return r.Canonicalize(names), nil
	})
}

// Names returns the canonical names of all users, sorted.
func (r *Registry) Names() []string {
	users := r.Users()
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Name
	}
	return names
}
