package dashboard

import "sync"

// Registry finds mounted views for incoming action requests.
type Registry struct {
	mu      sync.RWMutex
	views   map[string]*View
	closing chan struct{}
	once    sync.Once
}

func NewRegistry() *Registry {
	return &Registry{
		views:   make(map[string]*View),
		closing: make(chan struct{}),
	}
}

// Closing is closed once UnmountAll has been called. Streams watch it to
// end before the server shuts down.
func (r *Registry) Closing() <-chan struct{} { return r.closing }

// Add makes v reachable by its id.
func (r *Registry) Add(v *View) {
	r.mu.Lock()
	r.views[v.ID()] = v
	r.mu.Unlock()
}

// Remove forgets the view.
func (r *Registry) Remove(viewID string) {
	r.mu.Lock()
	delete(r.views, viewID)
	r.mu.Unlock()
}

// Lookup returns the view only if ownerID mounted it.
func (r *Registry) Lookup(viewID, ownerID string) (*View, bool) {
	r.mu.RLock()
	v, ok := r.views[viewID]
	r.mu.RUnlock()
	if !ok || ownerID == "" || v.OwnerID() != ownerID {
		return nil, false
	}
	return v, true
}

// Len reports how many views are mounted.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// UnmountAll tears every view down; used on shutdown.
func (r *Registry) UnmountAll() {
	r.once.Do(func() { close(r.closing) })

	r.mu.Lock()
	views := make([]*View, 0, len(r.views))
	for id, v := range r.views {
		views = append(views, v)
		delete(r.views, id)
	}
	r.mu.Unlock()

	for _, v := range views {
		v.Unmount()
	}
}
