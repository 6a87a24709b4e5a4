package session

import "sync"

// Registry mantiene en memoria el token activo de cada nickname.
// Las claves son siempre nicknames sin prefijo de invitado.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		tokens: make(map[string]string),
	}
}

func (r *Registry) Put(nickname, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[nickname] = token
}

// PutIfAbsent registra el token solo si el nickname no tiene sesion.
func (r *Registry) PutIfAbsent(nickname, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[nickname]; ok {
		return false
	}
	r.tokens[nickname] = token
	return true
}

func (r *Registry) Remove(nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, nickname)
}

func (r *Registry) Contains(nickname string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tokens[nickname]
	return ok
}

func (r *Registry) Get(nickname string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[nickname]
	return token, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
