package challenge

import (
	"sort"
	"sync"
)

var (
	registry map[string]string = map[string]string{}
	regLock  sync.RWMutex
)

func init() {
	Register("digits", Digits)
	Register("letters", Letters)
	Register("alphanumeric", Alphanumeric)
}

// Register makes an alphabet available under name.
func Register(name, alphabet string) {
	regLock.Lock()
	defer regLock.Unlock()

	registry[name] = alphabet
}

func Get(name string) (string, bool) {
	regLock.RLock()
	defer regLock.RUnlock()
	result, ok := registry[name]
	return result, ok
}

// Alphabets lists the names of all registered alphabets.
func Alphabets() []string {
	regLock.RLock()
	defer regLock.RUnlock()
	var result []string
	for name := range registry {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// ResolveAlphabet returns the registered alphabet called s, or s itself when
// no alphabet has that name. The built-in names all repeat a letter, so none
// of them is a usable literal alphabet.
func ResolveAlphabet(s string) string {
	if result, ok := Get(s); ok {
		return result
	}

	return s
}
