package formats

import (
	"sort"
	"strings"
	"sync"
)

// DefaultDialect è il dialetto usato quando non ne viene indicato uno
const DefaultDialect = "bild"

// dialectRegistry mantiene i dialetti registrati
var (
	registry     = make(map[string]Factory)
	registryLock sync.RWMutex
)

// RegisterDialect registra un nuovo dialetto
// Chiamato dai package dei singoli dialetti nel loro init()
func RegisterDialect(name string, factory Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[strings.ToLower(name)] = factory
}

// GetDialect restituisce il dialetto registrato con quel nome, oppure nil
func GetDialect(name string, report Reporter) Dialect {
	if name == "" {
		name = DefaultDialect
	}

	registryLock.RLock()
	factory, exists := registry[strings.ToLower(name)]
	registryLock.RUnlock()

	if !exists {
		return nil
	}
	return factory(report)
}

// AvailableDialects restituisce i nomi registrati in ordine alfabetico
func AvailableDialects() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsDialectRegistered verifica se un dialetto è registrato
func IsDialectRegistered(name string) bool {
	registryLock.RLock()
	defer registryLock.RUnlock()

	_, exists := registry[strings.ToLower(name)]
	return exists
}
