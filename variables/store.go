package variables

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// SummarySeparator separa le coppie nel riepilogo variabili
const SummarySeparator = " · "

// SummaryEmpty è il segnaposto mostrato quando non ci sono variabili
const SummaryEmpty = "none"

// Declaration è una variabile dichiarata nel grafo con il suo valore iniziale
type Declaration struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Store è la mappa nome -> valore di una sessione di traversal.
// Mantiene l'ordine di dichiarazione; i nomi nuovi vengono accodati.
type Store struct {
	names  []string
	values map[string]Value
}

// NewStore crea uno store vuoto
func NewStore() *Store {
	return &Store{values: make(map[string]Value)}
}

// FromDefaults crea uno store nuovo copiando i valori dichiarati.
// I nomi vuoti vengono ignorati; un nome ripetuto sovrascrive il valore
// mantenendo la posizione della prima dichiarazione.
func FromDefaults(decls []Declaration) *Store {
	s := NewStore()
	for _, d := range decls {
		if d.Name == "" {
			continue
		}
		s.Set(d.Name, d.Value)
	}
	return s
}

// Get restituisce il valore di una variabile
func (s *Store) Get(name string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Set imposta il valore di una variabile
func (s *Store) Set(name string, v Value) {
	if s.values == nil {
		s.values = make(map[string]Value)
	}
	if _, exists := s.values[name]; !exists {
		s.names = append(s.names, name)
	}
	s.values[name] = v
}

// Len restituisce il numero di variabili
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names restituisce i nomi in ordine di dichiarazione
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Entries restituisce le coppie nome/valore in ordine
func (s *Store) Entries() []Declaration {
	if s == nil {
		return nil
	}
	out := make([]Declaration, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, Declaration{Name: name, Value: s.values[name]})
	}
	return out
}

// Snapshot restituisce una copia della mappa corrente
func (s *Store) Snapshot() map[string]Value {
	out := make(map[string]Value, s.Len())
	if s == nil {
		return out
	}
	for name, v := range s.values {
		out[name] = v
	}
	return out
}

// Clone crea una copia indipendente
func (s *Store) Clone() *Store {
	out := NewStore()
	if s == nil {
		return out
	}
	out.names = append(out.names, s.names...)
	for name, v := range s.values {
		out.values[name] = v
	}
	return out
}

// Summary formatta "nome: valore" in ordine, separati da " · ".
// Uno store vuoto diventa "none".
func (s *Store) Summary() string {
	if s.Len() == 0 {
		return SummaryEmpty
	}
	parts := make([]string, 0, len(s.names))
	for _, name := range s.names {
		parts = append(parts, name+": "+s.values[name].String())
	}
	return strings.Join(parts, SummarySeparator)
}

// MarshalJSON serializza lo store come oggetto JSON ordinato
func (s *Store) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range s.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Name)
		if err != nil {
			return nil, err
		}
		val, err := entry.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
