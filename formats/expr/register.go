package expr

import "bild-story/formats"

// init registra automaticamente il dialetto di default
// Questo viene chiamato quando il package viene importato
func init() {
	formats.RegisterDialect(formats.DefaultDialect, func(report formats.Reporter) formats.Dialect {
		return New(WithReporter(report))
	})
}
