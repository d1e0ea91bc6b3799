// Package core defines core types.
package core

// Labels represents key-value metadata attached by parsers and processors.
type Labels map[string]string

// Label naming constants following {protocol}.{field} convention.
const (
	LabelHPSDRSubprotocol = "hpsdr.subprotocol" // short name, e.g. "ddciq"
	LabelHPSDRIndex       = "hpsdr.index"       // stream index, absent for singletons
	LabelHPSDRDirection   = "hpsdr.direction"   // "host->hw" or "hw->host"
	LabelHPSDRSeverity    = "hpsdr.severity"    // highest annotation: none, warn, error
	LabelHPSDRInfo        = "hpsdr.info"        // one-line summary
	LabelHPSDRBoard       = "hpsdr.board"       // board name once discovered
)
