package ingest

// Stroke fallback policies for relay titles with an unrecognized stroke
// keyword. The two behaviors coexisted historically; the choice is explicit
// configuration now so a document is never silently reinterpreted.
const (
	// FallbackError records an AmbiguousParseError on the event.
	FallbackError = "error"
	// FallbackFreestyle classifies the unrecognized stroke as freestyle.
	FallbackFreestyle = "freestyle"
)

// Config holds the importer configuration.
type Config struct {
	// SeasonID is the season every imported document is scoped to.
	SeasonID uint `mapstructure:"season_id" default:"0"`
	// RelayStrokeFallback selects what happens when a relay section title
	// contains no recognizable stroke keyword: "error" (default) or
	// "freestyle".
	RelayStrokeFallback string `mapstructure:"relay_stroke_fallback" default:"error"`
}
