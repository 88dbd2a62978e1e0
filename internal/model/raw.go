package model

// RawEvent is one decoded source line before normalization: chain-specific
// field names, values kept as json.Number/string. Consumed once by the
// normalizer and discarded.
type RawEvent = map[string]any
