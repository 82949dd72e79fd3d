package openai

import "strings"

// TokenParam names the request field a model family expects its completion
// budget under.
type TokenParam string

const (
	TokenParamMaxTokens           TokenParam = "max_tokens"
	TokenParamMaxCompletionTokens TokenParam = "max_completion_tokens"
)

// TemperatureRule constrains how sampling temperature may be sent.
type TemperatureRule int

const (
	// TemperatureAny sends the configured temperature as-is.
	TemperatureAny TemperatureRule = iota
	// TemperatureDefaultOnly sends temperature only when it equals 1;
	// any other value must be omitted or the call errors.
	TemperatureDefaultOnly
)

// Capabilities describes how a model family is called.
type Capabilities struct {
	TokenParam       TokenParam
	Temperature      TemperatureRule
	StructuredOutput bool
}

// familyEntry binds a model-name prefix to its capabilities. Ordered by
// prefix length at lookup so the most specific family wins.
type familyEntry struct {
	Prefix string
	Caps   Capabilities
}

var modelFamilies = []familyEntry{
	{Prefix: "gpt-5", Caps: Capabilities{
		TokenParam:       TokenParamMaxCompletionTokens,
		Temperature:      TemperatureDefaultOnly,
		StructuredOutput: true,
	}},
	{Prefix: "gpt-4o", Caps: Capabilities{
		TokenParam:       TokenParamMaxCompletionTokens,
		Temperature:      TemperatureAny,
		StructuredOutput: true,
	}},
	{Prefix: "gpt-4.1", Caps: Capabilities{
		TokenParam:       TokenParamMaxCompletionTokens,
		Temperature:      TemperatureAny,
		StructuredOutput: true,
	}},
}

var legacyCaps = Capabilities{
	TokenParam:  TokenParamMaxTokens,
	Temperature: TemperatureAny,
}

// CapabilitiesFor resolves a model name to its family capabilities by
// longest-prefix match. Unknown models get the legacy profile.
func CapabilitiesFor(model string) Capabilities {
	model = strings.ToLower(strings.TrimSpace(model))
	best := legacyCaps
	bestLen := 0
	for _, entry := range modelFamilies {
		if strings.HasPrefix(model, entry.Prefix) && len(entry.Prefix) > bestLen {
			best = entry.Caps
			bestLen = len(entry.Prefix)
		}
	}
	return best
}

// RegisterFamily adds or overrides a model family. New families plug in
// without touching call sites.
func RegisterFamily(prefix string, caps Capabilities) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	for i, entry := range modelFamilies {
		if entry.Prefix == prefix {
			modelFamilies[i].Caps = caps
			return
		}
	}
	modelFamilies = append(modelFamilies, familyEntry{Prefix: prefix, Caps: caps})
}
