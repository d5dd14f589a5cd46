// Package prompts holds the system persona and preset instructions used
// when answering questions about RFC documents.
package prompts

import (
	"fmt"
	"sort"
	"strings"
)

const systemPrompt = `You are an agent that mines requirements and constraints from RFC documents.
Answer strictly from the provided document excerpts. Cite the excerpt numbers you rely on.
If the excerpts do not contain the answer, say so instead of guessing.`

// presets are predefined instructions selectable by key.
var presets = map[string]string{
	"summary":  "Summarize the main content of the relevant RFC sections.",
	"explain":  "Explain the technical terms and concepts used in the relevant RFC sections.",
	"compare":  "Compare the relevant RFC sections with earlier versions of the protocol, highlighting the differences.",
	"security": "Analyze the security considerations raised by the relevant RFC sections.",
	"example":  "Give concrete usage examples of the protocol or mechanism the relevant RFC sections describe.",
}

// System composes the system prompt, appending the custom suffix when given.
func System(custom string) string {
	if custom == "" {
		return systemPrompt
	}
	return systemPrompt + "\n" + custom
}

// Preset returns the instruction registered under key.
func Preset(key string) (string, error) {
	preset, ok := presets[key]
	if !ok {
		return "", fmt.Errorf("unknown prompt preset: %s (known: %s)", key, strings.Join(PresetKeys(), ", "))
	}
	return preset, nil
}

// PresetKeys lists the available preset keys in stable order.
func PresetKeys() []string {
	keys := make([]string, 0, len(presets))
	for key := range presets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
