package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/extractor.txt
	extractorRaw string

	//go:embed template/response_instructions.txt
	responseInstructionsRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier           string
	Extractor            string
	ResponseInstructions string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time, trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier:           strings.TrimSpace(classifierRaw),
		Extractor:            strings.TrimSpace(extractorRaw),
		ResponseInstructions: strings.TrimSpace(responseInstructionsRaw),
	}
}
