package subconscious

import contractx "github.com/cememirsenyurt/subconscious/agent/contract"

// Platform tools built into the engine, referenced by id.
const (
	ToolWebSearch            = "web_search"
	ToolParallelSearch       = "parallel_search"
	ToolWebpageUnderstanding = "webpage_understanding"
	ToolExaSearch            = "exa_search"
)

// ResearchTools is the tool set for turns that need live real-world data.
func ResearchTools() []contractx.EngineTool {
	return []contractx.EngineTool{
		{Type: "platform", ID: ToolWebSearch},
		{Type: "platform", ID: ToolParallelSearch},
	}
}
