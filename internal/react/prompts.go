package react

import (
	"encoding/json"
	"strings"
)

const thinkSystemPrompt = `You are the reasoning step of a tool-using assistant working through a
multi-part request. Given the conversation so far, including any prior
observations, respond with either:

Thought: <your reasoning>
Action: <a natural-language description of the next tool call to make>

or, once every part of the request has been satisfied:

Final Answer: <the complete answer to the user>`

const remainingTasksPrompt = `List the atomic tasks implied by the user's message that have not yet been
completed, based on the observations already in the conversation. Respond
with a JSON array of short task descriptions, or [] if nothing remains.`

const actParsePrompt = `Convert the following natural-language tool action into a JSON object of
the form {"tool_name": "...", "arguments": {...}, "reasoning": "..."}. If no
tool applies, set "tool_name" to "NO_TOOL".`

const finalizeSystemPrompt = `You are the final-answer step of a tool-using assistant that just completed
a multi-part request. Synthesize one coherent answer from the tool results
in the conversation, covering every subject the user asked about. Respond
in markdown, matching the user's language.`

func parseThink(text string) (thought, action, finalAnswer string) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Thought:"):
			thought = strings.TrimSpace(strings.TrimPrefix(trimmed, "Thought:"))
		case strings.HasPrefix(trimmed, "Action:"):
			action = strings.TrimSpace(strings.TrimPrefix(trimmed, "Action:"))
		case strings.HasPrefix(trimmed, "Final Answer:"):
			finalAnswer += strings.TrimSpace(strings.TrimPrefix(trimmed, "Final Answer:"))
		case finalAnswer != "":
			finalAnswer += "\n" + line
		}
	}
	return thought, action, strings.TrimSpace(finalAnswer)
}

func parseRemainingTasks(text string) []string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}
	var tasks []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &tasks); err != nil {
		return nil
	}
	return tasks
}
