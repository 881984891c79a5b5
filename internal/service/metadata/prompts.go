package metadata

import (
	"fmt"
	"strings"

	"toolshed/internal/llm"
)

// Prompt names, also used as metric labels
const (
	promptKnowledge    = "knowledge"
	promptPage         = "page"
	promptFetchFailure = "fetch_failure"
)

const systemPrompt = `You are an expert at describing AI tools for a community directory.
You return a concise title (the tool's name), a clear one or two sentence description of what the tool does,
and up to 3 short lowercase slug categories such as "image-generation", "developer-tools", "copywriting",
"diagramming" or "whiteboard".
For imageUrl return an absolute http(s) URL of a logo or representative image, or null if you do not know one.
Never guess an image URL and never use the title or the domain name as an image.`

// metadataSchema is the output contract for every metadata prompt
var metadataSchema = llm.Schema{
	"type": "object",
	"properties": map[string]any{
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"categories": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"imageUrl": map[string]any{"type": []string{"string", "null"}},
	},
	"required": []string{"title", "description", "categories"},
}

// generatedMetadata mirrors metadataSchema
type generatedMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	ImageURL    *string  `json:"imageUrl"`
}

func knowledgeRequest(pageURL, justification string) llm.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Describe the AI tool at %s using only what you already know about it.\n", pageURL)
	sb.WriteString("Do not invent details. If you do not recognise the tool, return an empty title and description.\n")
	writeJustification(&sb, justification)

	return llm.Request{Name: "record_tool_metadata", System: systemPrompt, Prompt: sb.String(), Schema: metadataSchema}
}

func fetchFailureRequest(pageURL, justification, reason string) llm.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The website at %s could not be retrieved: %s\n", pageURL, reason)
	sb.WriteString("Produce best-effort metadata from your existing knowledge of the tool and the user's justification.\n")
	sb.WriteString("The title and description must not be empty.\n")
	writeJustification(&sb, justification)

	return llm.Request{Name: "record_tool_metadata", System: systemPrompt, Prompt: sb.String(), Schema: metadataSchema}
}

func pageRequest(pageURL, justification, evidence string) llm.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Describe the AI tool at %s using the evidence extracted from its homepage.\n", pageURL)
	sb.WriteString("Prefer the literal title, description and image URL below over anything you infer.\n")
	sb.WriteString("A relative image path must be made absolute against the page URL. If no image was found, return null for imageUrl.\n")
	sb.WriteString("If the evidence is sparse, use your existing knowledge of the tool and the user's justification.\n")
	writeJustification(&sb, justification)
	sb.WriteString("\nEvidence:\n")
	sb.WriteString(evidence)

	return llm.Request{Name: "record_tool_metadata", System: systemPrompt, Prompt: sb.String(), Schema: metadataSchema}
}

func writeJustification(sb *strings.Builder, justification string) {
	if strings.TrimSpace(justification) == "" {
		return
	}
	fmt.Fprintf(sb, "User's justification: %q\n", justification)
}
