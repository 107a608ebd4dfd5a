package orchestrator

import (
	"fmt"
	"strings"

	"github.com/curator-ai/curator/pkg/assistants"
)

const unknownDocumentLabel = "Unknown document"

// renderResponse concatenates the message's text segments and rewrites
// citation annotations: each annotated substring becomes a 1-based bracketed
// marker, and a References section lists the cited filenames in annotation
// discovery order. An annotation whose file id matches no known document is
// labeled rather than failing the response.
func (o *Orchestrator) renderResponse(message assistants.Message) string {
	var text strings.Builder
	var citations []string
	marker := 0

	var replacements [][2]string

	for _, content := range message.Content {
		if content.Type != "text" || content.Text == nil {
			continue
		}
		text.WriteString(content.Text.Value)

		for _, annotation := range content.Text.Annotations {
			marker++
			replacements = append(replacements, [2]string{annotation.Text, fmt.Sprintf("[%d]", marker)})

			if annotation.FileCitation == nil {
				continue
			}
			citations = append(citations,
				fmt.Sprintf("[%d] %s", marker, o.lookupFilename(annotation.FileCitation.FileID)))
		}
	}

	response := text.String()
	for _, replacement := range replacements {
		response = strings.ReplaceAll(response, replacement[0], replacement[1])
	}

	if len(citations) > 0 {
		response += "\n\nReferences:\n" + strings.Join(citations, "\n")
	}

	return response
}

func (o *Orchestrator) lookupFilename(fileID string) string {
	for _, record := range o.docs.List() {
		if record.FileID == fileID {
			return record.Filename
		}
	}
	return unknownDocumentLabel
}
