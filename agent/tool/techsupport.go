package tool

import (
	"context"
	"strings"

	contractx "github.com/kritsada/careline/agent/contract"
	"github.com/kritsada/careline/pkg/memoryapi"
)

const ToolGetTechnicalSupport = "get_technical_support"

const (
	kbTopK         = 3
	kbScoreCutoff  = 0.4
	kbNoResultText = "No relevant technical documentation found for the described issue. " +
		"Please contact our technical support team directly."
)

// KnowledgeBase is the retrieval capability backing the tech-support tool.
type KnowledgeBase interface {
	Retrieve(ctx context.Context, namespace, query string, topK int) ([]memoryapi.Record, error)
}

// TechSupport searches the troubleshooting knowledge base. Retrieval happens
// against a gated namespace; the caller's bearer credential, when present on
// the context, overrides the client's own token.
type TechSupport struct {
	kb        KnowledgeBase
	namespace string
}

func NewTechSupport(kb KnowledgeBase, namespace string) *TechSupport {
	if strings.TrimSpace(namespace) == "" {
		namespace = "support/kb"
	}
	return &TechSupport{kb: kb, namespace: namespace}
}

func TechSupportDescriptor() Descriptor {
	return Descriptor{
		Name: ToolGetTechnicalSupport,
		Desc: "Search the knowledge base for technical support documentation and troubleshooting guides.",
		Schema: InputSchema{
			Properties: map[string]Property{
				"issue_description": {
					Type: "string",
					Desc: "Description of the technical issue or question.",
				},
			},
			Required: []string{"issue_description"},
		},
	}
}

func (t *TechSupport) Handle(ctx context.Context, args map[string]any) (string, error) {
	issue, _ := args["issue_description"].(string)

	if bearer := contractx.BearerTokenFromContext(ctx); bearer != "" {
		ctx = memoryapi.WithToken(ctx, bearer)
	}

	records, err := t.kb.Retrieve(ctx, t.namespace, issue, kbTopK)
	if err != nil {
		// Same containment rule as every tool: report, don't abort.
		return "Unable to access technical support documentation. Error: " + err.Error(), nil
	}

	var snippets []string
	for _, rec := range records {
		text := strings.TrimSpace(rec.Text)
		if text != "" && rec.Score >= kbScoreCutoff {
			snippets = append(snippets, text)
		}
	}

	if len(snippets) == 0 {
		return kbNoResultText, nil
	}
	return strings.Join(snippets, "\n\n---\n\n"), nil
}
