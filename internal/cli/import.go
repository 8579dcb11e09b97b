package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

// importCmd loads upstream inputs into the store
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load documents, terms or ontology rules into the store",
	Long: `Import upserts the inputs the build consumes.

  documents  JSON array of {id, title, last_updated}
  terms      JSON array of {id, document_id, term, category, definition,
             frequency, confidence, related_terms}; related_terms is kept
             verbatim, either as a JSON array or as a string holding one
  rules      YAML list of {subject, predicate, object, description}

Example:
  ontograph import documents docs.json
  ontograph import terms terms.json
  ontograph import rules ontology.yaml`,
}

var importDocumentsCmd = &cobra.Command{
	Use:   "documents <file.json>",
	Short: "Import document metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var docs []model.Document
		if err := readJSONFile(args[0], &docs); err != nil {
			return err
		}
		return runImport(cmd, "documents", func(ctx context.Context, st store.Importer) (int, error) {
			return st.ImportDocuments(ctx, docs)
		})
	},
}

var importTermsCmd = &cobra.Command{
	Use:   "terms <file.json>",
	Short: "Import extracted terms with their raw relations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in []termFile
		if err := readJSONFile(args[0], &in); err != nil {
			return err
		}
		rows := make([]store.TermRow, 0, len(in))
		for _, t := range in {
			rows = append(rows, t.row())
		}
		return runImport(cmd, "terms", func(ctx context.Context, st store.Importer) (int, error) {
			return st.ImportTerms(ctx, rows)
		})
	},
}

var importRulesCmd = &cobra.Command{
	Use:   "rules <file.yaml>",
	Short: "Import ontology rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var rules []model.Rule
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		return runImport(cmd, "rules", func(ctx context.Context, st store.Importer) (int, error) {
			return st.ImportRules(ctx, rules)
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importDocumentsCmd, importTermsCmd, importRulesCmd)
}

// termFile is one entry of a terms import file
type termFile struct {
	ID           int64           `json:"id"`
	DocumentID   int64           `json:"document_id"`
	Term         string          `json:"term"`
	Category     string          `json:"category"`
	Definition   string          `json:"definition"`
	Frequency    int             `json:"frequency"`
	Confidence   float64         `json:"confidence"`
	RelatedTerms json.RawMessage `json:"related_terms"`
}

// row keeps related_terms as raw text; the build decodes and repairs it.
// A JSON string is unwrapped so its content is stored, not the quoted form.
func (t termFile) row() store.TermRow {
	raw := string(t.RelatedTerms)
	var s string
	if err := json.Unmarshal(t.RelatedTerms, &s); err == nil {
		raw = s
	}
	return store.TermRow{
		Term: model.Term{
			ID:         t.ID,
			DocumentID: t.DocumentID,
			Text:       t.Term,
			Category:   t.Category,
			Definition: t.Definition,
			Frequency:  t.Frequency,
			Confidence: t.Confidence,
		},
		RawRelations: raw,
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func runImport(cmd *cobra.Command, kind string, fn func(context.Context, store.Importer) (int, error)) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	n, err := fn(cmd.Context(), a.store)
	if err != nil {
		return fmt.Errorf("import %s failed: %w", kind, err)
	}
	a.log.Info("import finished", "kind", kind, "rows", n)
	fmt.Fprintf(os.Stderr, "✓ Imported %d %s\n", n, kind)
	return nil
}
