package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

// printPassage renders a passage with its attribution line and id.
func printPassage(cmd *cobra.Command, p *domain.Passage) {
	cmd.Println(p.Text)
	cmd.Println()

	attribution := p.DocumentTitle
	if p.Author != "" {
		attribution += " by " + p.Author
	}
	if marker := p.LocationMarker(); marker != "" {
		attribution += " (" + marker + ")"
	}
	cmd.Printf("  %s\n", attribution)
	cmd.Printf("  id: %s\n", p.ID)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
