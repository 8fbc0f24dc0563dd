package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Read items",
}

var itemShowCmd = &cobra.Command{
	Use:   "show <item-id>",
	Short: "Show an item and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemShow,
}

func init() {
	itemCmd.AddCommand(itemShowCmd)
	rootCmd.AddCommand(itemCmd)
}

func runItemShow(cmd *cobra.Command, args []string) error {
	if err := ensureRuntime(cmd); err != nil {
		return err
	}
	if itemService == nil {
		return errors.New("item service not configured")
	}

	ctx := cmd.Context()
	subject, err := currentSubject(ctx)
	if err != nil {
		return err
	}

	item, chunks, err := itemService.Get(ctx, subject, args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("item %s not found", args[0])
	}
	if err != nil {
		return err
	}

	p := paletteFor(cmd.OutOrStdout())
	out := cmd.OutOrStdout()
	title := item.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(out, "%s %s\n", p.title(title), p.id("("+item.ID+")"))
	fmt.Fprintf(out, "Modality:    %s\n", item.Modality)
	fmt.Fprintf(out, "Project:     %s\n", orNone(item.ProjectID))
	fmt.Fprintf(out, "Sensitivity: %s\n", item.Sensitivity)
	fmt.Fprintf(out, "Status:      %s\n", item.IndexingStatus)
	if len(item.Tags) > 0 {
		fmt.Fprintf(out, "Tags:        %s\n", strings.Join(item.Tags, ", "))
	}
	if !item.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Created:     %s\n", item.CreatedAt.Format("2006-01-02 15:04"))
	}
	for _, c := range chunks {
		fmt.Fprintf(out, "\n%s\n%s\n", p.muted(fmt.Sprintf("[%d] %s", c.Position, c.ID)), c.Content)
	}
	return nil
}
