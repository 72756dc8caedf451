package main

import (
	"fmt"
	"io"
	"os"

	"github.com/maruel/comicdb/internal/models"
	"github.com/maruel/comicdb/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Add every complete comic listed in a YAML or JSON file",
		Long: `Add every complete comic listed in a YAML or JSON file.

The file holds either a list of {title, volume, writer, artist} objects or an
object with such a list under "comics". Items missing a title, writer or
artist are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			items, err := parseImport(data)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			return ctx.mutate(cmd.Context(), "comicctl import "+args[0], func(s *storage.Store) error {
				added, err := s.BulkAdd(cmd.Context(), items)
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, map[string]any{"comics": added, "added": len(added), "skipped": len(items) - len(added)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d comics, skipped %d\n", len(added), len(items)-len(added))
				return nil
			})
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file|-]",
		Short: "Write the whole catalog as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(s *storage.Store) error {
				if len(args) == 0 || args[0] == "-" {
					return s.ExportTo(cmd.OutOrStdout())
				}
				n, err := s.Export(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d comics to %s\n", n, args[0])
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the commits of the delta file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			commits, err := repo.History(cmd.Context(), ctx.options().DeltaPath, limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, commits)
			}
			rows := make([][]string, 0, len(commits))
			for _, c := range commits {
				rows = append(rows, []string{c.Hash[:min(len(c.Hash), 10)], c.AuthorDate.Format("2006-01-02 15:04"), c.Author, c.Message})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Commit", "Date", "Author", "Message"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of commits")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name) //nolint:gosec // G304: reading the file named on the command line is the point
}

// parseImport decodes a YAML (or JSON) list of comics, optionally wrapped in
// an object under "comics".
func parseImport(data []byte) ([]models.ComicFields, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return []models.ComicFields{}, nil
	}
	doc := root.Content[0]
	items := []models.ComicFields{}
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&items); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var wrapped struct {
			Comics []models.ComicFields `yaml:"comics"`
		}
		if err := doc.Decode(&wrapped); err != nil {
			return nil, err
		}
		if wrapped.Comics != nil {
			items = wrapped.Comics
		}
	default:
		return nil, fmt.Errorf("line %d: expected a list of comics", doc.Line)
	}
	return items, nil
}
