package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maruel/comicdb/internal/models"
	"github.com/maruel/comicdb/internal/storage"
	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every comic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(s *storage.Store) error {
				return printComics(cmd, ctx, s.List())
			})
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find comics by title, writer or artist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(s *storage.Store) error {
				return printComics(cmd, ctx, s.Search(strings.TrimSpace(args[0])))
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one comic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(s *storage.Store) error {
				c, err := s.Get(id)
				if err != nil {
					return err
				}
				return printComic(cmd, ctx, c)
			})
		},
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var f models.ComicFields
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a comic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), "comicctl add", func(s *storage.Store) error {
				c, err := s.Add(cmd.Context(), f)
				if err != nil {
					return err
				}
				return printComic(cmd, ctx, c)
			})
		},
	}
	addFieldFlags(cmd, &f)
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var f models.ComicFields
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change some fields of a comic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p models.ComicPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &f.Title
			}
			if flags.Changed("volume") {
				p.Volume = &f.Volume
			}
			if flags.Changed("writer") {
				p.Writer = &f.Writer
			}
			if flags.Changed("artist") {
				p.Artist = &f.Artist
			}
			if p.IsEmpty() {
				return fmt.Errorf("nothing to change; pass at least one of --title, --volume, --writer, --artist")
			}
			return ctx.mutate(cmd.Context(), "comicctl edit "+args[0], func(s *storage.Store) error {
				c, err := s.Update(cmd.Context(), id, p)
				if err != nil {
					return err
				}
				return printComic(cmd, ctx, c)
			})
		},
	}
	addFieldFlags(cmd, &f)
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a comic",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.mutate(cmd.Context(), "comicctl delete "+args[0], func(s *storage.Store) error {
				if err := s.Delete(cmd.Context(), id); err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, map[string]int{"id": id})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted comic %d\n", id)
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show where the comics come from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(s *storage.Store) error {
				st := s.Stats()
				if ctx.jsonOutput {
					return writeJSON(cmd, st)
				}
				rows := [][]string{
					{"Total", strconv.Itoa(st.Total)},
					{"Seed", strconv.Itoa(st.Seed)},
					{"Edited seed", strconv.Itoa(st.Promoted)},
					{"Added", strconv.Itoa(st.Added)},
					{"Deleted seed", strconv.Itoa(st.Tombstones)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Source", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func addFieldFlags(cmd *cobra.Command, f *models.ComicFields) {
	flags := cmd.Flags()
	flags.StringVar(&f.Title, "title", "", "Title")
	flags.StringVar(&f.Volume, "volume", "", "Volume")
	flags.StringVar(&f.Writer, "writer", "", "Writer")
	flags.StringVar(&f.Artist, "artist", "", "Artist")
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}

func printComics(cmd *cobra.Command, ctx *commandContext, comics []models.Comic) error {
	if ctx.jsonOutput {
		return writeJSON(cmd, comics)
	}
	if len(comics) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No comics found")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderComics(comics))
	return nil
}

func printComic(cmd *cobra.Command, ctx *commandContext, c models.Comic) error {
	if ctx.jsonOutput {
		return writeJSON(cmd, c)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderComics([]models.Comic{c}))
	return nil
}
