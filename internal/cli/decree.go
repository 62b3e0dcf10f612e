package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"parishregistry/internal/core"
	"parishregistry/internal/marginalnote"
	"parishregistry/pkg/domain"
)

func newDecreeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decree",
		Short: "Record and manage decrees of correction, replacement and reposition",
	}
	cmd.AddCommand(
		newRunDecreeCommand(opts, "correct", domain.DecreeCorrection, "Annul an entry and seat its corrected version"),
		newRunDecreeCommand(opts, "replace", domain.DecreeReplacement, "Seat a replacement entry, annulling the original when it is found"),
		newRunDecreeCommand(opts, "reposition", domain.DecreeReposition, "Seat an entry whose original cannot be located"),
		newDecreeUpdateCommand(opts),
		newDecreeDeleteCommand(opts),
		newDecreeShowCommand(opts),
		newDecreeListCommand(opts),
	)
	return cmd
}

// readYAML decodes the file at path into v. "-" reads stdin.
func readYAML(cmd *cobra.Command, path string, v any) error {
	if path == "" {
		return usageError{fmt.Errorf("--file is required")}
	}
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return usageError{err}
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return usageError{fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}

func newRunDecreeCommand(opts *RootOptions, use string, kind domain.DecreeKind, short string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: fmt.Sprintf(`%s.

The request is a YAML document with parish_id, sacrament, decree_number,
decree_date, annulment_concept_id, the original locator and new_entry.
--parish fills parish_id when the document omits it.`, short),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req core.DecreeRequest
			if err := readYAML(cmd, file, &req); err != nil {
				return err
			}
			if req.ParishID == "" {
				req.ParishID = opts.Parish
			}
			return withApp(cmd, opts, func(a *app) error {
				run := map[domain.DecreeKind]func() (core.DecreeOutcome, error){
					domain.DecreeCorrection:  func() (core.DecreeOutcome, error) { return a.svc.RunCorrection(cmd.Context(), req) },
					domain.DecreeReplacement: func() (core.DecreeOutcome, error) { return a.svc.RunReplacement(cmd.Context(), req) },
					domain.DecreeReposition:  func() (core.DecreeOutcome, error) { return a.svc.RunReposition(cmd.Context(), req) },
				}[kind]
				outcome, err := run()
				if err != nil {
					return err
				}
				return a.out.emit(outcome, func(w io.Writer) { writeOutcome(w, outcome) })
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "decree request (YAML, - for stdin)")
	return cmd
}

func writeOutcome(w io.Writer, o core.DecreeOutcome) {
	d := o.Decree
	fmt.Fprintf(w, "%s %s decree %s recorded (%s)\n", okMark, d.Kind, d.DecreeNumber, d.ID)
	fmt.Fprintf(w, "  new entry:  %s, supplementary book (%s)\n", d.NewLocator, o.NewRecord.ID)
	switch {
	case o.OriginalFound && o.Original != nil:
		fmt.Fprintf(w, "  annulled:   %s (%s)\n", o.Original.Locator, o.Original.ID)
		if o.Original.MarginalNote != nil {
			fmt.Fprintf(w, "  note:       %s\n", *o.Original.MarginalNote)
		}
	case d.OriginalLocator != nil:
		fmt.Fprintf(w, "  %s original %s not found in the register\n", warnColor.Sprint("!"), *d.OriginalLocator)
	}
}

func newDecreeUpdateCommand(opts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "update <decree-id>",
		Short: "Amend a decree; the new entry keeps its locator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch core.DecreePatch
			if err := readYAML(cmd, file, &patch); err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				parish, err := a.parish()
				if err != nil {
					return err
				}
				decree, err := a.svc.UpdateDecree(cmd.Context(), parish, args[0], patch)
				if err != nil {
					return err
				}
				return a.out.emit(decree, func(w io.Writer) {
					fmt.Fprintf(w, "%s decree %s updated (%s)\n", okMark, decree.DecreeNumber, decree.ID)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "decree patch (YAML, - for stdin)")
	return cmd
}

func newDecreeDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <decree-id>",
		Short: "Delete a decree; annulled and seated entries are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				parish, err := a.parish()
				if err != nil {
					return err
				}
				decree, err := a.svc.DeleteDecree(cmd.Context(), parish, args[0])
				if err != nil {
					return err
				}
				return a.out.emit(decree, func(w io.Writer) {
					fmt.Fprintf(w, "%s decree %s deleted (%s)\n", okMark, decree.DecreeNumber, decree.ID)
				})
			})
		},
	}
}

func newDecreeShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <decree-id>",
		Short: "Show a decree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				parish, err := a.parish()
				if err != nil {
					return err
				}
				d, err := a.svc.GetDecree(cmd.Context(), parish, args[0])
				if err != nil {
					return err
				}
				return a.out.emit(d, func(w io.Writer) {
					rows := [][]string{
						{"id", d.ID},
						{"kind", string(d.Kind)},
						{"sacrament", string(d.Sacrament)},
						{"number", d.DecreeNumber},
						{"date", d.DecreeDate.Format(marginalnote.DateLayout)},
						{"concept", d.AnnulmentConceptID},
						{"target", d.TargetName},
						{"new entry", locatorText(d.NewLocator)},
					}
					if d.OriginalLocator != nil {
						rows = append(rows, []string{"original", locatorText(*d.OriginalLocator)})
					}
					if d.Reference != "" {
						rows = append(rows, []string{"reference", d.Reference})
					}
					if d.Observations != "" {
						rows = append(rows, []string{"observations", d.Observations})
					}
					table(w, []string{"FIELD", "VALUE"}, rows)
				})
			})
		},
	}
}

func newDecreeListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the parish's decrees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				parish, err := a.parish()
				if err != nil {
					return err
				}
				decrees, err := a.svc.ListDecrees(cmd.Context(), parish)
				if err != nil {
					return err
				}
				if decrees == nil {
					decrees = []core.DecreeRecord{}
				}
				return a.out.emit(decrees, func(w io.Writer) {
					rows := make([][]string, 0, len(decrees))
					for _, d := range decrees {
						rows = append(rows, []string{
							d.DecreeNumber,
							string(d.Kind),
							string(d.Sacrament),
							d.DecreeDate.Format(marginalnote.DateLayout),
							d.TargetName,
							locatorText(d.NewLocator),
							d.ID,
						})
					}
					table(w, []string{"NUMBER", "KIND", "SACRAMENT", "DATE", "TARGET", "NEW ENTRY", "ID"}, rows)
				})
			})
		},
	}
}
