package cli

import (
	"io"

	"github.com/spf13/cobra"

	"parishregistry/internal/catalog"
	"parishregistry/pkg/domain"
)

func newConceptsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concepts",
		Short: "Browse the annulment concept catalog",
	}
	cmd.AddCommand(newConceptsListCommand(opts))
	return cmd
}

func newConceptsListCommand(opts *RootOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the concepts offered to the parish, by decree kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				kinds := []domain.DecreeKind{domain.DecreeCorrection, domain.DecreeReplacement, domain.DecreeReposition}
				if kind != "" {
					kinds = []domain.DecreeKind{domain.DecreeKind(kind)}
				}
				scope := opts.Parish
				if scope == "" {
					scope = catalog.DefaultScope
				}
				concepts := []domain.AnnulmentConcept{}
				for _, k := range kinds {
					list, err := a.svc.Catalog().ListConcepts(cmd.Context(), scope, k)
					if err != nil {
						return err
					}
					concepts = append(concepts, list...)
				}
				return a.out.emit(concepts, func(w io.Writer) {
					rows := make([][]string, 0, len(concepts))
					for _, c := range concepts {
						rows = append(rows, []string{string(c.Kind), c.Code, c.ID, c.Label})
					}
					table(w, []string{"KIND", "CODE", "ID", "LABEL"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "decree kind (correction|replacement|reposition)")
	return cmd
}
