package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"parishregistry/pkg/domain"
)

func newRecordsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Browse register entries",
	}
	cmd.AddCommand(newRecordsListCommand(opts))
	return cmd
}

func newRecordsListCommand(opts *RootOptions) *cobra.Command {
	var sacrament string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one register, annulled entries included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				parish, err := a.parish()
				if err != nil {
					return err
				}
				records, err := a.svc.ListRecords(cmd.Context(), parish, domain.SacramentType(sacrament))
				if err != nil {
					return err
				}
				if records == nil {
					records = []domain.SacramentalRecord{}
				}
				return a.out.emit(records, func(w io.Writer) {
					rows := make([][]string, 0, len(records))
					for _, r := range records {
						status := string(r.Status)
						if r.Status == domain.StatusAnnulled {
							status = errColor.Sprint(status)
						}
						book := "ordinary"
						if r.IsSupplementary {
							book = "supplementary"
						}
						rows = append(rows, []string{locatorText(r.Locator), book, status, recordName(r), r.ID})
					}
					table(w, []string{"LOCATOR", "BOOK", "STATUS", "NAME", "ID"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&sacrament, "sacrament", "s", "", "register (baptism|confirmation|marriage)")
	_ = cmd.MarkFlagRequired("sacrament")
	return cmd
}

func recordName(r domain.SacramentalRecord) string {
	p := r.Payload
	switch {
	case p.Baptism != nil:
		return p.Baptism.Person.FullName()
	case p.Confirmation != nil:
		return p.Confirmation.Person.FullName()
	case p.Marriage != nil:
		return fmt.Sprintf("%s y %s", p.Marriage.Groom.FullName(), p.Marriage.Bride.FullName())
	}
	return ""
}
