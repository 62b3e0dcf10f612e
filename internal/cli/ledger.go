package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"parishregistry/pkg/domain"
)

type scopeFlags struct {
	sacrament string
	kind      string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.sacrament, "sacrament", "s", "", "register (baptism|confirmation|marriage)")
	cmd.Flags().StringVar(&f.kind, "book-kind", string(domain.BookSupplementary), "book kind (ordinary|supplementary)")
	_ = cmd.MarkFlagRequired("sacrament")
}

func (f *scopeFlags) scope(a *app) (domain.LedgerScope, error) {
	parish, err := a.parish()
	if err != nil {
		return domain.LedgerScope{}, err
	}
	return domain.LedgerScope{
		ParishID:  parish,
		Sacrament: domain.SacramentType(f.sacrament),
		Kind:      domain.BookKind(f.kind),
	}, nil
}

func newLedgerCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and seed the numbering ledgers",
	}
	cmd.AddCommand(newLedgerShowCommand(opts), newLedgerConfigureCommand(opts), newLedgerAllocateCommand(opts))
	return cmd
}

// ledgerView is the ledger show payload. HeldBy names the live entry that
// already holds the next locator.
type ledgerView struct {
	domain.LedgerHead
	HeldBy string `json:"held_by,omitempty"`
}

const reseedHint = "seed the supplementary book to a free range with 'parishreg ledger configure --book N'"

func writeHead(w io.Writer, h domain.LedgerHead) {
	state := "open"
	if h.Locked {
		state = warnColor.Sprint("locked")
	}
	fmt.Fprintf(w, "%s  next %s  (%d entries per folio, %s)\n", h.Scope, locatorText(h.Current()), h.EntriesPerFolio, state)
}

func newLedgerShowCommand(opts *RootOptions) *cobra.Command {
	var sf scopeFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the next locator a ledger will assign",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				scope, err := sf.scope(a)
				if err != nil {
					return err
				}
				head, err := a.svc.LedgerHead(cmd.Context(), scope)
				if err != nil {
					return err
				}
				holder, taken, err := a.svc.LedgerHeadHolder(cmd.Context(), scope)
				if err != nil {
					return err
				}
				view := ledgerView{LedgerHead: head}
				if taken {
					view.HeldBy = holder.ID
				}
				return a.out.emit(view, func(w io.Writer) {
					writeHead(w, head)
					if taken {
						fmt.Fprintf(w, "%s %s is already held by entry %s; %s\n",
							warnColor.Sprint("warning:"), locatorText(head.Current()), holder.ID, reseedHint)
					}
				})
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func newLedgerConfigureCommand(opts *RootOptions) *cobra.Command {
	var (
		sf                  scopeFlags
		book, folio, entry  int
		entriesPerFolio     int
		locked, restartFlag bool
	)
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Seed or replace a ledger's head",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				scope, err := sf.scope(a)
				if err != nil {
					return err
				}
				head, err := a.svc.ConfigureLedger(cmd.Context(), domain.LedgerHead{
					Scope:               scope,
					Book:                book,
					Folio:               folio,
					Entry:               entry,
					EntriesPerFolio:     entriesPerFolio,
					Locked:              locked,
					RestartEntryOnFolio: restartFlag,
				})
				if err != nil {
					return err
				}
				return a.out.emit(head, func(w io.Writer) {
					fmt.Fprintf(w, "%s ledger configured\n", okMark)
					writeHead(w, head)
				})
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().IntVar(&book, "book", 1, "next book number")
	cmd.Flags().IntVar(&folio, "folio", 1, "next folio number")
	cmd.Flags().IntVar(&entry, "entry", 1, "next entry number")
	cmd.Flags().IntVar(&entriesPerFolio, "entries-per-folio", 0, "folio capacity (0 keeps the default)")
	cmd.Flags().BoolVar(&locked, "locked", false, "refuse further allocations")
	cmd.Flags().BoolVar(&restartFlag, "restart-entry-on-folio", false, "record the restart-numbering policy flag")
	return cmd
}

func newLedgerAllocateCommand(opts *RootOptions) *cobra.Command {
	var sf scopeFlags
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Assign the next locator of a ledger outside a decree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				scope, err := sf.scope(a)
				if err != nil {
					return err
				}
				loc, err := a.svc.AllocateNext(cmd.Context(), scope)
				if err != nil {
					return err
				}
				return a.out.emit(loc, func(w io.Writer) {
					fmt.Fprintf(w, "%s assigned %s\n", okMark, loc)
				})
			})
		},
	}
	sf.register(cmd)
	return cmd
}
