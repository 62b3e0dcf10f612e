package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"parishregistry/internal/importer"
	"parishregistry/pkg/domain"
)

func newImportCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Reconcile legacy register exports before importing them",
	}
	cmd.AddCommand(newImportReconcileCommand(opts), newImportArchiveCommand(opts))
	return cmd
}

type importFlags struct {
	sacrament string
	apply     bool
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.sacrament, "sacrament", "s", "", "register (baptism|confirmation|marriage)")
	cmd.Flags().BoolVar(&f.apply, "apply", false, "insert the rows that are safe to insert")
	_ = cmd.MarkFlagRequired("sacrament")
}

// reconcile classifies rows, inserting the safe ones when apply is set. It
// returns the number of rows inserted.
func (f *importFlags) reconcile(cmd *cobra.Command, a *app, parish string, rows []importer.RawRow) (importer.Result, int, error) {
	sacrament := domain.SacramentType(f.sacrament)
	if !f.apply {
		res, err := a.svc.ReconcileImport(cmd.Context(), parish, sacrament, rows)
		return res, 0, err
	}
	res, err := a.svc.ImportRecords(cmd.Context(), parish, sacrament, rows)
	return res, len(res.ToInsert), err
}

func readLocalRows(path string) ([]importer.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, usageError{err}
	}
	defer func() { _ = f.Close() }()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return importer.ReadJSON(f)
	}
	return importer.ReadCSV(f)
}

func newImportReconcileCommand(opts *RootOptions) *cobra.Command {
	var f importFlags
	cmd := &cobra.Command{
		Use:   "reconcile <file>...",
		Short: "Classify rows of local CSV or JSON exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []importer.RawRow
			for _, path := range args {
				fileRows, err := readLocalRows(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				rows = append(rows, fileRows...)
			}
			return withApp(cmd, opts, func(a *app) error {
				parish, err := a.parish()
				if err != nil {
					return err
				}
				res, inserted, err := f.reconcile(cmd, a, parish, rows)
				if err != nil {
					return err
				}
				report := importer.Report{ParishID: parish, Sacrament: f.sacrament, Sources: args, Inserted: inserted, Result: res}
				return a.out.emit(report, func(w io.Writer) { writeReport(w, report, f.apply) })
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newImportArchiveCommand(opts *RootOptions) *cobra.Command {
	var (
		f         importFlags
		reportKey string
	)
	cmd := &cobra.Command{
		Use:   "archive <key>...",
		Short: "Classify exports kept in the blob archive and store a report",
		Long: `Fetch legacy exports from the configured blob store (filesystem, S3 or
memory), reconcile them in key order and optionally store the reconcile
report back in the archive under --report.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, keys []string) error {
			return withApp(cmd, opts, func(a *app) error {
				parish, err := a.parish()
				if err != nil {
					return err
				}
				blobs, err := a.openBlobs(cmd.Context())
				if err != nil {
					return err
				}
				archives, err := importer.LoadArchives(cmd.Context(), blobs, keys)
				if err != nil {
					return domain.StorageError{Op: "load archives", Err: err}
				}
				res, inserted, err := f.reconcile(cmd, a, parish, importer.Rows(archives))
				if err != nil {
					return err
				}
				report := importer.Report{ParishID: parish, Sacrament: f.sacrament, Sources: keys, Inserted: inserted, Result: res}
				if reportKey != "" {
					if _, err := importer.WriteReport(cmd.Context(), blobs, reportKey, report); err != nil {
						return domain.StorageError{Op: "write report", Err: err}
					}
					a.log.Info("reconcile report stored", "key", reportKey, "driver", string(blobs.Driver()))
				}
				return a.out.emit(report, func(w io.Writer) { writeReport(w, report, f.apply) })
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&reportKey, "report", "", "blob key to store the reconcile report under")
	return cmd
}

func writeReport(w io.Writer, r importer.Report, applied bool) {
	res := r.Result
	verb := "to insert"
	if applied {
		verb = "inserted"
	}
	fmt.Fprintf(w, "%s %d %s, %d duplicates, %d rejected rows\n", okMark, len(res.ToInsert), verb, len(res.Duplicates), len(res.RowErrors))
	if len(res.Duplicates) > 0 {
		rows := make([][]string, 0, len(res.Duplicates))
		for _, d := range res.Duplicates {
			against := d.ExistingID
			if d.Reason == importer.ReasonBatch {
				against = "row " + strconv.Itoa(d.FirstRow+1)
			}
			rows = append(rows, []string{strconv.Itoa(d.Row + 1), d.Key, string(d.Reason), against})
		}
		fmt.Fprintln(w)
		table(w, []string{"ROW", "LOCATOR", "DUPLICATE OF", "MATCH"}, rows)
	}
	if len(res.RowErrors) > 0 {
		rows := make([][]string, 0, len(res.RowErrors))
		for _, e := range res.RowErrors {
			rows = append(rows, []string{strconv.Itoa(e.Row + 1), string(e.Field), warnColor.Sprint(e.Message)})
		}
		fmt.Fprintln(w)
		table(w, []string{"ROW", "FIELD", "PROBLEM"}, rows)
	}
}
