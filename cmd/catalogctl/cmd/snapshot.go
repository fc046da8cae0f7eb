package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/debatearchive/catalog/internal/storage"
)

func newExportCmd() *cobra.Command {
	var out string
	var upload bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of the catalog",
		Long: `Write every document, newest first, as a snapshot to --out (default
stdout). With --upload the snapshot goes to the MinIO bucket instead and the
object key and a presigned URL are printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeIndex, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeIndex()

			docs, err := svc.Snapshot(ctx)
			if err != nil {
				return err
			}

			if upload {
				store, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
				if err != nil {
					return err
				}
				exp, err := storage.NewSnapshotExporter(store, cfg.Index.Name).Export(ctx, docs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d documents -> %s\n%s\n", exp.Count, exp.Key, exp.URL)
				return nil
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := storage.WriteSnapshot(w, cfg.Index.Name, time.Now(), docs); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d documents written to %s\n", len(docs), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot file (default stdout)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload to the configured MinIO bucket")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Restore documents from a snapshot",
		Long: `Index every document of a snapshot with its original id and timestamp.
Existing documents with the same id are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			snap, err := storage.ReadSnapshot(f)
			if err != nil {
				return err
			}

			svc, closeIndex, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeIndex()

			n, err := svc.Restore(ctx, snap.Documents)
			if err != nil {
				return fmt.Errorf("restored %d of %d documents: %w", n, snap.Count, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d of %d documents from %s\n", n, snap.Count, snap.Index)
			return nil
		},
	}
	return cmd
}
