package cli

import (
	"fmt"
	"io"

	"label-catalog-api/pkg/catalog"

	"github.com/spf13/cobra"
)

func newSyncCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-check",
		Short: "List tracks whose audio file no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.closeLog()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := ctx.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer disconnect(db)

			store, _, err := openStorage(cfg, db)
			if err != nil {
				return err
			}

			builder := catalog.NewBuilder(db, catalog.DefaultOptions())
			if err := builder.Refresh(cmd.Context()); err != nil {
				return err
			}
			snapshot := builder.Snapshot()

			missing, err := catalog.FindMissingAudio(cmd.Context(), snapshot.Tracks, store)
			if err != nil {
				return err
			}
			checked := len(snapshot.Tracks) - len(snapshot.TracksWithoutAudio())
			printMissing(cmd.OutOrStdout(), checked, missing)
			return nil
		},
	}
}

func printMissing(out io.Writer, checked int, missing []catalog.MissingAudio) {
	if len(missing) == 0 {
		fmt.Fprintf(out, "Checked %d tracks, all audio present\n", checked)
		return
	}

	rows := make([][]string, 0, len(missing))
	for _, m := range missing {
		status := "missing"
		if m.Error != "" {
			status = m.Error
		}
		rows = append(rows, []string{m.TrackID, m.Title, m.AudioURL, status})
	}
	fmt.Fprintln(out, renderTable([]string{"Track", "Title", "Audio", "Status"}, rows))
	fmt.Fprintf(out, "Checked %d tracks, %d without audio\n", checked, len(missing))
}
