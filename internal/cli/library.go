package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/adlib-voice/adlib/internal/clipboard"
	"github.com/adlib-voice/adlib/internal/platform"
	"github.com/adlib-voice/adlib/internal/store"
)

func openLibrary() (*store.Store, error) {
	dir, err := platform.ResolveRecordingDir()
	if err != nil {
		return nil, err
	}
	return store.Open(dir)
}

func newListCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved recordings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			library, err := openLibrary()
			if err != nil {
				return err
			}

			recordings := library.Recordings()
			if len(recordings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recordings saved yet. Use `adlib live --save` to keep one.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tRECORDED\tDURATION\tTITLE")
			for _, rec := range recordings {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					rec.ID.String()[:8],
					rec.RecordedAt.Format("2006-01-02 15:04"),
					formatClock(rec.DurationSeconds),
					rec.Title)
			}
			return w.Flush()
		},
	}
}

func newShowCmd(app *appState) *cobra.Command {
	var copyToClipboard bool

	cmd := &cobra.Command{
		Use:   "show <recording-id>",
		Short: "Print a saved recording's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := openLibrary()
			if err != nil {
				return err
			}

			rec, err := findRecording(library, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n\n", rec.Title, rec.RecordedAt.Format("2006-01-02 15:04"), formatClock(rec.DurationSeconds))
			fmt.Fprintln(cmd.OutOrStdout(), rec.Transcript)

			if copyToClipboard {
				copyFn := app.copyFn
				if copyFn == nil {
					copyFn = clipboard.CopyTranscript
				}
				if err := copyFn(cmd.Context(), rec.Transcript); err != nil {
					return err
				}
				app.log().Info("transcript copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy transcript to clipboard")
	return cmd
}

func newDeleteCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recording-id>",
		Short: "Delete a saved recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := openLibrary()
			if err != nil {
				return err
			}

			rec, err := findRecording(library, args[0])
			if err != nil {
				return err
			}

			if err := library.Delete(rec.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", rec.Title, rec.ID.String()[:8])
			return nil
		},
	}
}

// findRecording accepts a full UUID or an unambiguous prefix.
func findRecording(library *store.Store, ref string) (store.Recording, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))

	if id, err := uuid.Parse(ref); err == nil {
		return library.Get(id)
	}

	var match store.Recording
	found := 0
	for _, rec := range library.Recordings() {
		if strings.HasPrefix(rec.ID.String(), ref) {
			match = rec
			found++
		}
	}

	switch found {
	case 0:
		return store.Recording{}, fmt.Errorf("%w: %s", store.ErrNotFound, ref)
	case 1:
		return match, nil
	default:
		return store.Recording{}, errors.New("recording ID prefix is ambiguous; use more characters")
	}
}
