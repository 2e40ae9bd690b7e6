package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fluently/internal/client"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var owner int64
	var description, contentType string
	var submit, asJSON bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Register a local audio file with the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner <= 0 {
				return fmt.Errorf("--owner is required")
			}
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("audio file %s: %w", path, err)
			}
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.Upload(cmd.Context(), client.UploadRequest{
					OwnerID:     owner,
					Path:        path,
					ContentType: contentType,
					Description: description,
					Submit:      submit,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Registered recording %d (%s, %s)\n",
					resp.Recording.ID, resp.Recording.StorageKey, formatDuration(resp.Recording.DurationSeconds))
				if resp.Submission != nil {
					printSubmission(cmd, *resp.Submission)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "Owner id the recording belongs to")
	cmd.Flags().StringVar(&description, "description", "", "Optional free-form description")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Override the detected audio content type")
	cmd.Flags().BoolVar(&submit, "submit", false, "Queue analysis immediately after upload")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the created recording as JSON")
	return cmd
}
