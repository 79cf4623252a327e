package cmd

import (
	"fmt"
	"os"
	"time"

	"media-store/core/storage"
	"media-store/feature/bundle"

	"github.com/spf13/cobra"
)

var contentTypeFlag string

// replaceCmd represents the replace command
var replaceCmd = &cobra.Command{
	Use:   "replace <song_id> <asset> <file>",
	Short: "Replace a single asset of an existing bundle",
	Long: `Replaces one asset (audio, video, or art) of a media bundle, updates only
that asset's slot in the bundle manifest, and prints the refreshed URLs.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		songID := args[0]
		asset := bundle.Asset(args[1])
		filePath := args[2]

		svc := newBundleService(cmd)

		if !asset.Valid() {
			fmt.Fprintf(cmd.ErrOrStderr(), "Unknown asset %q (expected audio, video, or art)\n", asset)
			os.Exit(1)
		}
		if _, err := os.Stat(filePath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "File not found: %s\n", filePath)
			os.Exit(1)
		}

		result, err := svc.ReplaceAsset(cmd.Context(), bundle.ReplaceInput{
			SongID:      songID,
			Asset:       asset,
			File:        storage.FromFile(filePath),
			ContentType: contentTypeFlag,
			Metadata:    map[string]string{},
			UploaderID:  userFlag,
			Prefix:      prefixFlag,
			URLExpiry:   time.Duration(expiresFlag) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("asset replacement failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Replace complete")
		if result.AudioURL != "" {
			fmt.Fprintf(out, "Audio:  %s\n", result.AudioURL)
		}
		if result.VideoURL != "" {
			fmt.Fprintf(out, "Video:  %s\n", result.VideoURL)
		}
		if result.ArtURL != "" {
			fmt.Fprintf(out, "Art:    %s\n", result.ArtURL)
		}
		if result.ManifestURL != "" {
			fmt.Fprintf(out, "Manifest: %s\n", result.ManifestURL)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(replaceCmd)

	replaceCmd.Flags().StringVar(&contentTypeFlag, "content-type", "", "MIME type of the replacement file")
	replaceCmd.Flags().StringVar(&bucketFlag, "bucket", "", "Bucket name (overrides STORAGE_BUCKET env)")
	replaceCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Optional base prefix under bucket")
	replaceCmd.Flags().StringVar(&userFlag, "user", "", "Optional uploader user id")
	replaceCmd.Flags().IntVar(&expiresFlag, "expires", 3600, "Presigned URL expiry in seconds")
}
