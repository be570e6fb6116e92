package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/jobweave/jobweave/internal/archive"
)

func newArchiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <task-id>",
		Short: "Pack a task's working directory and upload it, recording the archive operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("task id: %w", err)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			dir, err := a.st.TaskWorkingDir(ctx, taskID)
			if err != nil {
				return fmt.Errorf("resolve task working directory: %w", err)
			}

			packed, err := archive.PackDirectory(ctx, dir)
			if err != nil {
				return fmt.Errorf("pack archive source: %w", err)
			}
			defer packed.Close()

			archiver, err := newArchiver()
			if err != nil {
				return err
			}

			opID, err := a.st.CreateArchiveOperation(ctx, taskID, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("open archive operation: %w", err)
			}

			key := fmt.Sprintf("task-%d.tar.gz", taskID)
			location, archiveErr := archiver.Archive(ctx, key, packed, packed.Size())
			succeeded := archiveErr == nil
			if !succeeded {
				location = ""
			}
			if err := a.st.EndArchiveOperation(ctx, opID, time.Now().UTC(), succeeded, location); err != nil {
				return fmt.Errorf("end archive operation: %w", err)
			}
			if archiveErr != nil {
				return fmt.Errorf("archive upload: %w", archiveErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}
}

// newArchiver builds the minio-backed Remote archiver when
// JOBWEAVE_S3_ENDPOINT and JOBWEAVE_S3_BUCKET are set, otherwise falls
// back to archive.Null (spec.md's archive operation records intent
// even when no remote target is configured).
func newArchiver() (archive.Archiver, error) {
	endpoint := os.Getenv("JOBWEAVE_S3_ENDPOINT")
	bucket := os.Getenv("JOBWEAVE_S3_BUCKET")
	if endpoint == "" || bucket == "" {
		return archive.Null{}, nil
	}

	useSSL := true
	if v := os.Getenv("JOBWEAVE_S3_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("JOBWEAVE_S3_USE_SSL: %w", err)
		}
		useSSL = b
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("JOBWEAVE_S3_ACCESS_KEY"), os.Getenv("JOBWEAVE_S3_SECRET_KEY"), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("construct s3 client: %w", err)
	}
	return archive.NewRemote(client, bucket, os.Getenv("JOBWEAVE_S3_PREFIX")), nil
}
