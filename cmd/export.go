/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/connectapp/apiserver/internal/db"
	"github.com/connectapp/apiserver/internal/services"
	"github.com/connectapp/apiserver/internal/storage"
	"github.com/connectapp/apiserver/internal/store"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a JSON snapshot of users, posts and likes to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer objects.Close()

		exporter := services.NewExportService(store.NewSnapshotRepository(dbConn), objects)
		key, err := exporter.Export(ctx)
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{"bucket": objects.Bucket(), "key": key}).Info("export uploaded")
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
