package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the contacts schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// database.New applies the schema before returning
			_, lg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer lg.Sync()
			lg.Info("schema up to date")
			return db.Close()
		},
	})
}
