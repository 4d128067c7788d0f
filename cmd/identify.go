package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"identityrecon/internal/models"
	"identityrecon/internal/service"
)

type identifyFlags struct {
	email string
	phone string
}

func init() {
	f := new(identifyFlags)

	identifyCmd := &cobra.Command{
		Use:   "identify [--email address] [--phone number]",
		Short: "Reconcile one contact against the store and print the consolidated identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, lg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer lg.Sync()
			defer db.Close()

			var req models.IdentifyRequest
			if cmd.Flags().Changed("email") {
				req.Email = &f.email
			}
			if cmd.Flags().Changed("phone") {
				req.PhoneNumber = &f.phone
			}

			svc := service.NewReconciliationService(db, service.WithLogger(lg))
			resp, err := svc.Identify(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	identifyCmd.Flags().StringVar(&f.email, "email", "", "email address")
	identifyCmd.Flags().StringVar(&f.phone, "phone", "", "phone number")

	rootCmd.AddCommand(identifyCmd)
}
