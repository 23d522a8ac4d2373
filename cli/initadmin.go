package cli

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"civicvoice/config"
	"civicvoice/connection"
	"civicvoice/model"
	"civicvoice/services"
	"civicvoice/store"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
	adminRole     string
)

var initAdminCmd = &cobra.Command{
	Use:   "init-admin",
	Short: "Create an admin account directly in the store",
	Long: `Create an admin account without going through the HTTP API.

When --password is omitted a random one is generated and printed once.`,
	RunE: runInitAdmin,
}

func init() {
	f := initAdminCmd.Flags()
	f.StringVar(&adminEmail, "email", "", "admin email (default ADMIN_BOOTSTRAP_EMAIL)")
	f.StringVar(&adminPassword, "password", "", "admin password (generated when empty)")
	f.StringVar(&adminName, "name", "System Administrator", "display name")
	f.StringVar(&adminRole, "role", model.RoleSuperAdmin, "admin or super_admin")
}

func runInitAdmin(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig((*config.Config).ValidateStore)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	st, fb, err := connection.DBConnection(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
		if fb != nil {
			fb.Close()
		}
	}()

	email := adminEmail
	if email == "" {
		email = cfg.AdminBootstrapEmail
	}
	return createAdmin(cmd, st, email, adminPassword, adminName, adminRole)
}

func createAdmin(cmd *cobra.Command, st store.AdminStore, email, password, name, role string) error {
	generated := password == ""
	if generated {
		var err error
		if password, err = randomPassword(); err != nil {
			return err
		}
	}

	admin, err := services.CreateAdmin(cmd.Context(), st, services.NewAdmin{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     role,
	}, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("create admin %s: %w", email, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created %s %s (%s)\n", admin.Role, admin.Email, admin.ID)
	if generated {
		fmt.Fprintf(out, "password: %s\n", password)
	}
	return nil
}

func randomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
