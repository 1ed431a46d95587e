package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/zapfeed/internal/transport/httpapi/middleware"
)

var (
	tokenCmd = &cobra.Command{
		Use:     "token",
		Short:   "Mint a bearer token for the API (uses JWT_SECRET)",
		Example: "zapctl token --subject teams-tab --ttl 720h",
		Args:    cobra.NoArgs,
		RunE:    runToken,
	}
	tokenCmdSubject = "subject"
	tokenCmdName    = "name"
	tokenCmdOid     = "oid"
	tokenCmdTTL     = "ttl"
)

func init() {
	tokenCmd.Flags().String(tokenCmdSubject, "", "token subject, also the feed session key")
	tokenCmd.Flags().String(tokenCmdName, "", "display name claim")
	tokenCmd.Flags().String(tokenCmdOid, "", "Azure AD object id claim")
	tokenCmd.Flags().Duration(tokenCmdTTL, 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired(tokenCmdSubject)
}

func runToken(ccmd *cobra.Command, args []string) error {
	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		return errors.New("JWT_SECRET must be set and at least 32 characters long")
	}

	subject, _ := ccmd.Flags().GetString(tokenCmdSubject)
	name, _ := ccmd.Flags().GetString(tokenCmdName)
	oid, _ := ccmd.Flags().GetString(tokenCmdOid)
	ttl, _ := ccmd.Flags().GetDuration(tokenCmdTTL)

	token, err := middleware.NewJWTService(secret).GenerateToken(subject, name, oid, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(ccmd.OutOrStdout(), token)
	return nil
}
