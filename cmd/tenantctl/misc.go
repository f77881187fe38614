package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/Abraxas-365/filesmile/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/filesmile/pkg/tenancy/tenancyinfra"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newHashPasswordCmd(c *cli) *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  "Reads the admin password from the first line of stdin and prints its bcrypt hash.",
		Example: `  printf '%s' "$ADMIN_PASSWORD" | tenantctl hash-password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("no password on stdin")
			}
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}

			hash, err := authinfra.HashPassword(password, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func newSchemaCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Database schema commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the directory tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.connect()
			if err != nil {
				return err
			}
			if err := tenancyinfra.EnsureSchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Schema is up to date")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the DDL",
		Run: func(cmd *cobra.Command, args []string) {
			for _, stmt := range tenancyinfra.Schema {
				fmt.Fprintln(c.out, stmt+";")
			}
		},
	})
	return cmd
}
