/*
Copyright 2024 Bankcore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/vaultline/bankcore"
	"github.com/vaultline/bankcore/database"
)

func migrateCommands(b *bankcoreInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run bankcore schema migrations",
	}

	cmd.AddCommand(migrateCommand(b, "up", migrate.Up))
	cmd.AddCommand(migrateCommand(b, "down", migrate.Down))

	return cmd
}

func migrateCommand(b *bankcoreInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("migrate the schema %s", use),
		Run: func(cmd *cobra.Command, args []string) {
			if b.cnf.UsesMemoryStore() {
				log.Println("memory data source configured, nothing to migrate")
				return
			}

			migrations := migrate.EmbedFileSystemMigrationSource{
				FileSystem: bankcore.SQLFiles,
				Root:       "sql",
			}

			db, err := database.ConnectDB(b.cnf.DataSource.Dns)
			if err != nil {
				log.Fatalf("Error connecting to database: %v", err)
			}
			defer db.Close()

			migrate.SetSchema("bankcore")

			n, err := migrate.Exec(db, "postgres", migrations, direction)
			if err != nil {
				log.Fatalf("Error migrating %s: %v", use, err)
			}
			fmt.Printf("Applied %d migrations (%s)\n", n, use)
		},
	}
}
