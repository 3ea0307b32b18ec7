/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"

	"loyalty-points-go/internal/auth"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
}

// tokenCmd signs a bearer token for an existing user. The adm claim follows
// the role stored for the user.
var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Issue an API bearer token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := services.DbService.GetUserById(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tokens, err := auth.NewTokenAuthority(appConfig.Server.Auth)
		if err != nil {
			return err
		}
		token, err := tokens.Issue(user.Id, user.IsAdmin())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}
