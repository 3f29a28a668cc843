// Copyright (C) 2025 ringmesh-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var connectAdminAddr string

var connectCmd = &cobra.Command{
	Use:   "connect <did>",
	Short: "Ask a running ringmesh-node to open a connection toward a peer",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVar(&connectAdminAddr, "admin-addr", "127.0.0.1:7946", "admin address of the running node")
}

func runConnect(cmd *cobra.Command, args []string) error {
	if err := requestConnect(connectAdminAddr, args[0]); err != nil {
		return err
	}
	fmt.Printf("connect requested toward %s\n", args[0])
	return nil
}
