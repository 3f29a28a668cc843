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

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Registers the Ed25519/Secp256k1 generators crypto.NewEd25519KeyPair
	// and crypto.NewSecp256k1KeyPair dispatch to.
	_ "github.com/ringmesh-project/ringmesh/internal/cryptoinit"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ringmesh-node",
	Short: "ringmesh-node runs and inspects a member of a ringmesh overlay",
	Long: `ringmesh-node starts a ring-member process, or talks to one that is
already running: inspect its current ring state, or ask it to open a
connection toward a peer.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML or JSON config file")
}
