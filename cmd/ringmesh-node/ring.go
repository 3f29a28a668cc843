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

	"github.com/ringmesh-project/ringmesh/ringid"
)

var ringAdminAddr string

var ringCmd = &cobra.Command{
	Use:   "ring",
	Short: "Print the ring state of a running ringmesh-node",
	RunE:  runRing,
}

func init() {
	rootCmd.AddCommand(ringCmd)
	ringCmd.Flags().StringVar(&ringAdminAddr, "admin-addr", "127.0.0.1:7946", "admin address of the running node")
}

func runRing(cmd *cobra.Command, args []string) error {
	st, err := fetchRingState(ringAdminAddr)
	if err != nil {
		return err
	}

	fmt.Printf("self:        %s\n", st.Self)
	if st.Predecessor != "" {
		fmt.Printf("predecessor: %s\n", st.Predecessor)
	} else {
		fmt.Printf("predecessor: (none)\n")
	}
	if st.Successor != "" {
		fmt.Printf("successor:   %s\n", st.Successor)
	} else {
		fmt.Printf("successor:   (none)\n")
	}
	fmt.Printf("successors:  %d\n", len(st.Successors))
	for _, s := range st.Successors {
		fmt.Printf("  - %s\n", s)
	}
	fmt.Printf("peers:       %d\n", len(st.Peers))
	for _, p := range st.Peers {
		fmt.Printf("  - %s\n", p)
	}
	fmt.Printf("fingers:     %d/%d filled\n", st.FingersFilled, ringid.Width)
	return nil
}
