// Copyright 2024 BVFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"bvfs/internal/bvfs"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the path-hierarchy/visibility cache for every terminated job with HasCache=0",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bvfs.RefreshBatch(cmd.Context(), cat); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "refresh batch complete")
		return nil
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete PathVisibility rows for jobs that no longer exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bvfs.GC(cmd.Context(), cat); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "gc complete")
		return nil
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Reset HasCache to 0 for every job and empty PathHierarchy/PathVisibility",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bvfs.ClearCache(cmd.Context(), cat); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd, gcCmd, clearCacheCmd)
}
