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

var (
	restoreFileIDs  string
	restoreDirIDs   string
	restoreHardlink string
	restoreJobs     string
	restoreTable    string
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Compute a restore list into a b2<digits> table from fileId/dirId/hardlink selections",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := bvfs.NewSession(cat)
		if err := sess.SetJobIds(restoreJobs); err != nil {
			return err
		}
		if err := bvfs.ComputeRestoreList(cmd.Context(), sess, restoreFileIDs, restoreDirIDs, restoreHardlink, restoreTable); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), restoreTable)
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreFileIDs, "file-ids", "", "comma-separated FileId selection")
	restoreCmd.Flags().StringVar(&restoreDirIDs, "dir-ids", "", "comma-separated directory PathId selection")
	restoreCmd.Flags().StringVar(&restoreHardlink, "hardlink", "", "comma-separated (jobId,fileIndex) pair selection")
	restoreCmd.Flags().StringVar(&restoreJobs, "jobs", "", "comma-separated job id list the selection is scoped to")
	restoreCmd.Flags().StringVar(&restoreTable, "table", "", "target table name, must match b2<digits>")
	_ = restoreCmd.MarkFlagRequired("table")
	rootCmd.AddCommand(restoreCmd)
}
